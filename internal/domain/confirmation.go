package domain

import "time"

// ConfirmationType is the closed set of confirmation kinds the engine
// understands. Anything else degrades to Unknown and is still
// answerable; the signing logic is identical for every type.
type ConfirmationType int

const (
	ConfirmationUnknown       ConfirmationType = 0
	ConfirmationTrade         ConfirmationType = 2
	ConfirmationMarketListing ConfirmationType = 3
)

func (t ConfirmationType) String() string {
	switch t {
	case ConfirmationTrade:
		return "trade"
	case ConfirmationMarketListing:
		return "market listing"
	}
	return "unknown"
}

// Confirmation is one pending action awaiting mobile sign-off. It is
// fetched fresh on every poll and must not be cached across polls: the
// Nonce rotates, so (ID, Nonce) only identifies the confirmation for the
// poll cycle that produced it.
type Confirmation struct {
	ID      uint64
	Nonce   string // server-opaque confirmation key
	Type    ConfirmationType
	RawType string // server's type_name, shown verbatim for unknown types
	// Creator references the object awaiting confirmation, e.g. the
	// trade offer ID or market listing ID.
	Creator  uint64
	Headline string
	Summary  []string

	// FetchedAt is the local receive time of the listing that produced
	// this confirmation, used to distinguish a stale signature from an
	// outright rejection when an answer fails.
	FetchedAt time.Time
}

// Decision is an answer to a confirmation.
type Decision int

const (
	Accept Decision = iota
	Cancel
)

// Tag is the operation name bound into the confirmation signature. The
// server rejects a decision whose tag does not match the submitted op.
func (d Decision) Tag() string {
	if d == Cancel {
		return "cancel"
	}
	return "allow"
}

func (d Decision) String() string { return d.Tag() }

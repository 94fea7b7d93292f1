package confirmation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"steamguard/internal/domain"
	"steamguard/internal/guardcode"
	"steamguard/internal/steamapi"
)

// listTag names the read-only listing operation in the signature.
const listTag = "conf"

// signatureWindow is how long a fetched confirmation's signature inputs
// are presumed fresh. A rejection after the window is reported as stale
// rather than as an outright refusal.
const signatureWindow = 30 * time.Second

// Service signs and submits mobileconf operations for one account at a
// time. It refreshes the account's session at most once per operation
// when the server reports it expired.
type Service struct {
	api      *steamapi.Client
	clock    domain.TimeSource
	sessions domain.SessionService
	log      *slog.Logger

	// now is swapped in tests to control staleness decisions.
	now func() time.Time
}

// New constructs the confirmation service.
func New(api *steamapi.Client, clock domain.TimeSource, sessions domain.SessionService, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		api:      api,
		clock:    clock,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

// List fetches the account's pending confirmations. The result is a
// snapshot: each entry's nonce is only valid until the next poll.
func (s *Service) List(ctx context.Context, account *domain.Account) ([]domain.Confirmation, error) {
	if err := s.sessions.EnsureSession(ctx, account); err != nil {
		return nil, err
	}

	var confs []domain.Confirmation
	err := s.withRetry(ctx, account, func() error {
		q, err := s.signedQuery(ctx, account, listTag)
		if err != nil {
			return err
		}
		confs, err = s.api.FetchConfirmations(ctx, account.Session, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("fetched confirmations", "account", account.AccountName, "count", len(confs))
	return confs, nil
}

// Answer submits one accept or cancel decision. A rejection of a
// confirmation fetched longer than the signature window ago surfaces as
// ErrStaleConfirmation: the caller should re-list and decide again. The
// decision is never retried silently.
func (s *Service) Answer(ctx context.Context, account *domain.Account, c domain.Confirmation, d domain.Decision) error {
	if err := s.sessions.EnsureSession(ctx, account); err != nil {
		return err
	}

	tag := d.Tag()
	err := s.withRetry(ctx, account, func() error {
		q, err := s.signedQuery(ctx, account, tag)
		if err != nil {
			return err
		}
		return s.api.SendConfirmationOp(ctx, account.Session, q, tag, c.ID, c.Nonce)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConfirmationRejected) && !c.FetchedAt.IsZero() && s.now().Sub(c.FetchedAt) > signatureWindow {
			return domain.Errf(domain.KindStaleConfirmation, domain.ErrStaleConfirmation,
				"confirmation %d fetched %s ago", c.ID, s.now().Sub(c.FetchedAt).Round(time.Second))
		}
		return err
	}
	s.log.Info("confirmation answered", "account", account.AccountName, "id", c.ID, "op", tag)
	return nil
}

// Accept answers the confirmation positively.
func (s *Service) Accept(ctx context.Context, account *domain.Account, c domain.Confirmation) error {
	return s.Answer(ctx, account, c, domain.Accept)
}

// Cancel declines the confirmation.
func (s *Service) Cancel(ctx context.Context, account *domain.Account, c domain.Confirmation) error {
	return s.Answer(ctx, account, c, domain.Cancel)
}

// signedQuery builds the signed parameter set for one operation. The
// signature binds the current server time and the operation tag.
func (s *Service) signedQuery(ctx context.Context, account *domain.Account, tag string) (steamapi.ConfirmationQuery, error) {
	if account.IdentitySecret.IsZero() {
		return steamapi.ConfirmationQuery{}, domain.Errf(domain.KindCrypto, nil, "account %q has no identity secret", account.AccountName)
	}
	now := s.clock.Now(ctx)
	key, err := guardcode.ConfirmationKey(account.IdentitySecret, tag, now)
	if err != nil {
		return steamapi.ConfirmationQuery{}, domain.Errf(domain.KindCrypto, err, "sign confirmation request")
	}
	return steamapi.ConfirmationQuery{
		SteamID:  account.SteamID,
		DeviceID: account.DeviceID,
		Key:      key,
		Time:     now,
		Tag:      tag,
	}, nil
}

// withRetry runs op and, if the server reports the session expired,
// refreshes once and re-signs. Any other failure passes through.
func (s *Service) withRetry(ctx context.Context, account *domain.Account, op func() error) error {
	err := op()
	if !errors.Is(err, domain.ErrSessionExpired) {
		return err
	}
	s.log.Debug("session rejected mid-operation, refreshing", "account", account.AccountName)
	if rerr := s.sessions.Refresh(ctx, account); rerr != nil {
		return rerr
	}
	return op()
}

var _ domain.ConfirmationService = (*Service)(nil)

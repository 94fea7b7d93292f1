package timesync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"steamguard/internal/domain"
)

// Provider answers the server-time query. *steamapi.Client implements it.
type Provider interface {
	QueryServerTime(ctx context.Context) (int64, error)
}

// Clock caches the server-time offset process-wide. The offset is fetched
// lazily on first use and only re-fetched when a caller asks; there is no
// background refresh. Reads and the atomic offset swap are guarded so a
// refresh in progress never exposes a half-written offset.
type Clock struct {
	provider Provider
	log      *slog.Logger

	mu     sync.RWMutex
	offset time.Duration
	synced bool

	// now stands in for time.Now in tests.
	now func() time.Time
}

// New builds a Clock over the given provider. log may be nil.
func New(provider Provider, log *slog.Logger) *Clock {
	if log == nil {
		log = slog.Default()
	}
	return &Clock{provider: provider, log: log, now: time.Now}
}

// Now returns the current Steam server time in Unix seconds. The first
// call aligns against the server; on failure it falls back to the local
// clock and warns, since a small skew is usually still inside the
// server's acceptance window.
func (c *Clock) Now(ctx context.Context) int64 {
	c.mu.RLock()
	synced, offset := c.synced, c.offset
	c.mu.RUnlock()

	if !synced {
		if err := c.Refresh(ctx); err != nil {
			c.log.Warn("time sync failed, using local clock", "err", err)
		} else {
			c.mu.RLock()
			offset = c.offset
			c.mu.RUnlock()
		}
	}
	return c.now().Add(offset).Unix()
}

// Offset returns serverTime - localTime as last synchronized, zero before
// the first successful sync.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Refresh re-queries the server clock and swaps in the new offset. A
// failed refresh leaves the previous offset in place.
func (c *Clock) Refresh(ctx context.Context) error {
	local := c.now()
	server, err := c.provider.QueryServerTime(ctx)
	if err != nil {
		return err
	}
	offset := time.Unix(server, 0).Sub(local)

	c.mu.Lock()
	c.offset = offset
	c.synced = true
	c.mu.Unlock()

	c.log.Debug("time aligned", "offset", offset)
	return nil
}

var _ domain.TimeSource = (*Clock)(nil)

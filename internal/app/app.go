package app

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"steamguard/internal/domain"
	confirmationsvc "steamguard/internal/services/confirmation"
	sessionsvc "steamguard/internal/services/session"
	"steamguard/internal/steamapi"
	"steamguard/internal/store"
	"steamguard/internal/timesync"
)

// Wire bundles the API client, clock and services for the CLI. The
// manifest store is opened separately because it needs the passphrase,
// which commands collect from the user.
type Wire struct {
	Config        Config
	Log           *slog.Logger
	API           *steamapi.Client
	Clock         domain.TimeSource
	Sessions      domain.SessionService
	Confirmations domain.ConfirmationService
	HTTP          *http.Client

	// Auth is the concrete session service, exposed for the QR login
	// and enrollment entry points that sit outside the SessionService
	// interface.
	Auth *sessionsvc.Service
}

// NewWire constructs the dependency graph from cfg. A nil logger
// discards everything.
func NewWire(cfg Config, log *slog.Logger) (*Wire, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout.Std()}
	api := steamapi.New(cfg.APIBase, cfg.CommunityBase, httpClient, log)
	clock := timesync.New(api, log)
	sessions := sessionsvc.New(api, clock, log)
	sessions.SetQRWait(cfg.QRWait.Std())
	confirmations := confirmationsvc.New(api, clock, sessions, log)

	return &Wire{
		Config:        cfg,
		Log:           log,
		API:           api,
		Clock:         clock,
		Sessions:      sessions,
		Confirmations: confirmations,
		HTTP:          httpClient,
		Auth:          sessions,
	}, nil
}

// OpenManifest unlocks the existing manifest with the passphrase.
func (w *Wire) OpenManifest(passphrase string) (*store.FileStore, error) {
	return store.Open(w.Config.ManifestPath, passphrase)
}

// CreateManifest initializes a fresh manifest, creating its directory
// with user-only permissions.
func (w *Wire) CreateManifest(passphrase string) (*store.FileStore, error) {
	dir := filepath.Dir(w.Config.ManifestPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, domain.Errf(domain.KindIO, err, "create manifest dir %s", dir)
	}
	return store.Create(w.Config.ManifestPath, passphrase)
}

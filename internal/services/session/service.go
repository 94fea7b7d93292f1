package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"steamguard/internal/domain"
	"steamguard/internal/guardcode"
	"steamguard/internal/steamapi"
)

const (
	// maxGuardAttempts bounds guard-code submissions per login attempt.
	// Exhausting it is a fatal AuthError for the attempt, not a crash.
	maxGuardAttempts = 3
	// maxTokenPolls bounds the status polls that collect tokens after
	// the second factor is accepted.
	maxTokenPolls = 5
	// defaultQRWait caps the wall-clock duration of a QR poll loop.
	defaultQRWait = 2 * time.Minute
	// maxFinalizeAttempts bounds the finalize loop. The server asks for
	// several consecutive codes to calibrate against our clock, so this
	// has to be generous.
	maxFinalizeAttempts = 30
)

// Service performs login, refresh and QR login for one account at a
// time. Callers must not run two login attempts for the same account
// concurrently; the service itself keeps no per-account state.
type Service struct {
	api   *steamapi.Client
	clock domain.TimeSource
	log   *slog.Logger

	// sleep and qrWait are swapped in tests.
	sleep  func(time.Duration)
	qrWait time.Duration
}

// New constructs the session service.
func New(api *steamapi.Client, clock domain.TimeSource, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		api:    api,
		clock:  clock,
		log:    log,
		sleep:  time.Sleep,
		qrWait: defaultQRWait,
	}
}

// SetQRWait overrides the maximum wall-clock wait for QR approval.
func (s *Service) SetQRWait(d time.Duration) {
	if d > 0 {
		s.qrWait = d
	}
}

// Login authenticates with the account's password. When the server
// demands a device code it is generated from the account's shared secret
// and current server time; an email-code demand without a supplied code
// surfaces as ErrEmailCodeRequired.
func (s *Service) Login(ctx context.Context, account *domain.Account, password string) error {
	return s.login(ctx, account, password, "")
}

// LoginWithCode is Login with a caller-supplied second-factor code,
// used for email codes or when the shared secret lives elsewhere.
func (s *Service) LoginWithCode(ctx context.Context, account *domain.Account, password, code string) error {
	return s.login(ctx, account, password, code)
}

func (s *Service) login(ctx context.Context, account *domain.Account, password, code string) error {
	// Each attempt fetches its own RSA key; a login is bound to the key
	// fetch and must not reuse a stale key.
	key, err := s.api.GetPasswordRSAKey(ctx, account.AccountName)
	if err != nil {
		return err
	}
	encrypted, err := steamapi.EncryptPassword(key, password)
	if err != nil {
		return err
	}

	auth, err := s.api.BeginAuthSessionViaCredentials(ctx, account.AccountName, encrypted, key.Timestamp, account.DeviceID)
	if err != nil {
		return err
	}

	if auth.NeedsGuard() {
		if err := s.submitGuard(ctx, account, auth, code); err != nil {
			return err
		}
	}

	status, err := s.collectTokens(ctx, auth.ClientID, auth.RequestID, auth.Interval)
	if err != nil {
		return err
	}
	return s.install(account, auth.SteamID, status)
}

// submitGuard satisfies the session's second-factor demand. A supplied
// code is sent once; a generated device code gets a bounded retry with a
// clock refresh between rejections, since skew is the usual cause.
func (s *Service) submitGuard(ctx context.Context, account *domain.Account, auth steamapi.AuthSession, code string) error {
	if code != "" {
		guard := steamapi.GuardDeviceCode
		if !auth.Accepts(guard) && auth.Accepts(steamapi.GuardEmailCode) {
			guard = steamapi.GuardEmailCode
		}
		return s.api.UpdateAuthSessionWithSteamGuardCode(ctx, auth.ClientID, auth.SteamID, guard, code)
	}

	switch {
	case auth.Accepts(steamapi.GuardDeviceCode) && !account.SharedSecret.IsZero():
		// fall through to the generation loop below
	case auth.Accepts(steamapi.GuardEmailCode):
		return domain.ErrEmailCodeRequired
	default:
		return domain.ErrGuardCodeRequired
	}

	var lastErr error
	for attempt := 0; attempt < maxGuardAttempts; attempt++ {
		generated, err := guardcode.LoginCode(account.SharedSecret, s.clock.Now(ctx))
		if err != nil {
			return domain.Errf(domain.KindCrypto, err, "derive login code")
		}
		err = s.api.UpdateAuthSessionWithSteamGuardCode(ctx, auth.ClientID, auth.SteamID, steamapi.GuardDeviceCode, generated)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrBadGuardCode) {
			return err
		}
		lastErr = err
		s.log.Warn("guard code rejected, refreshing server time", "attempt", attempt+1)
		if rerr := s.clock.Refresh(ctx); rerr != nil {
			s.log.Warn("time refresh failed", "err", rerr)
		}
	}
	return domain.Errf(domain.KindAuth, lastErr, "guard code rejected %d times", maxGuardAttempts)
}

// collectTokens polls the session until the server hands out tokens.
func (s *Service) collectTokens(ctx context.Context, clientID, requestID string, interval time.Duration) (steamapi.PollStatus, error) {
	for i := 0; ; i++ {
		status, err := s.api.PollAuthSessionStatus(ctx, clientID, requestID)
		if err != nil {
			return steamapi.PollStatus{}, err
		}
		if !status.Pending {
			return status, nil
		}
		if status.NewClientID != "" {
			clientID = status.NewClientID
		}
		if i+1 >= maxTokenPolls {
			return steamapi.PollStatus{}, domain.Errf(domain.KindProtocol, nil, "login session never produced tokens")
		}
		if err := ctx.Err(); err != nil {
			return steamapi.PollStatus{}, domain.Errf(domain.KindNetwork, err, "login poll cancelled")
		}
		s.sleep(interval)
	}
}

// install writes the fresh session onto the account.
func (s *Service) install(account *domain.Account, steamID uint64, status steamapi.PollStatus) error {
	if steamID == 0 {
		id, ok := domain.SteamIDFromToken(status.RefreshToken)
		if !ok {
			return domain.Errf(domain.KindProtocol, nil, "cannot determine steam id from tokens")
		}
		steamID = id
	}
	if account.SteamID != 0 && account.SteamID != steamID {
		return domain.Errf(domain.KindAuth, nil, "login returned tokens for steam id %d, account has %d", steamID, account.SteamID)
	}

	sessionID, err := steamapi.NewSessionID()
	if err != nil {
		return domain.Errf(domain.KindCrypto, err, "generate session id")
	}
	account.SteamID = steamID
	account.Session = &domain.Session{
		SteamID:      steamID,
		AccessToken:  status.AccessToken,
		RefreshToken: status.RefreshToken,
		SessionID:    sessionID,
	}
	s.log.Info("logged in", "account", account.AccountName, "steam_id", steamID)
	return nil
}

// Refresh silently mints a new access token from the stored refresh
// token. An exhausted refresh token reverts the account to logged out
// and returns ErrSessionExpired: full re-authentication is required.
func (s *Service) Refresh(ctx context.Context, account *domain.Account) error {
	if account.Session == nil {
		return domain.ErrNotLoggedIn
	}
	if account.Session.RefreshExpired() {
		account.Session = nil
		return domain.ErrSessionExpired
	}

	token, err := s.api.GenerateAccessToken(ctx, account.Session.RefreshToken, account.Session.SteamID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			account.Session = nil
		}
		return err
	}
	account.Session.AccessToken = token
	s.log.Debug("session refreshed", "account", account.AccountName)
	return nil
}

// EnsureSession makes the account usable for authenticated calls,
// performing at most one refresh when the access token has expired.
func (s *Service) EnsureSession(ctx context.Context, account *domain.Account) error {
	if account.Session == nil {
		return domain.ErrNotLoggedIn
	}
	if !account.Session.AccessExpired() {
		return nil
	}
	return s.Refresh(ctx, account)
}

// BeginQR registers a QR login session. The caller renders
// ChallengeURL and then drives PollQR.
func (s *Service) BeginQR(ctx context.Context, deviceID string) (steamapi.QRChallenge, error) {
	return s.api.BeginAuthSessionViaQR(ctx, deviceID)
}

// PollQR polls the challenge until it is approved, denied, or expired.
// Denial and expiry stop the loop immediately; the loop never outlives
// the configured maximum wall-clock wait. On approval the account gets a
// fresh session, exactly as with password login.
func (s *Service) PollQR(ctx context.Context, account *domain.Account, ch steamapi.QRChallenge) error {
	clientID := ch.ClientID
	deadline := time.Now().Add(s.qrWait)

	for {
		status, err := s.api.PollAuthSessionStatus(ctx, clientID, ch.RequestID)
		if err != nil {
			// ErrQRDenied / ErrQRExpired included: stop immediately.
			return err
		}
		if !status.Pending {
			if account.AccountName != "" && status.AccountName != "" && status.AccountName != account.AccountName {
				return domain.Errf(domain.KindAuth, nil, "qr approval came from account %q, expected %q", status.AccountName, account.AccountName)
			}
			if account.AccountName == "" {
				account.AccountName = status.AccountName
			}
			return s.install(account, 0, status)
		}
		if status.NewClientID != "" {
			clientID = status.NewClientID
		}
		if status.NewChallengeURL != "" {
			s.log.Info("qr challenge rotated", "url", status.NewChallengeURL)
		}
		if err := ctx.Err(); err != nil {
			return domain.Errf(domain.KindNetwork, err, "qr poll cancelled")
		}
		if !time.Now().Add(ch.Interval).Before(deadline) {
			return domain.ErrQRExpired
		}
		s.sleep(ch.Interval)
	}
}

// BeginEnroll asks Steam to mint authenticator material for the account
// and copies it onto the account. The caller must persist the account,
// revocation code included, before attempting FinalizeEnroll: the
// material is live on the server side as soon as this returns.
func (s *Service) BeginEnroll(ctx context.Context, account *domain.Account) error {
	if !account.SharedSecret.IsZero() {
		return domain.ErrAuthenticatorPresent
	}
	if err := s.EnsureSession(ctx, account); err != nil {
		return err
	}
	if account.DeviceID == "" {
		account.DeviceID = guardcode.NewDeviceID()
	}

	res, err := s.api.AddAuthenticator(ctx, account.Session.AccessToken, account.Session.SteamID, account.DeviceID)
	if err != nil {
		return err
	}
	account.SharedSecret = res.SharedSecret
	account.IdentitySecret = res.IdentitySecret
	account.Secret1 = res.Secret1
	account.SerialNumber = res.SerialNumber
	account.RevocationCode = res.RevocationCode
	account.URI = res.URI
	account.TokenGID = res.TokenGID
	s.log.Info("authenticator material issued", "account", account.AccountName, "serial", res.SerialNumber)
	return nil
}

// FinalizeEnroll activates the authenticator minted by BeginEnroll. The
// SMS activation code is sent on the first call; after that the server
// keeps requesting generated codes until it has seen enough to trust our
// clock. A rejected generated code triggers a time refresh and a retry.
func (s *Service) FinalizeEnroll(ctx context.Context, account *domain.Account, activationCode string) error {
	if account.SharedSecret.IsZero() {
		return domain.Errf(domain.KindAuth, nil, "account has no authenticator material to finalize")
	}
	if err := s.EnsureSession(ctx, account); err != nil {
		return err
	}

	for attempt := 0; attempt < maxFinalizeAttempts; attempt++ {
		guardTime := s.clock.Now(ctx)
		guard, err := guardcode.LoginCode(account.SharedSecret, guardTime)
		if err != nil {
			return domain.Errf(domain.KindCrypto, err, "derive guard code")
		}

		status, err := s.api.FinalizeAddAuthenticator(ctx, account.Session.AccessToken, account.Session.SteamID, activationCode, guard, guardTime)
		switch {
		case errors.Is(err, domain.ErrBadGuardCode):
			s.log.Warn("finalize code rejected, refreshing server time", "attempt", attempt+1)
			if rerr := s.clock.Refresh(ctx); rerr != nil {
				s.log.Warn("time refresh failed", "err", rerr)
			}
			continue
		case err != nil:
			return err
		}
		if status.Success && !status.WantMore {
			s.log.Info("authenticator activated", "account", account.AccountName)
			return nil
		}
		// The activation code is accepted once; subsequent rounds only
		// carry generated codes.
		activationCode = ""
		s.sleep(time.Second)
	}
	return domain.Errf(domain.KindAuth, nil, "authenticator finalization gave up after %d attempts", maxFinalizeAttempts)
}

var _ domain.SessionService = (*Service)(nil)

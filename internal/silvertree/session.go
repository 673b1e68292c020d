package silvertree

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Operation names reported by session calls.
const (
	OpLogin   = "login"
	OpRefresh = "refresh"
	OpPing    = "ping"
	OpSession = "session"
)

// SessionConfig holds the endpoints and transport settings for a Session.
type SessionConfig struct {
	AuthURL    string // base URL of the auth service (login, refresh)
	BaseURL    string // base URL of the resource service (ping, documents)
	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
}

// Session owns one credential pair and produces the Authorization header
// for every outbound request. Reads are lock-free; writers are serialized so
// a credential is always replaced as a whole.
type Session struct {
	authURL string
	baseURL string
	wire    transport
	logger  *slog.Logger

	mu   sync.Mutex // serializes credential writers
	cred atomic.Pointer[Credential]

	// now is the clock used for token expiry. Tests override it.
	now func() time.Time
}

// NewSession creates a Session with no credential.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		authURL: cfg.AuthURL,
		baseURL: cfg.BaseURL,
		wire:    newTransport(cfg.HTTPClient, cfg.UserAgent, logger),
		logger:  logger,
		now:     time.Now,
	}

	s.cred.Store(&Credential{})

	return s
}

// Login exchanges a username and password for a credential pair. On any
// failure the stored credential is left untouched.
func (s *Session) Login(ctx context.Context, username, password string) (Credential, error) {
	s.logger.Info("logging in", slog.String("username", username))

	payload := map[string]string{"username": username, "password": password}

	resp, err := s.wire.exchange(ctx, OpLogin, http.MethodPost, joinURL(s.authURL, "/login"), nil, payload, "")
	if err != nil {
		return Credential{}, err
	}

	if resp.status != http.StatusOK {
		s.logger.Debug("login rejected",
			slog.String("username", username),
			slog.Int("status", resp.status),
		)

		return Credential{}, statusError(OpLogin, ErrAuthentication, resp)
	}

	cred, err := s.parseTokenResponse(OpLogin, ErrAuthentication, resp, "")
	if err != nil {
		return Credential{}, err
	}

	s.store(cred)

	s.logger.Info("login successful",
		slog.String("username", username),
		slog.Time("expiry", cred.Expiry),
	)

	return cred, nil
}

// Refresh exchanges the stored refresh token for a new credential pair. The
// refresh token is presented as the bearer credential for this call only.
// Without a refresh token it fails with ErrPrecondition and sends nothing.
func (s *Session) Refresh(ctx context.Context) (Credential, error) {
	prev := s.Credential()
	if prev.RefreshToken == "" {
		return Credential{}, preconditionError(OpRefresh, "no refresh token available")
	}

	s.logger.Info("refreshing access token")

	bearer := Credential{AccessToken: prev.RefreshToken}.AuthorizationHeader()

	resp, err := s.wire.exchange(ctx, OpRefresh, http.MethodPost, joinURL(s.authURL, "/refresh"), nil, nil, bearer)
	if err != nil {
		return Credential{}, err
	}

	if resp.status != http.StatusOK {
		s.logger.Debug("refresh rejected", slog.Int("status", resp.status))

		return Credential{}, statusError(OpRefresh, ErrRefresh, resp)
	}

	cred, err := s.parseTokenResponse(OpRefresh, ErrRefresh, resp, prev.RefreshToken)
	if err != nil {
		return Credential{}, err
	}

	s.store(cred)

	s.logger.Info("access token refreshed", slog.Time("expiry", cred.Expiry))

	return cred, nil
}

// parseTokenResponse decodes a 200 login/refresh response. A body without an
// access token is treated as a rejection of kind.
func (s *Session) parseTokenResponse(op string, kind error, resp *response, prevRefresh string) (Credential, error) {
	var tr tokenResponse
	if err := json.Unmarshal(resp.body, &tr); err != nil {
		return Credential{}, &Error{
			Op:         op,
			Kind:       kind,
			StatusCode: resp.status,
			RequestID:  resp.requestID,
			Message:    string(resp.body),
			Cause:      err,
		}
	}

	if tr.AccessToken == "" {
		e := statusError(op, kind, resp)
		e.Message = "response missing access_token"

		return Credential{}, e
	}

	return tr.toCredential(prevRefresh, s.now()), nil
}

// Ping checks that the resource service is reachable and accepts the current
// credential. The decoded response body is returned unchanged.
func (s *Session) Ping(ctx context.Context) (any, error) {
	return s.probe(ctx, OpPing, "/ping")
}

// Info returns the resource service's view of the current session.
func (s *Session) Info(ctx context.Context) (any, error) {
	return s.probe(ctx, OpSession, "/session")
}

func (s *Session) probe(ctx context.Context, op, path string) (any, error) {
	resp, err := s.wire.exchange(ctx, op, http.MethodGet, joinURL(s.baseURL, path), nil, nil, s.AuthorizationHeader())
	if err != nil {
		return nil, err
	}

	if resp.status != http.StatusOK {
		return nil, statusError(op, ErrConnectivity, resp)
	}

	v, err := decodeJSON(resp.body)
	if err != nil {
		e := statusError(op, ErrConnectivity, resp)
		e.Cause = err

		return nil, e
	}

	return v, nil
}

// SetAccessToken seeds the access token, e.g. from a credential file. The
// Authorization header follows immediately.
func (s *Session) SetAccessToken(token string) {
	s.update(func(c *Credential) { c.AccessToken = token })
}

// SetRefreshToken seeds the refresh token.
func (s *Session) SetRefreshToken(token string) {
	s.update(func(c *Credential) { c.RefreshToken = token })
}

// Restore replaces the whole credential in one step.
func (s *Session) Restore(cred Credential) {
	s.store(cred)
}

// Credential returns the current credential.
func (s *Session) Credential() Credential {
	return *s.cred.Load()
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	return s.Credential().AccessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	return s.Credential().RefreshToken
}

// AuthorizationHeader returns "Bearer {access_token}" for the current
// credential, or "" before any access token is known.
func (s *Session) AuthorizationHeader() string {
	return s.cred.Load().AuthorizationHeader()
}

func (s *Session) store(cred Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred.Store(&cred)
}

func (s *Session) update(fn func(*Credential)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.cred.Load()
	fn(&next)
	s.cred.Store(&next)
}

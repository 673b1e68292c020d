package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/silvertree/stc/internal/config"
	"github.com/silvertree/stc/internal/credfile"
	"github.com/silvertree/stc/internal/silvertree"
)

// errNotLoggedIn is returned when no credential file exists for the profile.
var errNotLoggedIn = errors.New("not logged in, run 'stc login' first")

// APISession holds an authenticated session, the resource client borrowing
// its credentials, and the recovery policy that persists refreshed tokens.
type APISession struct {
	Session  *silvertree.Session
	Client   *silvertree.Client
	Recovery *silvertree.Recovery
	credPath string
}

// newServiceSession builds an unauthenticated session from resolved config.
// Login uses it directly; NewAPISession restores saved credentials into it.
func newServiceSession(cfg *config.ResolvedProfile, httpClient *http.Client, cc *CLIContext) *silvertree.Session {
	return silvertree.NewSession(silvertree.SessionConfig{
		AuthURL:    cfg.AuthURL,
		BaseURL:    cfg.BaseURL,
		HTTPClient: httpClient,
		UserAgent:  cfg.UserAgent,
		Logger:     cc.Logger,
	})
}

// NewAPISession loads the saved credential file and wires a session, client,
// and recovery policy around it. Refreshed credentials are written back to
// the same file.
func NewAPISession(cc *CLIContext) (*APISession, error) {
	cfg := cc.Cfg

	tok, err := credfile.Load(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	if tok == nil {
		return nil, errNotLoggedIn
	}

	httpClient := newHTTPClient(cfg.Timeout())

	sess := newServiceSession(cfg, httpClient, cc)
	sess.Restore(silvertree.CredentialFromToken(tok))

	client := silvertree.NewClient(cfg.BaseURL, httpClient, sess, cfg.UserAgent, cc.Logger)

	rec := silvertree.NewRecovery(sess, cc.Logger)
	rec.OnRefresh = func(cred silvertree.Credential) error {
		return credfile.Save(cfg.CredentialsFile, cred.Token())
	}

	cc.Logger.Debug("restored session",
		"profile", cfg.Name,
		"credentials_file", cfg.CredentialsFile,
		"token_valid", silvertree.CredentialFromToken(tok).Valid(),
	)

	return &APISession{
		Session:  sess,
		Client:   client,
		Recovery: rec,
		credPath: cfg.CredentialsFile,
	}, nil
}

// CheckConnection pings the document service, refreshing the credential
// once if the ping is rejected. Progress goes to stderr as
// "Checking connection...OK" or "...FAILED".
func (s *APISession) CheckConnection(ctx context.Context, cc *CLIContext) error {
	cc.Statusf("Checking connection...")

	if _, err := silvertree.Recover(ctx, s.Recovery, s.Session.Ping); err != nil {
		cc.Statusf("%s\n", cc.palette.fail.Sprint("FAILED"))
		return err
	}

	cc.Statusf("%s\n", cc.palette.ok.Sprint("OK"))

	return nil
}

// runAuthenticated is the shared body of every service command: restore the
// session, confirm connectivity, run the action under the recovery policy,
// and render its result.
func runAuthenticated(ctx context.Context, cc *CLIContext, action func(context.Context, *APISession) (any, error)) error {
	s, err := NewAPISession(cc)
	if err != nil {
		return err
	}

	if err := s.CheckConnection(ctx, cc); err != nil {
		return err
	}

	result, err := silvertree.Recover(ctx, s.Recovery, func(ctx context.Context) (any, error) {
		return action(ctx, s)
	})
	if err != nil {
		return err
	}

	return render(cc.Stdout, cc.Cfg.Output, result)
}

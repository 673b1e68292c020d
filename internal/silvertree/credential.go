package silvertree

import (
	"time"

	"golang.org/x/oauth2"
)

const bearerScheme = "Bearer"

// Credential is an access/refresh token pair. Values are never mutated in
// place: a Session swaps in a new Credential on every login, refresh or seed.
type Credential struct {
	AccessToken  string
	RefreshToken string
	TokenType    string    // as reported by the auth service; stored, never sent
	Expiry       time.Time // zero when the auth service does not report a lifetime
}

// AuthorizationHeader returns "Bearer <access token>", or "" when no access
// token is set. The scheme is always Bearer whatever token_type the auth
// service reported.
func (c Credential) AuthorizationHeader() string {
	if c.AccessToken == "" {
		return ""
	}

	return bearerScheme + " " + c.AccessToken
}

// Valid reports whether the access token is present and not known to be
// expired. A credential without an expiry is considered valid until the
// server says otherwise.
func (c Credential) Valid() bool {
	return c.Token().Valid()
}

// Token converts the credential to an oauth2.Token, the on-disk format used
// by credential files.
func (c Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// CredentialFromToken converts a persisted oauth2.Token into a Credential.
// A nil token yields the zero Credential.
func CredentialFromToken(tok *oauth2.Token) Credential {
	if tok == nil {
		return Credential{}
	}

	return Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
}

// tokenResponse mirrors the auth service's login/refresh JSON response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// toCredential normalizes a token response. prevRefresh is kept when the
// response does not rotate the refresh token.
func (r *tokenResponse) toCredential(prevRefresh string, now time.Time) Credential {
	cred := Credential{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}

	if cred.RefreshToken == "" {
		cred.RefreshToken = prevRefresh
	}

	if r.ExpiresIn > 0 {
		cred.Expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}

	return cred
}

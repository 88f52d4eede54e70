package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/bandavail/internal/apperr"
)

// ErrStateMismatch is returned when the callback state does not match the
// state stored at the start of the flow.
var ErrStateMismatch = apperr.New(apperr.KindInvalidInput, "OAuth state mismatch")

// Flow runs the authorization code flow with PKCE against Google.
type Flow struct {
	conf *oauth2.Config
}

// NewFlow creates a Flow for conf.
func NewFlow(conf *oauth2.Config) *Flow {
	return &Flow{conf: conf}
}

// Config returns the underlying OAuth2 configuration.
func (f *Flow) Config() *oauth2.Config {
	return f.conf
}

// AuthCodeURL returns the consent URL for state and PKCE verifier. Offline
// access is requested so a refresh token is issued.
func (f *Flow) AuthCodeURL(state, verifier string) string {
	return f.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange trades an authorization code for credentials. It fails when a
// requested scope was left out of the grant.
func (f *Flow) Exchange(ctx context.Context, code, verifier string) (Credentials, error) {
	token, err := f.conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	creds := CredentialsFromToken(token)
	for _, scope := range f.conf.Scopes {
		if !creds.HasScope(scope) {
			return Credentials{}, apperr.Newf(apperr.KindInvalidInput,
				"Google did not grant %s; sign in again and allow spreadsheet access", scope)
		}
	}
	return creds, nil
}

// Begin starts an authorization for sess and returns the URL to redirect to.
func (f *Flow) Begin(sess *Session) string {
	sess.State = uuid.NewString()
	sess.Verifier = oauth2.GenerateVerifier()
	return f.AuthCodeURL(sess.State, sess.Verifier)
}

// Complete verifies state against sess, exchanges code and stores the
// credentials in sess. The pending state is cleared in every case.
func (f *Flow) Complete(ctx context.Context, sess *Session, state, code string) (Credentials, error) {
	expected, verifier := sess.State, sess.Verifier
	sess.State, sess.Verifier = "", ""

	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		return Credentials{}, ErrStateMismatch
	}
	if code == "" {
		return Credentials{}, apperr.New(apperr.KindInvalidInput, "missing authorization code")
	}

	creds, err := f.Exchange(ctx, code, verifier)
	if err != nil {
		return Credentials{}, err
	}
	sess.Credentials = &creds
	return creds, nil
}

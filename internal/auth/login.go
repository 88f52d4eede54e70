package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/teemow/bandavail/internal/apperr"
)

// CodeLogin is the copy-paste variant of Flow used by the CLI and the MCP
// server. The user opens AuthURL in a browser and hands back either the
// authorization code or the whole redirect URL.
type CodeLogin struct {
	flow *Flow

	mu      sync.Mutex
	pending Session
}

// NewCodeLogin creates a CodeLogin on flow.
func NewCodeLogin(flow *Flow) *CodeLogin {
	return &CodeLogin{flow: flow}
}

// AuthURL starts a new authorization, replacing any pending one.
func (l *CodeLogin) AuthURL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = Session{}
	return l.flow.Begin(&l.pending)
}

// Complete exchanges the code in input for credentials. A bare code is
// accepted as belonging to the pending authorization; a redirect URL must
// carry its state.
func (l *CodeLogin) Complete(ctx context.Context, input string) (Credentials, error) {
	code, state, err := ParseAuthCode(input)
	if err != nil {
		return Credentials{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending.State == "" {
		return Credentials{}, apperr.New(apperr.KindInvalidInput, "no authorization in progress; request an authorization URL first")
	}
	if state == "" {
		state = l.pending.State
	}
	return l.flow.Complete(ctx, &l.pending, state, code)
}

// ParseAuthCode extracts the authorization code, and the state when present,
// from a bare code or a redirect URL.
func ParseAuthCode(input string) (code, state string, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", "", apperr.New(apperr.KindInvalidInput, "authorization code is required")
	}

	if !strings.Contains(input, "://") && !strings.HasPrefix(input, "/") {
		return input, "", nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInvalidInput, err, "invalid redirect URL")
	}
	q := u.Query()
	if reason := q.Get("error"); reason != "" {
		return "", "", apperr.Newf(apperr.KindInvalidInput, "Authorization failed: %s", reason)
	}
	code = q.Get("code")
	if code == "" {
		return "", "", apperr.New(apperr.KindInvalidInput, "redirect URL has no code parameter")
	}
	return code, q.Get("state"), nil
}

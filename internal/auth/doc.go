// Package auth holds Google OAuth credentials for a request and the
// encrypted cookie session that carries them in the web application.
//
// The session cookie is sealed with AES-256-GCM under a key derived from the
// configured secret, so a tampered or foreign cookie decodes to an empty
// session. Flow wraps the authorization code exchange with state and PKCE.
package auth

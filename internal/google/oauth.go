package google

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AppName names the per-user cache directory.
const AppName = "bandavail"

// ConfigFromJSON builds the OAuth2 configuration from a client secrets
// document ("web" or "installed") downloaded from the Google Cloud console.
// redirectURL overrides the redirect URIs listed in the document.
func ConfigFromJSON(data []byte, redirectURL string) (*oauth2.Config, error) {
	conf, err := google.ConfigFromJSON(data, DefaultOAuthScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OAuth client config: %w", err)
	}
	if redirectURL != "" {
		conf.RedirectURL = redirectURL
	}
	return conf, nil
}

// NewHTTPClient returns a client that authenticates with ts. HTTP/2 is
// disabled.
func NewHTTPClient(ts oauth2.TokenSource) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				ForceAttemptHTTP2: false,
			},
		},
	}
}

// DefaultTokenPath returns the token file shared by the CLI and the MCP
// server, under the user cache directory. It falls back to the working
// directory when no cache directory is known.
func DefaultTokenPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, AppName, "google.token")
}

package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/auth"
	"github.com/teemow/bandavail/internal/google"
)

// Opener builds Clients for the configured spreadsheet, one per credential.
type Opener struct {
	conf          *oauth2.Config
	spreadsheetID string
	clientOpts    []Option
	serviceOpts   []option.ClientOption
}

// NewOpener creates an Opener. conf supplies the client id and secret used to
// refresh tokens.
func NewOpener(conf *oauth2.Config, spreadsheetID string, opts ...Option) *Opener {
	return &Opener{
		conf:          conf,
		spreadsheetID: spreadsheetID,
		clientOpts:    opts,
	}
}

// WithServiceOptions appends options passed to the Sheets service
// constructor, such as a custom endpoint.
func (o *Opener) WithServiceOptions(opts ...option.ClientOption) *Opener {
	o.serviceOpts = append(o.serviceOpts, opts...)
	return o
}

// Open returns a Client authorized by creds. Expired access tokens are
// refreshed transparently.
func (o *Opener) Open(ctx context.Context, creds auth.Credentials) (*Client, error) {
	if !creds.Valid() {
		return nil, apperr.ErrNotAuthenticated
	}
	return o.OpenTokenSource(ctx, o.conf.TokenSource(ctx, creds.Token))
}

// OpenTokenSource returns a Client authorized by ts.
func (o *Opener) OpenTokenSource(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	opts := append([]option.ClientOption{option.WithHTTPClient(google.NewHTTPClient(ts))}, o.serviceOpts...)
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}
	return NewClient(svc, o.spreadsheetID, o.clientOpts...), nil
}

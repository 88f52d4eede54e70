package server

import (
	"context"
	"errors"
	"sync"

	"github.com/teemow/bandavail/internal/auth"
	"github.com/teemow/bandavail/internal/availability"
	"github.com/teemow/bandavail/internal/sheets"
)

// SheetOpener opens a sheet client bound to one user's credentials.
type SheetOpener func(ctx context.Context, creds auth.Credentials) (availability.SheetClient, error)

// OpenerFunc adapts a sheets.Opener to a SheetOpener.
func OpenerFunc(o *sheets.Opener) SheetOpener {
	return func(ctx context.Context, creds auth.Credentials) (availability.SheetClient, error) {
		client, err := o.Open(ctx, creds)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Dependencies are the collaborators the web application needs.
type Dependencies struct {
	Service   *availability.Service
	OpenSheet SheetOpener
	Flow      *auth.Flow
	Sessions  *auth.CookieStore
}

// ServerContext holds the shared dependencies of the web application and its
// shutdown state.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	service   *availability.Service
	openSheet SheetOpener
	flow      *auth.Flow
	sessions  *auth.CookieStore

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, deps Dependencies) (*ServerContext, error) {
	var errs []error
	if deps.Service == nil {
		errs = append(errs, errors.New("availability service is required"))
	}
	if deps.OpenSheet == nil {
		errs = append(errs, errors.New("sheet opener is required"))
	}
	if deps.Flow == nil {
		errs = append(errs, errors.New("OAuth flow is required"))
	}
	if deps.Sessions == nil {
		errs = append(errs, errors.New("session store is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		service:   deps.Service,
		openSheet: deps.OpenSheet,
		flow:      deps.Flow,
		sessions:  deps.Sessions,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Service returns the availability service.
func (sc *ServerContext) Service() *availability.Service {
	return sc.service
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown marks the server as shutting down and cancels its context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}

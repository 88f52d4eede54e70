// Package server provides the bandavail web application.
//
// # Key Components
//
// App is the chi router serving the HTML page, the Google OAuth redirect flow
// and the JSON API. Each browser's Google token lives in an encrypted session
// cookie; API handlers receive it explicitly through requireCredentials and
// open a Sheets client bound to it for the duration of the request.
//
// ServerContext carries the shared dependencies and the shutdown state the
// readiness probe reports.
//
// MetricsServer exposes Prometheus metrics on a dedicated address, separate
// from application traffic.
//
// # Error Mapping
//
// Handlers never choose status codes for domain errors themselves;
// statusForError maps every apperr kind in one place.
package server

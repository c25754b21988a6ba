// Package apiclient talks to a running cardscand over HTTP.
//
// The CLI uses it for scanning, confirming, listing, and cache maintenance.
// Non-2xx responses decode into *APIError, which unwraps to the services
// sentinel matching the server's error kind so callers can classify with
// errors.Is.
package apiclient

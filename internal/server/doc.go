// Package server hosts the Fiber HTTP service: the request-ID and recover
// middleware chain, the JSON error handler, and the Registry that resolves
// configured packages and widgets by name. Route sets live in the routes
// subpackage and receive explicit dependencies instead of reaching for
// globals, so tests can wire fakes for the stats cache and refresher.
package server

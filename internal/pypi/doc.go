// Package pypi talks to the package index JSON API. It derives the per-package
// JSON URL, performs the single GET used by the stats cache, and turns the raw
// body into a Payload that only carries the download counters this service
// reads. Parsing is lenient: missing or oddly typed fields become absent values
// instead of errors, so callers never have to guard nested lookups.
package pypi

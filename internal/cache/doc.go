// Package cache defines the key/value store that keeps fetched statistics
// bodies alive for a time-to-live. Two backends are provided: an in-memory
// store backed by go-cache, and a disk store that writes each entry as a JSON
// envelope under StoragePath using temp file + rename. Keys are built with Key
// so every caller derives the same "#Type:hash" string for the same settings.
package cache

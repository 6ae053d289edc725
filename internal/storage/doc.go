// Package storage persists payloads and derived artifacts to disk.
//
// Every write creates the missing ancestor directories first and then
// replaces the destination atomically: data goes to a temporary file in the
// destination directory, is synced, and is renamed over the target. A write
// that fails part way leaves any previous file untouched.
//
// Relative paths are resolved against the Writer's root directory.
package storage

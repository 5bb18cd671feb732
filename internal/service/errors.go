// Package service implements the subscription synchronization and
// download-policy engine: settings resolution, folder hierarchy traversal,
// channel/playlist resolution, the synchronization engine and the video
// lifecycle manager. Persistence, job transport and the video source are
// collaborators injected at construction.
package service

import "errors"

var (
	// ErrInvalidReference is returned when a user-supplied URL or id cannot
	// be parsed into a channel or playlist reference.
	ErrInvalidReference = errors.New("invalid channel or playlist reference")

	// ErrNotFound is returned when the referenced remote entity does not
	// exist upstream.
	ErrNotFound = errors.New("channel or playlist not found")

	// ErrRateLimited is returned when the video source rejects a call due
	// to quota exhaustion. The current pass aborts cleanly and the
	// scheduler retries later.
	ErrRateLimited = errors.New("video source rate limited")

	// ErrTransientNetwork is returned for retryable network failures
	// against the video source.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrDataCorruption is returned when a folder tree cycle is detected.
	// Traversal logs, skips the offending node and continues.
	ErrDataCorruption = errors.New("folder tree corruption detected")

	// ErrConcurrencyViolation is returned when two synchronize passes run
	// concurrently for the same subscription. The caller's locking should
	// prevent this; the engine fails loudly rather than corrupt state.
	ErrConcurrencyViolation = errors.New("subscription is already synchronizing")
)

// IsRetryable returns true for errors that should abort the current sync
// pass but leave it safe to re-run later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransientNetwork)
}

// Package apperr holds the sentinel errors shared across hexokit.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrBusy is returned while another conversion is running.
	ErrBusy = errors.New("conversion in progress")
	// ErrNotReady is returned before the session has finished starting.
	ErrNotReady    = errors.New("not ready")
	ErrUnsupported = errors.New("unsupported file to convert")
)

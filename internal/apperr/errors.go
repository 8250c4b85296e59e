// Package apperr defines the sentinel errors shared across the appliance.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a media path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotADirectory is returned when a listing targets a file.
	ErrNotADirectory = errors.New("not a directory")
	// ErrBadPath is returned for the root path or for paths in the wrong
	// state for the requested file-management operation.
	ErrBadPath = errors.New("bad path")
	// ErrAlreadyExists is returned when creating a node that exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrSensorUnavailable is returned when no frame can be acquired.
	ErrSensorUnavailable = errors.New("sensor unavailable")
	// ErrStorageUnavailable is returned when the image file cannot be
	// created or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

package fs

import "errors"

var (
	// ErrInvalidName is returned when a project or version name is empty or path-like
	ErrInvalidName = errors.New("invalid name")

	// ErrNoPresentVersion is returned when an operation needs <project>.flp and it is missing
	ErrNoPresentVersion = errors.New("no present version to back up")

	// ErrPresentVersion is returned when an operation targets the present version but needs a snapshot
	ErrPresentVersion = errors.New("operation not allowed on the present version")

	// ErrProjectNotFound is returned when the project folder doesn't exist
	ErrProjectNotFound = errors.New("project not found")

	// ErrVersionNotFound is returned when a version file doesn't exist
	ErrVersionNotFound = errors.New("version not found")
)

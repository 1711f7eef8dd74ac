package core

import "errors"

// Common errors.
var (
	ErrNoStrategy      = errors.New("no strategy configured")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrEmptyNote       = errors.New("note text cannot be empty")
	ErrSaveSuperseded  = errors.New("save superseded by a newer save")
	ErrInvalidParts    = errors.New("part count must be positive")
)

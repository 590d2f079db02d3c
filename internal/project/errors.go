package project

import "errors"

var (
	// ErrSchemaMismatch indicates the project file was written by an incompatible version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrLocked is returned when another process has the project open.
	ErrLocked = errors.New("project locked by another process")
	// ErrNoProject is returned when the file has no project row yet.
	ErrNoProject = errors.New("project not initialized")
	// ErrNotFound is returned when no object matches an id or id prefix.
	ErrNotFound = errors.New("object not found")
	// ErrAmbiguous is returned when an id prefix matches more than one object.
	ErrAmbiguous = errors.New("object id prefix is ambiguous")
)

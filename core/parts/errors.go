package parts

import "errors"

var (
	// ErrInsanity reports a violated structural invariant of a model: a cycle
	// in the part tree, a node clustered twice for one resource, a dispatch
	// horizon shorter than its step.
	ErrInsanity = errors.New("insanity")
	// ErrPartNotFound is returned by Find when no part has the name.
	ErrPartNotFound = errors.New("part not found")
	// ErrAmbiguousPart is returned by Find when several parts share the name.
	ErrAmbiguousPart = errors.New("ambiguous part name")
)

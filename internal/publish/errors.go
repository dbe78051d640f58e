package publish

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceMissing indicates the bundler did not emit the artifact being published
	ErrSourceMissing = errors.New("source artifact missing")
	// ErrInvalidArtifact indicates an artifact reference with an empty path
	ErrInvalidArtifact = errors.New("invalid artifact reference")
)

// DirError indicates the destination directory could not be created
type DirError struct {
	Dir string
	Err error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("failed to create destination directory %s: %v", e.Dir, e.Err)
}

func (e *DirError) Unwrap() error {
	return e.Err
}

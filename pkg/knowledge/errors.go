package knowledge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a Store when no snapshot has been saved.
	ErrNotFound = errors.New("knowledge base not found")
	// ErrDimensionMismatch is returned when a vector does not have the knowledge base dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// LoadError reports a knowledge base artifact that is missing, corrupt or inconsistent.
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load knowledge base: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("load knowledge base: %s", e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Validate checks the invariants of a snapshot.
func Validate(snap *Snapshot) error {
	if snap == nil {
		return &LoadError{Reason: "missing snapshot", Err: ErrNotFound}
	}
	if len(snap.Entries) == 0 {
		return nil
	}
	if snap.Dimension <= 0 {
		return &LoadError{Reason: fmt.Sprintf("invalid dimension %d", snap.Dimension)}
	}

	for i, e := range snap.Entries {
		if e.Ordinal != i {
			return &LoadError{Reason: fmt.Sprintf("entry %d has ordinal %d", i, e.Ordinal)}
		}
		if e.Question == "" || e.Answer == "" {
			return &LoadError{Reason: fmt.Sprintf("entry %d has an empty question or answer", i)}
		}
		if !e.Language.Valid() {
			return &LoadError{Reason: fmt.Sprintf("entry %d has unknown language %q", i, e.Language)}
		}
		if len(e.Embedding) != snap.Dimension {
			return &LoadError{
				Reason: fmt.Sprintf("entry %d", i),
				Err:    fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, snap.Dimension, len(e.Embedding)),
			}
		}
	}
	return nil
}

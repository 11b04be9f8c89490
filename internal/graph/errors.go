package graph

import (
	"errors"
	"fmt"
)

// Structural errors. They indicate programmer mistakes and are never retried.
var (
	ErrNoValue                 = errors.New("vertex has no value and no way to compute one")
	ErrShapeMismatch           = errors.New("value shape does not match vertex shape")
	ErrObserveNonProbabilistic = errors.New("only probabilistic vertices can be observed")
	ErrCycle                   = errors.New("edge would create a cycle")
	ErrNotPlaceholder          = errors.New("vertex is not a placeholder")
	ErrAlreadyAttached         = errors.New("placeholder default already attached")
	ErrForeignVertex           = errors.New("vertex belongs to a different graph")
	ErrDuplicateLabel          = errors.New("label already used in this graph")
	ErrBadParameters           = errors.New("invalid parameters for vertex")
)

// VertexError attributes a failure to the vertex and operation that caused it.
type VertexError struct {
	Op    string // Operation that failed (e.g., "value", "observe", "cascade")
	ID    ID     // Vertex identity
	Label string // Optional human-readable label
	Err   error  // Underlying sentinel or cause
}

// Error implements the error interface.
func (e *VertexError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%s: vertex %d (%s): %v", e.Op, e.ID, e.Label, e.Err)
	}
	return fmt.Sprintf("%s: vertex %d: %v", e.Op, e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *VertexError) Unwrap() error {
	return e.Err
}

func (v *Vertex) errorf(op string, err error, format string, args ...any) *VertexError {
	if format != "" {
		err = fmt.Errorf("%w: "+format, append([]any{err}, args...)...)
	}
	return &VertexError{Op: op, ID: v.id, Label: v.label, Err: err}
}

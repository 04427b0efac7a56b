package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycleDetected means the dependency edges do not form a DAG.
	ErrCycleDetected = errors.New("dependency cycle detected")
	// ErrUnknownEndpoint means a dependency references a task outside the loaded set.
	ErrUnknownEndpoint = errors.New("dependency references unknown task")
)

// CycleError carries one cycle found in the graph. Path starts and ends with
// the same task ID, or lists the unsortable tasks when no single cycle was
// traced.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Path) == 0 {
		return ErrCycleDetected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCycleDetected, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// EndpointError describes a dependency whose endpoint was not loaded.
type EndpointError struct {
	PredecessorID string
	SuccessorID   string
	Missing       string
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("%s: %s -> %s (missing %s)", ErrUnknownEndpoint, e.PredecessorID, e.SuccessorID, e.Missing)
}

func (e *EndpointError) Unwrap() error { return ErrUnknownEndpoint }

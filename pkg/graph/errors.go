package graph

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation marks a broken hierarchy. It always indicates a bug in
// preprocessing; queries on such a hierarchy would return wrong distances.
var ErrInvariantViolation = errors.New("hierarchy invariant violated")

// InvariantError describes which node or edge broke a hierarchy invariant.
type InvariantError struct {
	Kind string
	Node int64 // -1 when not node specific
	Edge int64 // -1 when not edge specific
}

func (e *InvariantError) Error() string {
	switch {
	case e.Node >= 0 && e.Edge >= 0:
		return fmt.Sprintf("%s (node %d, edge %d)", e.Kind, e.Node, e.Edge)
	case e.Node >= 0:
		return fmt.Sprintf("%s (node %d)", e.Kind, e.Node)
	case e.Edge >= 0:
		return fmt.Sprintf("%s (edge %d)", e.Kind, e.Edge)
	}
	return e.Kind
}

// Unwrap lets errors.Is match ErrInvariantViolation.
func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

func edgeViolation(kind string, edge uint32) error {
	return &InvariantError{Kind: kind, Node: -1, Edge: int64(edge)}
}

// NodeViolation reports a broken invariant at node.
func NodeViolation(kind string, node uint32) error {
	return &InvariantError{Kind: kind, Node: int64(node), Edge: -1}
}

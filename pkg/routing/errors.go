package routing

import (
	"errors"
	"math"
)

// Infinity is the distance reported for unreachable pairs.
const Infinity = math.MaxUint32

const (
	noEdge = ^uint32(0)
	noNode = ^uint32(0)
)

var (
	// ErrNotFound is returned when no path exists between two nodes.
	ErrNotFound = errors.New("no path found")

	// ErrVisitedNodesExceeded is returned when a query touches more nodes
	// than its budget allows. No partial result is reported.
	ErrVisitedNodesExceeded = errors.New("visited node budget exceeded")

	// ErrInvalidNode is returned for a node id outside the graph.
	ErrInvalidNode = errors.New("invalid node")

	// ErrEmptyQuery is returned for a matrix query without sources or targets.
	ErrEmptyQuery = errors.New("empty source or target set")
)

package routing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"corerouter/pkg/filter"
	"corerouter/pkg/graph"
	"corerouter/pkg/landmark"
	"corerouter/pkg/metrics"
)

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Router is the query surface used by the HTTP layer.
type Router interface {
	Snap(p LatLng) (uint32, error)
	Coord(v uint32) LatLng
	Matrix(ctx context.Context, sources, targets []uint32, withPaths bool, f filter.EdgeFilter) (*Table, error)
	Route(ctx context.Context, from, to uint32, f filter.EdgeFilter) (*Path, error)
}

// EngineConfig holds the query limits of an Engine.
type EngineConfig struct {
	MaxVisitedNodes int     // per query, <= 0 means unlimited
	MaxSnapMeters   float64 // <= 0 selects DefaultMaxSnapMeters
	Logger          *slog.Logger
}

// Engine answers matrix and filtered route queries over one prepared
// hierarchy. Query scratch is pooled, so an Engine is safe for concurrent
// use.
type Engine struct {
	chg     *graph.CHGraph
	lm      *landmark.Index
	snapper *Snapper
	cfg     EngineConfig
	log     *slog.Logger

	manyPool   sync.Pool
	searchPool sync.Pool
}

// NewEngine creates an engine. lm may be nil, in which case filtered
// searches run without a heuristic in the core.
func NewEngine(chg *graph.CHGraph, lm *landmark.Index, cfg EngineConfig) *Engine {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		chg:     chg,
		lm:      lm,
		snapper: NewSnapper(chg, cfg.MaxSnapMeters),
		cfg:     cfg,
		log:     log,
	}
	e.manyPool.New = func() any { return newManyState(chg.NumNodes) }
	e.searchPool.New = func() any { return newSearchState(chg.NumNodes) }
	return e
}

// Graph returns the hierarchy the engine queries.
func (e *Engine) Graph() *graph.CHGraph { return e.chg }

// Landmarks returns the landmark index, possibly nil.
func (e *Engine) Landmarks() *landmark.Index { return e.lm }

// Snap maps a coordinate to the nearest graph node.
func (e *Engine) Snap(p LatLng) (uint32, error) {
	r, err := e.snapper.Snap(p.Lat, p.Lng)
	if err != nil {
		return 0, err
	}
	return r.Node(), nil
}

// Coord returns the position of node v.
func (e *Engine) Coord(v uint32) LatLng {
	return LatLng{Lat: e.chg.NodeLat[v], Lng: e.chg.NodeLon[v]}
}

// Matrix computes the distance table between sources and targets using
// only edges f accepts. f may be nil.
func (e *Engine) Matrix(ctx context.Context, sources, targets []uint32, withPaths bool, f filter.EdgeFilter) (*Table, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := e.manyPool.Get().(*manyState)
	defer e.manyPool.Put(s)

	opts := []Option{
		WithContext(ctx),
		WithMaxVisitedNodes(e.cfg.MaxVisitedNodes),
		WithFilter(f),
		withState(s),
	}
	if withPaths {
		opts = append(opts, WithPaths())
	}
	t, err := ManyToMany(e.chg, sources, targets, opts...)

	metrics.ObserveQuery(metrics.KindMatrix, resultLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	metrics.MatrixCells.Observe(float64(len(t.Dist)))
	e.log.Debug("matrix query",
		"sources", len(sources), "targets", len(targets), "filtered", f != nil,
		"visited", s.visited, "elapsed", time.Since(start))
	return t, nil
}

// Route finds the shortest path from one node to another using only edges
// f accepts. f may be nil.
func (e *Engine) Route(ctx context.Context, from, to uint32, f filter.EdgeFilter) (*Path, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := e.searchPool.Get().(*searchState)
	defer e.searchPool.Put(s)

	p, err := filteredSearch(e.chg, e.lm, from, to, f, e.cfg.MaxVisitedNodes, s)
	metrics.ObserveQuery(metrics.KindRoute, resultLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	e.log.Debug("route query",
		"from", from, "to", to, "weight", p.Weight,
		"visited", s.visited, "elapsed", time.Since(start))
	return p, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrVisitedNodesExceeded):
		return metrics.ResultBudget
	}
	return metrics.ResultError
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"

	"corerouter/pkg/filter"
	"corerouter/pkg/routing"
)

const (
	maxRouteBody  = 4 << 10
	maxMatrixBody = 1 << 20
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router    routing.Router
	filters   *filter.Registry
	stats     StatsResponse
	maxMatrix int
}

// NewHandlers creates handlers. filters may be nil when no filter is
// configured; maxMatrix caps both the source and the target count.
func NewHandlers(router routing.Router, filters *filter.Registry, stats StatsResponse, maxMatrix int) *Handlers {
	if filters == nil {
		filters = filter.NewRegistry()
	}
	return &Handlers{
		router:    router,
		filters:   filters,
		stats:     stats,
		maxMatrix: maxMatrix,
	}
}

// HandleMatrix handles POST /api/v1/matrix.
func (h *Handlers) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	var req MatrixRequest
	if !decodeJSON(w, r, maxMatrixBody, &req) {
		return
	}
	if len(req.Sources) == 0 || len(req.Targets) == 0 {
		writeError(w, http.StatusBadRequest, "empty_query", "")
		return
	}
	if len(req.Sources) > h.maxMatrix || len(req.Targets) > h.maxMatrix {
		writeError(w, http.StatusBadRequest, "matrix_too_large", "")
		return
	}

	sources, ok := h.resolveAll(w, req.Sources, "sources")
	if !ok {
		return
	}
	targets, ok := h.resolveAll(w, req.Targets, "targets")
	if !ok {
		return
	}

	f, ok := h.selectFilter(w, req.Avoid, req.Vehicle)
	if !ok {
		return
	}

	tbl, err := h.router.Matrix(r.Context(), sources, targets, req.Paths, f)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	resp := MatrixResponse{
		Sources:         sources,
		Targets:         targets,
		DistancesMeters: make([][]*float64, len(sources)),
	}
	if req.Paths {
		resp.WayIDs = make([][][]int64, len(sources))
	}
	for i := range sources {
		resp.DistancesMeters[i] = make([]*float64, len(targets))
		if req.Paths {
			resp.WayIDs[i] = make([][]int64, len(targets))
		}
		for j := range targets {
			if !tbl.Reachable(i, j) {
				continue
			}
			m := meters(tbl.At(i, j))
			resp.DistancesMeters[i][j] = &m
			if req.Paths {
				resp.WayIDs[i][j], _ = tbl.OrigIDs(i, j)
			}
		}
	}
	writeJSON(w, resp)
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, maxRouteBody, &req) {
		return
	}

	from, ok := h.resolve(w, req.Start, "start")
	if !ok {
		return
	}
	to, ok := h.resolve(w, req.End, "end")
	if !ok {
		return
	}

	f, ok := h.selectFilter(w, req.Avoid, req.Vehicle)
	if !ok {
		return
	}

	p, err := h.router.Route(r.Context(), from, to, f)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	resp := RouteResponse{
		TotalDistanceMeters: meters(p.Weight),
		Nodes:               p.Nodes,
		WayIDs:              p.OrigIDs,
		Geometry:            make([]LatLngJSON, len(p.Nodes)),
	}
	for i, v := range p.Nodes {
		ll := h.router.Coord(v)
		resp.Geometry[i] = LatLngJSON{Lat: ll.Lat, Lng: ll.Lng}
	}
	writeJSON(w, resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.stats)
}

// resolve maps a location to a node, writing the error response on failure.
func (h *Handlers) resolve(w http.ResponseWriter, loc LocationJSON, field string) (uint32, bool) {
	if loc.Node != nil {
		return *loc.Node, true
	}
	if err := validateCoord(loc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", field)
		return 0, false
	}
	v, err := h.router.Snap(routing.LatLng{Lat: loc.Lat, Lng: loc.Lng})
	if err != nil {
		if errors.Is(err, routing.ErrPointTooFar) {
			writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", field)
		} else {
			writeError(w, http.StatusInternalServerError, "internal_error", "")
		}
		return 0, false
	}
	return v, true
}

func (h *Handlers) resolveAll(w http.ResponseWriter, locs []LocationJSON, field string) ([]uint32, bool) {
	nodes := make([]uint32, len(locs))
	for i, loc := range locs {
		v, ok := h.resolve(w, loc, fmt.Sprintf("%s[%d]", field, i))
		if !ok {
			return nil, false
		}
		nodes[i] = v
	}
	return nodes, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

// writeQueryError maps routing errors onto status codes.
func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrNotFound):
		writeError(w, http.StatusNotFound, "no_route_found", "")
	case errors.Is(err, routing.ErrVisitedNodesExceeded):
		writeError(w, http.StatusUnprocessableEntity, "search_budget_exceeded", "")
	case errors.Is(err, routing.ErrInvalidNode):
		writeError(w, http.StatusBadRequest, "invalid_node", "")
	case errors.Is(err, routing.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "empty_query", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

// meters converts a weight in millimeters.
func meters(weight uint32) float64 {
	return float64(weight) / 1000.0
}

func validateCoord(ll LocationJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}

// selectFilter resolves the requested avoid and vehicle options. It writes
// the error response and reports false when a name is unknown.
func (h *Handlers) selectFilter(w http.ResponseWriter, avoid AvoidJSON, vehicle VehicleJSON) (filter.EdgeFilter, bool) {
	f, err := h.filters.Select(filter.Selection{
		Areas:  avoid.Areas,
		Ways:   avoid.Ways,
		Height: vehicle.HeightMeters,
		Weight: vehicle.WeightTonnes,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_filter", "avoid")
		return nil, false
	}
	return f, true
}

package api

// LocationJSON is a query location: a coordinate snapped to the nearest
// road, or a graph node id when Node is set.
type LocationJSON struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Node *uint32 `json:"node,omitempty"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MatrixRequest is the JSON body for POST /api/v1/matrix.
type MatrixRequest struct {
	Sources []LocationJSON `json:"sources"`
	Targets []LocationJSON `json:"targets"`
	Paths   bool           `json:"paths,omitempty"`
	Avoid   AvoidJSON      `json:"avoid"`
	Vehicle VehicleJSON    `json:"vehicle"`
}

// MatrixResponse holds distances in meters, row per source. Unreachable
// pairs are null.
type MatrixResponse struct {
	Sources         []uint32     `json:"sources"`
	Targets         []uint32     `json:"targets"`
	DistancesMeters [][]*float64 `json:"distances_meters"`
	WayIDs          [][][]int64  `json:"way_ids,omitempty"`
}

// AvoidJSON names the configured filters a query switches on.
type AvoidJSON struct {
	Areas []string `json:"areas,omitempty"`
	Ways  []string `json:"ways,omitempty"`
}

// VehicleJSON describes the vehicle for dimension restrictions.
type VehicleJSON struct {
	HeightMeters float64 `json:"height_meters,omitempty"`
	WeightTonnes float64 `json:"weight_tonnes,omitempty"`
}

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start   LocationJSON `json:"start"`
	End     LocationJSON `json:"end"`
	Avoid   AvoidJSON    `json:"avoid"`
	Vehicle VehicleJSON  `json:"vehicle"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	TotalDistanceMeters float64      `json:"total_distance_meters"`
	Nodes               []uint32     `json:"nodes"`
	WayIDs              []int64      `json:"way_ids"`
	Geometry            []LatLngJSON `json:"geometry"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes     uint32   `json:"num_nodes"`
	NumEdges     uint32   `json:"num_edges"`
	NumShortcuts uint32   `json:"num_shortcuts"`
	CoreNodes    uint32   `json:"core_nodes"`
	Subnetworks  int      `json:"core_subnetworks"`
	AvoidAreas   []string `json:"avoid_areas"`
	BlockedWays  []string `json:"blocked_way_groups"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

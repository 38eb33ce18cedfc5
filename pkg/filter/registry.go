package filter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// ErrUnknownFilter is returned when a query names a filter the registry
// does not hold.
var ErrUnknownFilter = errors.New("unknown filter")

// Selection names the filters one query switches on.
type Selection struct {
	Areas  []string
	Ways   []string
	Height float64 // vehicle height in meters, 0 for none
	Weight float64 // vehicle weight in tonnes, 0 for none
}

// Registry holds every filter queries may use. The same registry must be
// used to derive the core before contraction, otherwise filtered queries
// can miss edges.
type Registry struct {
	areas map[string]*AvoidAreas
	ways  map[string]*BlockedWays
	dims  *DimensionLimit
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		areas: make(map[string]*AvoidAreas),
		ways:  make(map[string]*BlockedWays),
	}
}

// AddArea registers a named avoid area.
func (r *Registry) AddArea(name string, polygon orb.Polygon) {
	r.areas[name] = NewAvoidAreas(polygon)
}

// AddWays registers a named group of blockable ways.
func (r *Registry) AddWays(name string, ids []int64) {
	r.ways[name] = NewBlockedWays(ids...)
}

// SetLimits sets the per-way dimension restrictions.
func (r *Registry) SetLimits(limits map[int64]Limits) {
	if len(limits) == 0 {
		r.dims = nil
		return
	}
	r.dims = NewDimensionLimit(limits)
}

// Names returns the sorted area and way group names.
func (r *Registry) Names() (areas, ways []string) {
	for name := range r.areas {
		areas = append(areas, name)
	}
	for name := range r.ways {
		ways = append(ways, name)
	}
	sort.Strings(areas)
	sort.Strings(ways)
	return areas, ways
}

// All returns every registered filter, for core derivation.
func (r *Registry) All() []EdgeFilter {
	areas, ways := r.Names()
	var all []EdgeFilter
	for _, name := range areas {
		all = append(all, r.areas[name])
	}
	for _, name := range ways {
		all = append(all, r.ways[name])
	}
	if r.dims != nil {
		all = append(all, r.dims)
	}
	return all
}

// Select builds the filter for one query. It returns nil when the selection
// switches nothing on.
func (r *Registry) Select(sel Selection) (EdgeFilter, error) {
	var chain Chain
	for _, name := range sel.Areas {
		a, ok := r.areas[name]
		if !ok {
			return nil, fmt.Errorf("area %q: %w", name, ErrUnknownFilter)
		}
		chain = append(chain, a)
	}
	for _, name := range sel.Ways {
		w, ok := r.ways[name]
		if !ok {
			return nil, fmt.Errorf("way group %q: %w", name, ErrUnknownFilter)
		}
		chain = append(chain, w)
	}
	if r.dims != nil && (sel.Height > 0 || sel.Weight > 0) {
		chain = append(chain, r.dims.ForVehicle(sel.Height, sel.Weight))
	}

	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	}
	return chain, nil
}

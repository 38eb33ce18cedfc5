// Package config loads the YAML configuration shared by the preprocess and
// server commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"corerouter/pkg/ch"
	"corerouter/pkg/filter"
	"corerouter/pkg/landmark"
	"corerouter/pkg/routing"
)

// ErrInvalid marks a configuration value out of range.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete configuration.
type Config struct {
	Contraction ContractionConfig `yaml:"contraction"`
	Landmarks   LandmarkConfig    `yaml:"landmarks"`
	Query       QueryConfig       `yaml:"query"`
	Server      ServerConfig      `yaml:"server"`
	Avoid       AvoidConfig       `yaml:"avoid"`
}

// ContractionConfig tunes hierarchy preprocessing.
type ContractionConfig struct {
	WitnessMaxSettled         int `yaml:"witness-max-settled"`
	WitnessMaxHops            int `yaml:"witness-max-hops"`
	PeriodicUpdateInterval    int `yaml:"periodic-update-interval"`
	EdgeDifferenceWeight      int `yaml:"edge-difference-weight"`
	ContractedNeighborsWeight int `yaml:"contracted-neighbors-weight"`
	OriginalEdgesWeight       int `yaml:"original-edges-weight"`
	LevelWeight               int `yaml:"level-weight"`
}

// LandmarkConfig tunes landmark selection in the core.
type LandmarkConfig struct {
	Count             int `yaml:"count"`
	MinSubnetworkSize int `yaml:"min-subnetwork-size"`
	Parallelism       int `yaml:"parallelism"`
}

// QueryConfig limits single queries.
type QueryConfig struct {
	MaxVisitedNodes int     `yaml:"max-visited-nodes"`
	MaxSnapMeters   float64 `yaml:"max-snap-meters"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read-timeout"`
	WriteTimeout   time.Duration `yaml:"write-timeout"`
	RequestTimeout time.Duration `yaml:"request-timeout"`
	MaxConcurrent  int           `yaml:"max-concurrent"`
	CORSOrigin     string        `yaml:"cors-origin"`
	MaxMatrixSize  int           `yaml:"max-matrix-size"` // max sources and max targets per matrix request
}

// AvoidConfig lists everything a query may avoid. Each entry makes the
// touched edges part of the core.
type AvoidConfig struct {
	Areas        []AreaConfig          `yaml:"areas"`
	BlockedWays  []WayGroupConfig      `yaml:"blocked-ways"`
	Restrictions map[int64]Restriction `yaml:"restrictions"`
}

// AreaConfig is a named polygon given as a ring of [lon, lat] pairs.
type AreaConfig struct {
	Name string       `yaml:"name"`
	Ring [][2]float64 `yaml:"ring"`
}

// WayGroupConfig is a named set of OSM way ids blocked together.
type WayGroupConfig struct {
	Name string  `yaml:"name"`
	Ways []int64 `yaml:"ways"`
}

// Restriction holds the physical limits of one way. Zero means unrestricted.
type Restriction struct {
	MaxHeight float64 `yaml:"max-height,omitempty"`
	MaxWeight float64 `yaml:"max-weight,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	c := ch.DefaultConfig()
	l := landmark.DefaultConfig()
	return Config{
		Contraction: ContractionConfig{
			WitnessMaxSettled:         c.WitnessMaxSettled,
			WitnessMaxHops:            c.WitnessMaxHops,
			PeriodicUpdateInterval:    c.PeriodicUpdateInterval,
			EdgeDifferenceWeight:      c.EdgeDifferenceWeight,
			ContractedNeighborsWeight: c.ContractedNeighborsWeight,
			OriginalEdgesWeight:       c.OriginalEdgesWeight,
			LevelWeight:               c.LevelWeight,
		},
		Landmarks: LandmarkConfig{
			Count:             l.Count,
			MinSubnetworkSize: l.MinSubnetworkSize,
		},
		Query: QueryConfig{
			MaxVisitedNodes: 1_000_000,
			MaxSnapMeters:   routing.DefaultMaxSnapMeters,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   5 * time.Second,
			RequestTimeout: 5 * time.Second,
			MaxConcurrent:  runtime.NumCPU() * 2,
			MaxMatrixSize:  100,
		},
	}
}

// Load reads path on top of the defaults and validates the result. Unknown
// keys are rejected. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. Errors wrap ErrInvalid.
func (c Config) Validate() error {
	checks := []struct {
		ok   bool
		what string
	}{
		{c.Contraction.WitnessMaxSettled >= 0, "contraction.witness-max-settled must not be negative"},
		{c.Contraction.WitnessMaxHops >= 0, "contraction.witness-max-hops must not be negative"},
		{c.Contraction.PeriodicUpdateInterval >= 0, "contraction.periodic-update-interval must not be negative"},
		{c.Contraction.EdgeDifferenceWeight >= 0 && c.Contraction.ContractedNeighborsWeight >= 0 &&
			c.Contraction.OriginalEdgesWeight >= 0 && c.Contraction.LevelWeight >= 0,
			"contraction priority weights must not be negative"},
		{c.Landmarks.Count >= 0, "landmarks.count must not be negative"},
		{c.Landmarks.MinSubnetworkSize >= 0, "landmarks.min-subnetwork-size must not be negative"},
		{c.Query.MaxVisitedNodes >= 0, "query.max-visited-nodes must not be negative"},
		{c.Query.MaxSnapMeters >= 0, "query.max-snap-meters must not be negative"},
		{c.Server.Addr != "", "server.addr is required"},
		{c.Server.ReadTimeout > 0 && c.Server.WriteTimeout > 0 && c.Server.RequestTimeout > 0,
			"server timeouts must be positive"},
		{c.Server.MaxConcurrent > 0, "server.max-concurrent must be positive"},
		{c.Server.MaxMatrixSize > 0, "server.max-matrix-size must be positive"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s", ErrInvalid, chk.what)
		}
	}
	return c.Avoid.validate()
}

func (a AvoidConfig) validate() error {
	names := make(map[string]bool)
	for _, area := range a.Areas {
		if area.Name == "" || names[area.Name] {
			return fmt.Errorf("%w: avoid area name %q is empty or duplicate", ErrInvalid, area.Name)
		}
		names[area.Name] = true
		if len(area.Ring) < 3 {
			return fmt.Errorf("%w: avoid area %q needs at least 3 points", ErrInvalid, area.Name)
		}
	}
	names = make(map[string]bool)
	for _, g := range a.BlockedWays {
		if g.Name == "" || names[g.Name] {
			return fmt.Errorf("%w: blocked way group name %q is empty or duplicate", ErrInvalid, g.Name)
		}
		names[g.Name] = true
	}
	for id, r := range a.Restrictions {
		if r.MaxHeight < 0 || r.MaxWeight < 0 {
			return fmt.Errorf("%w: restriction of way %d is negative", ErrInvalid, id)
		}
	}
	return nil
}

// CH returns the contraction settings.
func (c Config) CH(log *slog.Logger) ch.Config {
	k := c.Contraction
	return ch.Config{
		WitnessMaxSettled:         k.WitnessMaxSettled,
		WitnessMaxHops:            k.WitnessMaxHops,
		PeriodicUpdateInterval:    k.PeriodicUpdateInterval,
		EdgeDifferenceWeight:      k.EdgeDifferenceWeight,
		ContractedNeighborsWeight: k.ContractedNeighborsWeight,
		OriginalEdgesWeight:       k.OriginalEdgesWeight,
		LevelWeight:               k.LevelWeight,
		Logger:                    log,
	}
}

// Landmark returns the landmark settings.
func (c Config) Landmark(log *slog.Logger) landmark.Config {
	return landmark.Config{
		Count:             c.Landmarks.Count,
		MinSubnetworkSize: c.Landmarks.MinSubnetworkSize,
		Parallelism:       c.Landmarks.Parallelism,
		Logger:            log,
	}
}

// Engine returns the query limits.
func (c Config) Engine(log *slog.Logger) routing.EngineConfig {
	return routing.EngineConfig{
		MaxVisitedNodes: c.Query.MaxVisitedNodes,
		MaxSnapMeters:   c.Query.MaxSnapMeters,
		Logger:          log,
	}
}

// Registry builds the filter registry. Restrictions found in the map data
// are merged under the configured ones.
func (c Config) Registry(parsed map[int64]Restriction) *filter.Registry {
	r := filter.NewRegistry()
	for _, area := range c.Avoid.Areas {
		ring := make(orb.Ring, 0, len(area.Ring)+1)
		for _, p := range area.Ring {
			ring = append(ring, orb.Point{p[0], p[1]})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		r.AddArea(area.Name, orb.Polygon{ring})
	}
	for _, g := range c.Avoid.BlockedWays {
		r.AddWays(g.Name, g.Ways)
	}

	limits := make(map[int64]filter.Limits, len(parsed)+len(c.Avoid.Restrictions))
	for id, l := range parsed {
		limits[id] = filter.Limits(l)
	}
	for id, l := range c.Avoid.Restrictions {
		limits[id] = filter.Limits(l)
	}
	r.SetLimits(limits)
	return r
}

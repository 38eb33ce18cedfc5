package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corerouter/pkg/ch"
	"corerouter/pkg/filter"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	c := cfg.CH(nil)
	c.Logger = nil
	assert.Equal(t, ch.DefaultConfig(), c)
	assert.Equal(t, 2, cfg.Landmark(nil).Count)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
contraction:
  witness-max-settled: 50
landmarks:
  count: 4
server:
  addr: ":9090"
  read-timeout: 2s
avoid:
  areas:
    - name: center
      ring: [[103.80, 1.29], [103.81, 1.29], [103.81, 1.30]]
  blocked-ways:
    - name: border
      ways: [11, 12]
  restrictions:
    42: {max-height: 3.5}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Contraction.WitnessMaxSettled)
	assert.Equal(t, ch.DefaultConfig().WitnessMaxHops, cfg.Contraction.WitnessMaxHops)
	assert.Equal(t, 4, cfg.Landmarks.Count)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, Restriction{MaxHeight: 3.5}, cfg.Avoid.Restrictions[42])
}

func TestLoadEmptyPathAndFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		invalid bool
	}{
		{"unknown key", "contraction:\n  witness-max-setled: 5\n", false},
		{"bad yaml", "landmarks: [\n", false},
		{"negative count", "landmarks:\n  count: -1\n", true},
		{"zero concurrency", "server:\n  max-concurrent: 0\n", true},
		{"empty addr", "server:\n  addr: \"\"\n", true},
		{"short ring", "avoid:\n  areas:\n    - name: a\n      ring: [[1, 1], [2, 2]]\n", true},
		{"duplicate group", "avoid:\n  blocked-ways:\n    - name: b\n    - name: b\n", true},
		{"negative restriction", "avoid:\n  restrictions:\n    1: {max-weight: -2}\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), path)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NotErrorIs(t, err, ErrInvalid)
			}
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// farEdge is an edge well outside the configured area.
func farEdge(orig int64) filter.Edge {
	return filter.Edge{OrigID: orig, FromLat: 5, FromLon: 5, ToLat: 5.1, ToLon: 5.1}
}

func TestRegistry(t *testing.T) {
	cfg := Default()
	cfg.Avoid = AvoidConfig{
		Areas:        []AreaConfig{{Name: "center", Ring: [][2]float64{{0.9, 0.9}, {1.1, 0.9}, {1.1, 1.1}, {0.9, 1.1}}}},
		BlockedWays:  []WayGroupConfig{{Name: "border", Ways: []int64{7}}},
		Restrictions: map[int64]Restriction{8: {MaxHeight: 3}},
	}
	r := cfg.Registry(map[int64]Restriction{8: {MaxHeight: 5}, 9: {MaxWeight: 10}})
	assert.Len(t, r.All(), 3)

	f, err := r.Select(filter.Selection{Areas: []string{"center"}, Ways: []string{"border"}, Height: 4, Weight: 12})
	require.NoError(t, err)

	assert.Equal(t, filter.Reject, f.Evaluate(filter.Edge{FromLat: 1, FromLon: 1, ToLat: 2, ToLon: 2}))
	assert.Equal(t, filter.Reject, f.Evaluate(farEdge(7)))
	// Configured restrictions override parsed ones.
	assert.Equal(t, filter.Reject, f.Evaluate(farEdge(8)))
	assert.Equal(t, filter.Reject, f.Evaluate(farEdge(9)))
	assert.Equal(t, filter.Accept, f.Evaluate(farEdge(10)))
}

func TestRestrictionsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.restrictions.yaml")
	want := map[int64]Restriction{1: {MaxHeight: 3.2}, 2: {MaxWeight: 7.5}}
	require.NoError(t, WriteRestrictions(path, want))

	got, err := ReadRestrictions(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ReadRestrictions(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

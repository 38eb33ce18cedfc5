package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corerouter/pkg/ch"
	"corerouter/pkg/config"
	"corerouter/pkg/graph"
	"corerouter/pkg/routing"
)

// gridGraph contracts a six node grid:
//
//	0 ---100--- 1 ---200--- 2
//	|                       |
//	300                    400
//	|                       |
//	3 ---500--- 4 ---600--- 5
func gridGraph(t *testing.T) *graph.CHGraph {
	t.Helper()
	var edges []graph.InputEdge
	for i, e := range [][3]uint32{{0, 1, 100}, {1, 2, 200}, {0, 3, 300}, {2, 5, 400}, {3, 4, 500}, {4, 5, 600}} {
		edges = append(edges,
			graph.InputEdge{From: e[0], To: e[1], Weight: e[2], OrigID: int64(i)},
			graph.InputEdge{From: e[1], To: e[0], Weight: e[2], OrigID: int64(i)})
	}
	g := graph.FromEdges(6, edges,
		[]float64{1.300, 1.300, 1.300, 1.301, 1.301, 1.301},
		[]float64{103.800, 103.801, 103.802, 103.800, 103.801, 103.802})
	chg, err := ch.Contract(g, nil, ch.DefaultConfig())
	require.NoError(t, err)
	return chg
}

func testServer(t *testing.T, maxConcurrent int) *httptest.Server {
	t.Helper()
	eng := routing.NewEngine(gridGraph(t), nil, routing.EngineConfig{})
	cfg := config.Default().Server
	cfg.MaxConcurrent = maxConcurrent
	cfg.CORSOrigin = "https://example.com"
	srv := NewServer(cfg, NewHandlers(eng, nil, StatsResponse{NumNodes: 6}, 10), nil)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestServerRoutes(t *testing.T) {
	ts := testServer(t, 4)

	resp, err := http.Post(ts.URL+"/api/v1/matrix", "application/json",
		strings.NewReader(`{"sources":[{"lat":1.300,"lng":103.800}],"targets":[{"node":5}]}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"distances_meters":[[0.7]]`)
	assert.Equal(t, "https://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, err = http.Post(ts.URL+"/api/v1/route", "application/json",
		strings.NewReader(`{"start":{"node":0},"end":{"node":5}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "corerouter_queries_total")

	resp, err = http.Get(ts.URL + "/api/v1/matrix")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMiddlewareRecoversPanic(t *testing.T) {
	cfg := config.Default().Server
	sem := make(chan struct{}, 1)
	h := withMiddleware(func(w http.ResponseWriter, r *http.Request) { panic("boom") }, sem, cfg, slog.Default())

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, sem)
}

func TestMiddlewareConcurrencyLimit(t *testing.T) {
	cfg := config.Default().Server
	cfg.RequestTimeout = time.Second
	sem := make(chan struct{}, 1)
	sem <- struct{}{} // occupied

	h := withMiddleware(func(w http.ResponseWriter, r *http.Request) {}, sem, cfg, slog.Default())
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

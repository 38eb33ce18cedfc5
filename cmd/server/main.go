// Command server loads a preprocessed graph and serves matrix and filtered
// route queries over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"corerouter/internal/cli"
	"corerouter/pkg/api"
	"corerouter/pkg/config"
	"corerouter/pkg/graph"
	"corerouter/pkg/landmark"
	"corerouter/pkg/routing"
)

type options struct {
	graphPath        string
	configPath       string
	restrictionsPath string
	addr             string
	corsOrigin       string
	logLevel         string
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve routing queries over a preprocessed graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := cli.NewLogger(o.logLevel)
			if err != nil {
				return err
			}
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			if o.addr != "" {
				cfg.Server.Addr = o.addr
			}
			if o.corsOrigin != "" {
				cfg.Server.CORSOrigin = o.corsOrigin
			}
			if o.restrictionsPath == "" {
				o.restrictionsPath = cli.RestrictionsPath(o.graphPath)
			}

			h, err := load(cmd.Context(), o, cfg, log)
			if err != nil {
				return err
			}
			return api.ListenAndServe(api.NewServer(cfg.Server, h, log), log)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.graphPath, "graph", "graph.bin", "preprocessed graph file")
	f.StringVar(&o.configPath, "config", "", "YAML configuration file")
	f.StringVar(&o.restrictionsPath, "restrictions", "", "way restrictions file (default next to the graph)")
	f.StringVar(&o.addr, "addr", "", "listen address, overrides the configuration")
	f.StringVar(&o.corsOrigin, "cors-origin", "", "CORS allowed origin, overrides the configuration")
	f.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}

// load reads the graph and its restrictions and builds the query handlers.
func load(ctx context.Context, o options, cfg config.Config, log *slog.Logger) (*api.Handlers, error) {
	start := time.Now()

	chg, err := graph.ReadBinary(o.graphPath)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	log.Info("graph loaded",
		"nodes", chg.NumNodes,
		"edges", chg.NumBaseEdges,
		"shortcuts", chg.NumShortcuts(),
		"core", chg.CoreSize())

	parsed, err := config.ReadRestrictions(o.restrictionsPath)
	if err != nil {
		return nil, err
	}
	reg := cfg.Registry(parsed)
	if err := checkCore(chg, reg.All()...); err != nil {
		return nil, err
	}

	lm, err := landmark.Build(ctx, chg, cfg.Landmark(log))
	if err != nil {
		return nil, fmt.Errorf("build landmarks: %w", err)
	}

	eng := routing.NewEngine(chg, lm, cfg.Engine(log))
	areas, ways := reg.Names()
	stats := api.StatsResponse{
		NumNodes:     chg.NumNodes,
		NumEdges:     chg.NumBaseEdges,
		NumShortcuts: chg.NumShortcuts(),
		CoreNodes:    chg.CoreSize(),
		Subnetworks:  len(lm.Subnetworks()),
		AvoidAreas:   areas,
		BlockedWays:  ways,
	}

	log.Info("ready", "elapsed", time.Since(start).Round(time.Millisecond))
	return api.NewHandlers(eng, reg, stats, cfg.Server.MaxMatrixSize), nil
}

// Command preprocess turns an OSM extract into a contracted graph whose core
// holds every edge a configured filter may reject.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/paulmach/osm"
	"github.com/spf13/cobra"

	"corerouter/internal/cli"
	"corerouter/pkg/ch"
	"corerouter/pkg/config"
	"corerouter/pkg/filter"
	"corerouter/pkg/graph"
	osmparser "corerouter/pkg/osm"
)

var presets = map[string]osmparser.BBox{
	"singapore": {MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1},
	"kl":        {MinLat: 2.75, MaxLat: 3.5, MinLng: 101.2, MaxLng: 102.0},
}

type options struct {
	input       string
	output      string
	plainOutput string
	configPath  string
	bbox        string
	region      string
	parallelism int
	logLevel    string
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Contract an OSM extract into a routing graph with a filterable core",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := cli.NewLogger(o.logLevel)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, o, log)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "path to the .osm.pbf file")
	f.StringVar(&o.output, "output", "graph.bin", "output graph file")
	f.StringVar(&o.plainOutput, "plain-output", "", "also write a hierarchy without core to this file")
	f.StringVar(&o.configPath, "config", "", "YAML configuration file")
	f.StringVar(&o.bbox, "bbox", "", "bounding box minLat,minLng,maxLat,maxLng")
	f.StringVar(&o.region, "region", "", "named bounding box: singapore or kl")
	f.IntVar(&o.parallelism, "parallelism", 0, "hierarchies contracted at once, 0 for all")
	f.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	_ = cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("bbox", "region")
	return cmd
}

// parseBBox resolves the --region and --bbox flags. Both empty means no
// filtering.
func parseBBox(region, bbox string) (osmparser.BBox, error) {
	if region != "" {
		b, ok := presets[region]
		if !ok {
			return osmparser.BBox{}, fmt.Errorf("unknown region %q", region)
		}
		return b, nil
	}
	if bbox == "" {
		return osmparser.BBox{}, nil
	}
	var b osmparser.BBox
	if _, err := fmt.Sscanf(bbox, "%f,%f,%f,%f", &b.MinLat, &b.MinLng, &b.MaxLat, &b.MaxLng); err != nil {
		return osmparser.BBox{}, fmt.Errorf("invalid bbox %q (expected minLat,minLng,maxLat,maxLng): %w", bbox, err)
	}
	if b.MinLat >= b.MaxLat || b.MinLng >= b.MaxLng {
		return osmparser.BBox{}, fmt.Errorf("invalid bbox %q: minimum not below maximum", bbox)
	}
	return b, nil
}

// restrictions converts the parsed way limits to their persisted form.
func restrictions(limits map[osm.WayID]osmparser.WayLimits) map[int64]config.Restriction {
	out := make(map[int64]config.Restriction, len(limits))
	for id, l := range limits {
		out[int64(id)] = config.Restriction(l)
	}
	return out
}

func run(ctx context.Context, o options, log *slog.Logger) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	box, err := parseBBox(o.region, o.bbox)
	if err != nil {
		return err
	}
	if !box.IsZero() {
		log.Info("using bounding box",
			"min_lat", box.MinLat, "max_lat", box.MaxLat,
			"min_lng", box.MinLng, "max_lng", box.MaxLng)
	}

	start := time.Now()

	f, err := os.Open(o.input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	parsed, err := osmparser.Parse(ctx, f, osmparser.ParseOptions{BBox: box, Logger: log})
	if err != nil {
		return fmt.Errorf("parse osm: %w", err)
	}
	log.Info("parsed osm", "edges", len(parsed.Edges), "nodes", len(parsed.NodeLat), "restricted_ways", len(parsed.Limits))

	g := graph.Build(parsed)
	log.Info("graph built", "nodes", g.NumNodes, "edges", g.NumEdges)

	component := graph.LargestComponent(g)
	if g.NumNodes > 0 {
		log.Info("largest component",
			"nodes", len(component),
			"share", fmt.Sprintf("%.1f%%", float64(len(component))/float64(g.NumNodes)*100))
	}
	g = graph.FilterToComponent(g, component)

	limits := restrictions(parsed.Limits)
	reg := cfg.Registry(limits)
	filters := reg.All()
	core := filter.CoreNodes(g, filters...)
	numCore := 0
	for _, c := range core {
		if c {
			numCore++
		}
	}
	log.Info("core derived from filters", "filters", len(filters), "core", numCore)

	jobs := []ch.Job{{Name: "core", Graph: g, Core: core}}
	if o.plainOutput != "" {
		jobs = append(jobs, ch.Job{Name: "plain", Graph: g})
	}
	hierarchies, err := ch.ContractAll(ctx, jobs, cfg.CH(log), o.parallelism)
	if err != nil {
		return err
	}

	if err := write(o.output, hierarchies[0], log); err != nil {
		return err
	}
	if err := config.WriteRestrictions(cli.RestrictionsPath(o.output), limits); err != nil {
		return err
	}
	if o.plainOutput != "" {
		if err := write(o.plainOutput, hierarchies[1], log); err != nil {
			return err
		}
	}

	log.Info("done", "elapsed", time.Since(start).Round(time.Second))
	return nil
}

func write(path string, chg *graph.CHGraph, log *slog.Logger) error {
	if err := graph.WriteBinary(path, chg); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	log.Info("graph written",
		"path", path,
		"shortcuts", chg.NumShortcuts(),
		"size_mb", fmt.Sprintf("%.1f", float64(info.Size())/(1024*1024)))
	return nil
}

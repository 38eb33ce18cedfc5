package ch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"corerouter/pkg/graph"
)

// Job is one independent hierarchy to build, typically one routing profile.
type Job struct {
	Name  string
	Graph *graph.Graph
	Core  []bool
}

// ContractAll builds the hierarchies of several jobs concurrently, at most
// parallelism at a time (unlimited when <= 0). Jobs share no state. The
// first failure cancels the jobs that have not started yet.
func ContractAll(ctx context.Context, jobs []Job, cfg Config, parallelism int) ([]*graph.CHGraph, error) {
	results := make([]*graph.CHGraph, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			jobCfg := cfg
			jobCfg.Logger = cfg.logger().With("profile", job.Name)
			chg, err := Contract(job.Graph, job.Core, jobCfg)
			if err != nil {
				return fmt.Errorf("contract %s: %w", job.Name, err)
			}
			results[i] = chg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

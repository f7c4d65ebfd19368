// Package pipeline orchestrates the auction enrichment workflow: parse the
// auction list, expand multi-address rows, resolve each address under a
// bounded concurrency limit, then group and cluster the results for the
// renderers.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sheriffsale/auctionmap/internal/config"
	"github.com/sheriffsale/auctionmap/internal/geo"
	"github.com/sheriffsale/auctionmap/internal/model"
	"github.com/sheriffsale/auctionmap/internal/parser"
	"github.com/sheriffsale/auctionmap/internal/store"
	"github.com/sheriffsale/auctionmap/pkg/geocode"
)

// Pipeline runs the enrichment workflow end to end.
type Pipeline struct {
	cfg      config.PipelineConfig
	resolver geocode.Resolver
	store    store.Store
}

// Result is the pipeline's output handed to the renderers: the full ordered
// record sequence and the per-neighborhood proximity clusters.
type Result struct {
	RunID   string
	Records []model.ResolvedRecord
	Groups  map[string][]model.Cluster
}

// New creates a Pipeline.
func New(cfg config.PipelineConfig, resolver geocode.Resolver, st store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, resolver: resolver, store: st}
}

// Run processes the auction list at inputPath. Malformed input (a missing
// required column) aborts before any resolution work; individual lookup
// failures degrade to unresolved records and never abort the batch.
func (p *Pipeline) Run(ctx context.Context, inputPath string) (*Result, error) {
	run, err := p.store.CreateRun(ctx, inputPath)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	records, err := parser.ReadAuctionList(inputPath, parser.Options{HeaderRow: p.cfg.HeaderRow})
	if err != nil {
		if failErr := p.store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			zap.L().Warn("pipeline: record run failure", zap.Error(failErr))
		}
		return nil, err
	}

	tasks := expand(records)
	zap.L().Info("pipeline: dispatching resolution tasks",
		zap.Int("rows", len(records)),
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", p.workers()),
	)

	resolved := p.dispatch(ctx, tasks)

	groups := buildGroups(resolved, p.cfg.ClusterFeet)

	summary := summarize(records, resolved, groups)
	if err := p.store.CompleteRun(ctx, run.ID, summary); err != nil {
		zap.L().Warn("pipeline: record run completion", zap.Error(err))
	}

	zap.L().Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int("resolved", summary.Resolved),
		zap.Int("unresolved", summary.Unresolved),
		zap.Int("neighborhoods", summary.Neighborhoods),
		zap.Int("clusters", summary.Clusters),
	)

	return &Result{
		RunID:   run.ID,
		Records: resolved,
		Groups:  groups,
	}, nil
}

// task is the explicit per-address unit of work, carrying its own captured
// inputs so no task aliases a shared loop variable.
type task struct {
	raw  model.RawRecord
	unit model.AddressUnit
}

// expand decomposes every row into per-address tasks in row order.
func expand(records []model.RawRecord) []task {
	var tasks []task
	for _, raw := range records {
		for _, unit := range model.ExpandUnits(raw) {
			tasks = append(tasks, task{raw: raw, unit: unit})
		}
	}
	return tasks
}

func (p *Pipeline) workers() int {
	if p.cfg.Workers > 0 {
		return p.cfg.Workers
	}
	return 5
}

// GroupByNeighborhood buckets coordinate-bearing records by their
// neighborhood label, preserving record order within each bucket.
func GroupByNeighborhood(records []model.ResolvedRecord) map[string][]model.ResolvedRecord {
	groups := make(map[string][]model.ResolvedRecord)
	for _, r := range records {
		if !r.HasCoords() {
			continue
		}
		groups[r.Neighborhood] = append(groups[r.Neighborhood], r)
	}
	return groups
}

// buildGroups clusters each neighborhood's records at the given threshold.
func buildGroups(records []model.ResolvedRecord, thresholdFeet float64) map[string][]model.Cluster {
	groups := make(map[string][]model.Cluster)
	for neighborhood, members := range GroupByNeighborhood(records) {
		groups[neighborhood] = geo.ClusterRecords(members, thresholdFeet)
	}
	return groups
}

func summarize(raws []model.RawRecord, resolved []model.ResolvedRecord, groups map[string][]model.Cluster) store.RunSummary {
	s := store.RunSummary{
		Rows:          len(raws),
		Units:         len(resolved),
		Neighborhoods: len(groups),
	}
	for _, r := range resolved {
		if r.HasCoords() {
			s.Resolved++
		} else {
			s.Unresolved++
		}
	}
	for _, clusters := range groups {
		s.Clusters += len(clusters)
	}
	return s
}

package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sheriffsale/auctionmap/internal/model"
)

// dispatch resolves every task with at most the configured number of
// in-flight workers. Results land in a pre-allocated slice by task index,
// so the returned collection preserves task-creation order regardless of
// completion order. Workers never return an error for a lookup failure:
// each failure degrades its own record and siblings run to completion.
func (p *Pipeline) dispatch(ctx context.Context, tasks []task) []model.ResolvedRecord {
	results := make([]model.ResolvedRecord, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())

	for i, tk := range tasks {
		i, tk := i, tk
		g.Go(func() error {
			results[i] = p.resolveOne(gctx, tk)
			return nil
		})
	}

	// Workers return nil errors only; Wait is just the completion barrier.
	_ = g.Wait()

	return results
}

// resolveOne runs the fallback resolver and, when a coordinate was found,
// the neighborhood resolver for a single address unit.
func (p *Pipeline) resolveOne(ctx context.Context, tk task) model.ResolvedRecord {
	rec := model.NewResolvedRecord(tk.raw, tk.unit)
	log := zap.L().With(
		zap.String("auction_id", rec.AuctionID),
		zap.String("address", rec.Address),
	)

	coord, err := p.resolver.Resolve(ctx, tk.unit.Address, tk.unit.OPA)
	if err != nil {
		log.Warn("pipeline: resolution degraded to unresolved", zap.Error(err))
		return rec
	}
	if coord == nil {
		log.Debug("pipeline: address unresolved")
		return rec
	}

	lat, lng := coord.Lat, coord.Lng
	rec.Lat, rec.Lng = &lat, &lng

	neighborhood, err := p.resolver.Neighborhood(ctx, rec.Lat, rec.Lng)
	if err != nil {
		log.Warn("pipeline: neighborhood lookup degraded to Unknown", zap.Error(err))
		return rec
	}
	rec.Neighborhood = neighborhood
	return rec
}

package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/catalog/internal/ir"
	"github.com/roach88/catalog/internal/metrics"
	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/query"
	"github.com/roach88/catalog/internal/reply"
	"github.com/roach88/catalog/internal/store"
	"github.com/roach88/catalog/internal/transport"
)

// execute runs j's SQL on the backend and paginates the rows.
// Concurrent executions of identical SQL share one backend call.
func (a *Adapter) execute(ctx context.Context, j job) completion {
	tr := j.translation
	dialect := tr.Dialect.String()
	start := time.Now()

	v, err, shared := a.group.Do(tr.SQL, func() (any, error) {
		return a.backend.Execute(ctx, tr.SQL)
	})
	elapsed := time.Since(start)
	metrics.BackendDuration.WithLabelValues(dialect).Observe(elapsed.Seconds())

	if err != nil {
		metrics.BackendErrorsTotal.WithLabelValues(dialect).Inc()
		return completion{job: j, err: query.NewBackendError(tr.SQL, err), elapsed: elapsed}
	}

	rows := v.([]store.Row)
	values := make([]string, len(rows))
	for i, row := range rows {
		if len(row) > 0 {
			values[i] = row[0]
		}
	}

	a.logger.Debug("backend executed",
		"query_id", ir.QueryID(tr.SQL),
		"dialect", dialect,
		"rows", len(values),
		"shared", shared,
		"elapsed", elapsed,
	)

	segments, err := reply.Paginate(j.responsePrefix, values, reply.Options{
		PageSize:     a.pageSize,
		Autocomplete: tr.Dialect == query.DialectAutocomplete,
		Terminal:     tr.Terminal,
	})
	if err != nil {
		return completion{job: j, err: fmt.Errorf("paginate %s: %w", j.responsePrefix, err), elapsed: elapsed}
	}
	return completion{job: j, segments: segments, elapsed: elapsed}
}

// Run publishes completed queries until ctx is cancelled or the adapter is
// closed and its queue drained.
//
// Must be called from exactly one goroutine. A failing completion is logged
// and the loop continues.
func (a *Adapter) Run(ctx context.Context) error {
	a.logger.Info("adapter publisher starting")

	for {
		c, ok := a.queue.TryDequeue()
		if ok {
			a.processCompletion(ctx, c)
			continue
		}

		select {
		case <-ctx.Done():
			a.logger.Info("adapter publisher stopping: context cancelled")
			return ctx.Err()

		case <-a.queue.Wait():
			// The signal channel is closed with the queue, so this fires
			// immediately once closed.
			if a.queue.Drained() {
				a.logger.Info("adapter publisher stopping: adapter closed")
				return nil
			}
		}
	}
}

// processCompletion publishes a completed query or, on failure, forgets
// the request so an identical one is retried.
func (a *Adapter) processCompletion(ctx context.Context, c completion) {
	key := c.job.request.String()

	if c.err != nil {
		a.forget(key)
		code, _ := query.CodeOf(c.err)
		a.logger.Error("query failed",
			"name", key,
			"response", c.job.responsePrefix.String(),
			"code", string(code),
			"error", c.err,
		)
		return
	}

	if _, err := a.publishSegments(ctx, c); err != nil {
		a.forget(key)
		a.logger.Error("publish segments", "name", key, "error", err)
		return
	}
	a.markDone(key)
	a.announce(ctx, c.job.responsePrefix)

	a.logger.Info("query answered",
		"name", key,
		"response", c.job.responsePrefix.String(),
		"segments", len(c.segments),
		"elapsed", c.elapsed,
	)
}

// publishSegments stores every segment in the cache and publishes it, in
// segment order. A segment already cached is published from the cache.
func (a *Adapter) publishSegments(ctx context.Context, c completion) ([]transport.Packet, error) {
	packets := make([]transport.Packet, 0, len(c.segments))
	for _, seg := range c.segments {
		p := transport.Packet{
			Name:         seg.Name,
			Content:      seg.Content,
			FinalBlockID: seg.FinalBlockID,
			Freshness:    a.segmentFreshness,
		}
		if !a.cache.Store(p) {
			if cached, ok := a.cache.Lookup(seg.Name); ok {
				p = cached
			}
		}
		if err := a.face.Publish(ctx, p); err != nil {
			return packets, fmt.Errorf("publish segment %s: %w", seg.Name, err)
		}
		metrics.SegmentsPublished.Inc()
		packets = append(packets, p)
	}
	metrics.CacheEntries.Set(float64(a.cache.Len()))
	return packets, nil
}

func (a *Adapter) announce(ctx context.Context, responsePrefix name.Name) {
	if a.syncer == nil {
		return
	}
	if err := a.syncer.NotifyUpdate(ctx, responsePrefix.String()); err != nil {
		a.logger.Warn("sync notify failed", "id", responsePrefix.String(), "error", err)
	}
}

func (a *Adapter) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

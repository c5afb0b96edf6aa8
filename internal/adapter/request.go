package adapter

import (
	"context"
	"fmt"

	"github.com/roach88/catalog/internal/metrics"
	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/query"
	"github.com/roach88/catalog/internal/querysql"
	"github.com/roach88/catalog/internal/transport"
)

// HandleRequest handles one query request named
// <prefix>/query/<query-component>.
//
// It returns once the acknowledgement is published; backend execution is
// handed to the worker pool. Requests outside <prefix>/query, or without a
// query component, are ignored.
func (a *Adapter) HandleRequest(ctx context.Context, request name.Name) {
	qp := a.QueryPrefix()
	if !qp.IsPrefixOf(request) || request.Len() <= qp.Len() {
		a.logger.Warn("ignoring request outside query namespace", "name", request.String())
		return
	}
	key := request.String()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.logger.Warn("request after close", "name", key)
		return
	}
	if aq, ok := a.active[key]; ok {
		ack := aq.ack
		a.mu.Unlock()
		metrics.QueriesTotal.WithLabelValues(query.Dialect(0).String(), metrics.OutcomeDuplicate).Inc()
		a.logger.Debug("repeated request", "name", key, "response", aq.responsePrefix.String())
		a.publish(ctx, ack)
		return
	}

	responsePrefix, ackContent := a.responseName(request.At(-1), a.version.Next())
	aq := &activeQuery{
		ack: transport.Packet{
			Name:      request,
			Content:   []byte(ackContent.String()),
			Freshness: a.ackFreshness,
		},
		responsePrefix: responsePrefix,
	}
	a.active[key] = aq
	a.wg.Add(1)
	a.mu.Unlock()

	tr, terr := a.translate(request)

	a.publish(ctx, aq.ack)

	if terr != nil {
		a.wg.Done()
		metrics.QueriesTotal.WithLabelValues(query.Dialect(0).String(), metrics.OutcomeRejected).Inc()
		code, _ := query.CodeOf(terr)
		a.logger.Warn("query rejected",
			"name", key,
			"code", string(code),
			"error", terr,
		)
		return
	}
	metrics.QueriesTotal.WithLabelValues(tr.Dialect.String(), metrics.OutcomeAccepted).Inc()

	j := job{request: request, responsePrefix: responsePrefix, translation: tr}
	if err := a.submit(j); err != nil {
		a.logger.Error("submit query", "name", key, "error", err)
		a.forget(key)
	}
}

// RunQuery translates and executes q synchronously, then caches and
// publishes its segments under responsePrefix and announces it. Rejected
// queries return a *query.Error with a rejection code; backend failures
// return one with CodeBackend.
func (a *Adapter) RunQuery(ctx context.Context, q query.Query, responsePrefix name.Name) ([]transport.Packet, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	tr, err := a.translator.Translate(q)
	if err != nil {
		return nil, err
	}

	c := a.execute(ctx, job{responsePrefix: responsePrefix, translation: tr})
	if c.err != nil {
		return nil, c.err
	}

	packets, err := a.publishSegments(ctx, c)
	if err != nil {
		return nil, err
	}
	a.announce(ctx, responsePrefix)
	return packets, nil
}

// responseName builds the response-name-prefix and the acknowledgement
// content for a query component and version:
//
//	<prefix>/query-results/<catalog-id>/<query-component>/<version>
//	/query-results/<catalog-id>/<query-component>/<version>
func (a *Adapter) responseName(queryComponent name.Component, version uint64) (prefix, relative name.Name) {
	relative = name.Name{
		name.FromString(ComponentQueryResults),
		name.FromString(a.catalogID),
		queryComponent,
		name.FromVersion(version),
	}
	return a.prefix.AppendName(relative), relative
}

func (a *Adapter) translate(request name.Name) (querysql.Translation, error) {
	q, err := query.Parse(request)
	if err != nil {
		return querysql.Translation{}, err
	}
	return a.translator.Translate(q)
}

// submit hands j to an idle worker, or queues it when every worker is busy.
// It never waits for a backend call. The caller holds one count of a.wg,
// released when the job finishes or cannot be submitted.
func (a *Adapter) submit(j job) error {
	a.pendMu.Lock()
	if a.running >= a.workers {
		a.pending = append(a.pending, j)
		queued := len(a.pending)
		a.pendMu.Unlock()
		a.logger.Debug("workers busy, query queued", "name", j.request.String(), "queued", queued)
		return nil
	}
	a.running++
	a.pendMu.Unlock()

	// A slot was reserved above, so Submit only waits for a worker that is
	// already returning to the pool.
	err := a.pool.Submit(func() { a.drain(j) })
	if err != nil {
		a.pendMu.Lock()
		a.running--
		a.pendMu.Unlock()
		a.wg.Done()
		return fmt.Errorf("worker pool: %w", err)
	}
	return nil
}

// drain runs j, then queued jobs until none are left.
func (a *Adapter) drain(j job) {
	for {
		a.runJob(j)

		a.pendMu.Lock()
		if len(a.pending) == 0 {
			a.running--
			a.pendMu.Unlock()
			return
		}
		j = a.pending[0]
		a.pending = a.pending[1:]
		a.pendMu.Unlock()
	}
}

// runJob executes j and queues its completion. A panic drops the active
// entry so the next identical request is processed from scratch.
func (a *Adapter) runJob(j job) {
	defer a.wg.Done()
	defer func() {
		if v := recover(); v != nil {
			a.logger.Error("query worker panic", "name", j.request.String(), "panic", v)
			a.forget(j.request.String())
		}
	}()

	c := a.execute(a.ctx, j)
	if !a.queue.Enqueue(c) {
		a.logger.Warn("completion dropped, queue closed", "response", j.responsePrefix.String())
	}
}

// forget drops the active entry for key so the next identical request is
// processed from scratch.
func (a *Adapter) forget(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.active, key)
}

// markDone records that the result for key has been published.
func (a *Adapter) markDone(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if aq, ok := a.active[key]; ok {
		aq.done = true
	}
}

// Done reports whether the request named request has been answered with
// published segments.
func (a *Adapter) Done(request name.Name) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	aq, ok := a.active[request.String()]
	return ok && aq.done
}

func (a *Adapter) publish(ctx context.Context, p transport.Packet) {
	if err := a.face.Publish(ctx, p); err != nil {
		a.logger.Error("publish failed", "name", p.Name.String(), "error", err)
	}
}

// handleSegmentRequest answers a request under <prefix>/query-results from
// the segment cache. A miss publishes nothing.
func (a *Adapter) handleSegmentRequest(ctx context.Context, request name.Name) {
	p, ok := a.cache.Match(request)
	metrics.ObserveCacheLookup(ok)
	if !ok {
		a.logger.Debug("segment not cached", "name", request.String())
		return
	}
	a.publish(ctx, p)
}

package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/catalog/internal/adapter"
	"github.com/roach88/catalog/internal/catalogsync"
	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/query"
	"github.com/roach88/catalog/internal/schema"
	"github.com/roach88/catalog/internal/store"
	"github.com/roach88/catalog/internal/testutil"
	"github.com/roach88/catalog/internal/transport"
)

// StepTimeout bounds each flow step.
const StepTimeout = 5 * time.Second

// epoch is the fixed time of the face clock; nothing published during a
// scenario goes stale.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// recordingBackend records every statement sent to the store.
type recordingBackend struct {
	backend adapter.Backend

	mu    sync.Mutex
	calls []string
}

func (b *recordingBackend) Execute(ctx context.Context, sql string) ([]store.Row, error) {
	b.mu.Lock()
	b.calls = append(b.calls, sql)
	b.mu.Unlock()
	return b.backend.Execute(ctx, sql)
}

// since returns the statements recorded after the first n.
func (b *recordingBackend) since(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls[n:])
}

func (b *recordingBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

// Harness is the scenario execution environment.
type Harness struct {
	store   *store.Store
	face    *transport.MemFace
	backend *recordingBackend
	adapter *adapter.Adapter
	prefix  name.Name
	logger  *slog.Logger

	mu        sync.Mutex
	announced []string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create the CMIP5 table and load the entries
//  2. Start a Query Adapter over an in-memory face
//  3. Execute flow steps with expect validation
//  4. Stop the adapter and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := testutil.DiscardLogger()

	prefix, err := name.Parse(scenario.Prefix)
	if err != nil {
		return nil, fmt.Errorf("prefix: %w", err)
	}

	st, err := store.Open(ctx, store.DriverSQLite, ":memory:", store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	binding := schema.CMIP5()
	if err := loadEntries(ctx, st, binding, scenario); err != nil {
		return nil, err
	}

	clock := testutil.NewManualClock(epoch)
	face := transport.NewMemFace(
		transport.WithSigner(transport.NewSigner(name.MustParse(DefaultSigningID))),
		transport.WithClock(clock.Now),
		transport.WithRecording(),
		transport.WithLogger(logger),
	)

	group := catalogsync.NewLocalGroup(catalogsync.WithLogger(logger))
	member, err := group.Join(scenario.Name)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:   st,
		face:    face,
		backend: &recordingBackend{backend: st},
		prefix:  prefix,
		logger:  logger,
	}
	stopListening := member.OnUpdate(func(u catalogsync.Update) {
		h.mu.Lock()
		h.announced = append(h.announced, u.ID)
		h.mu.Unlock()
	})
	defer stopListening()

	h.adapter, err = adapter.New(face, h.backend, member, binding,
		adapter.WithPrefix(prefix),
		adapter.WithCatalogID(scenario.CatalogID),
		adapter.WithSigningID(name.MustParse(DefaultSigningID)),
		adapter.WithPageSize(scenario.PageSize),
		adapter.WithWorkers(2),
		adapter.WithEscaping(scenario.EscapeValues),
		adapter.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}
	if err := h.adapter.Register(); err != nil {
		return nil, fmt.Errorf("failed to register adapter: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- h.adapter.Run(runCtx) }()

	result := NewResult()
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}

	h.adapter.Close()
	if err := <-runDone; err != nil {
		return nil, fmt.Errorf("adapter loop: %w", err)
	}

	result.Published = len(face.Published())
	result.CacheEntries = h.adapter.CacheLen()
	for _, sql := range h.backend.since(0) {
		result.Executed[sql]++
	}
	h.mu.Lock()
	result.Announced = slices.Clone(h.announced)
	h.mu.Unlock()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func loadEntries(ctx context.Context, st *store.Store, b schema.Binding, scenario *Scenario) error {
	if err := st.EnsureCatalogTable(ctx, b); err != nil {
		return fmt.Errorf("failed to create catalog table: %w", err)
	}
	entriesPrefix, err := name.Parse(scenario.EntriesPrefix)
	if err != nil {
		return fmt.Errorf("entries_prefix: %w", err)
	}

	entries := make([]store.Entry, 0, len(scenario.Entries))
	for i, uri := range scenario.Entries {
		e, err := store.ParseEntry(entriesPrefix, b, uri)
		if err != nil {
			return fmt.Errorf("entries[%d]: %w", i, err)
		}
		entries = append(entries, e)
	}
	if _, err := st.InsertBatch(ctx, b, entries); err != nil {
		return fmt.Errorf("failed to load entries: %w", err)
	}
	return nil
}

// executeStep sends one query and records what came back. Failures are
// recorded on result; the flow continues with the next step.
func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) {
	ctx, cancel := context.WithTimeout(ctx, StepTimeout)
	defer cancel()

	request := adapter.QueryRequest(h.prefix, step.Query)
	before := h.backend.count()
	trace := StepTrace{Query: step.Query}
	defer func() {
		trace.SQL = h.backend.since(before)
		result.Steps = append(result.Steps, trace)
	}()

	if step.Expect != nil && step.Expect.Rejected != "" {
		h.executeRejected(ctx, i, request, step.Expect.Rejected, &trace, result)
		return
	}

	res, err := adapter.Fetch(ctx, h.face, h.prefix, request)
	if res != nil {
		trace.Ack = string(res.Ack.Content)
	}
	if err != nil {
		result.AddError(fmt.Sprintf("flow[%d]: %v", i, err))
		return
	}

	for _, p := range res.Segments {
		trace.Segments = append(trace.Segments, SegmentTrace{
			Name:     p.Name[h.prefix.Len():].String(),
			Final:    p.IsFinal(),
			Content:  p.Content,
			Verified: transport.Verify(p),
		})
		if !transport.Verify(p) {
			result.AddError(fmt.Sprintf("flow[%d]: segment %s has an invalid signature", i, p.Name))
		}
	}
	trace.ResultCount = res.ResultCount
	trace.Results = res.Items
	trace.LastComponent = res.LastComponent

	h.logger.Debug("step completed", "step", i, "response", res.ResponsePrefix.String())

	if step.Expect == nil {
		return
	}
	for _, msg := range checkExpect(step.Expect, res) {
		result.AddError(fmt.Sprintf("flow[%d]: %s", i, msg))
	}
}

// executeRejected checks that the request is acknowledged and that running
// its query fails with the expected code.
func (h *Harness) executeRejected(ctx context.Context, i int, request name.Name, want string, trace *StepTrace, result *Result) {
	ack, err := h.face.Express(ctx, request)
	if err != nil {
		result.AddError(fmt.Sprintf("flow[%d]: no acknowledgement: %v", i, err))
		return
	}
	trace.Ack = string(ack.Content)

	rel, err := name.Parse(trace.Ack)
	if err != nil {
		result.AddError(fmt.Sprintf("flow[%d]: acknowledgement: %v", i, err))
		return
	}

	q, qerr := query.Parse(request)
	if qerr == nil {
		_, qerr = h.adapter.RunQuery(ctx, q, h.prefix.AppendName(rel))
	}
	if qerr == nil {
		result.AddError(fmt.Sprintf("flow[%d]: expected rejection %s, query succeeded", i, want))
		return
	}

	code, _ := query.CodeOf(qerr)
	trace.Rejected = string(code)
	if string(code) != want {
		result.AddError(fmt.Sprintf("flow[%d]: expected rejection %s, got %v", i, want, qerr))
	}
}

// checkExpect compares a fetched response with an expect clause.
func checkExpect(exp *ExpectClause, res *adapter.Result) []string {
	var errs []string

	if exp.ResultCount != nil && *exp.ResultCount != res.ResultCount {
		errs = append(errs, fmt.Sprintf("result_count: expected %d, got %d", *exp.ResultCount, res.ResultCount))
	}
	if exp.Segments != nil && *exp.Segments != len(res.Segments) {
		errs = append(errs, fmt.Sprintf("segments: expected %d, got %d", *exp.Segments, len(res.Segments)))
	}
	if exp.Results != nil && !slices.Equal(exp.Results, res.Items) {
		errs = append(errs, fmt.Sprintf("results: expected %v, got %v", exp.Results, res.Items))
	}
	if exp.ResultSet != nil {
		want := slices.Clone(exp.ResultSet)
		slices.Sort(want)
		got := slices.Clone(res.Items)
		slices.Sort(got)
		if !slices.Equal(want, got) {
			errs = append(errs, fmt.Sprintf("result_set: expected %v, got %v", want, got))
		}
	}
	if exp.LastComponent != nil && *exp.LastComponent != res.LastComponent {
		errs = append(errs, fmt.Sprintf("last_component: expected %t, got %t", *exp.LastComponent, res.LastComponent))
	}
	if exp.Version != nil {
		v, err := res.ResponsePrefix.At(-1).ToVersion()
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("version: %v", err))
		case v != *exp.Version:
			errs = append(errs, fmt.Sprintf("version: expected %d, got %d", *exp.Version, v))
		}
	}
	return errs
}

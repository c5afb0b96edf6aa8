package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/catalog/internal/store"
)

// ErrUnknownSQL is returned by FakeBackend for SQL it has no rows for and
// no default.
var ErrUnknownSQL = errors.New("fake backend: unknown sql")

// FakeBackend answers SQL from a fixed table and records every call.
//
// Calls may be held on a gate to keep executions in flight while a test
// issues more requests.
type FakeBackend struct {
	mu       sync.Mutex
	results  map[string][]store.Row
	failures map[string]error
	fallback []store.Row
	calls    []string
	gate     chan struct{}
}

// NewFakeBackend creates an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		results:  make(map[string][]store.Row),
		failures: make(map[string]error),
	}
}

// SetRows answers sql with one single-column row per value.
func (b *FakeBackend) SetRows(sql string, values ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[sql] = Rows(values...)
	delete(b.failures, sql)
}

// SetError makes sql fail with err.
func (b *FakeBackend) SetError(sql string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[sql] = err
}

// SetDefault answers any unknown SQL with values.
func (b *FakeBackend) SetDefault(values ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fallback = Rows(values...)
}

// Hold makes subsequent calls block until Release.
func (b *FakeBackend) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
}

// Release unblocks held calls.
func (b *FakeBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate != nil {
		close(b.gate)
		b.gate = nil
	}
}

// Execute implements the adapter backend.
func (b *FakeBackend) Execute(ctx context.Context, sql string) ([]store.Row, error) {
	b.mu.Lock()
	b.calls = append(b.calls, sql)
	gate := b.gate
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.failures[sql]; ok {
		return nil, err
	}
	if rows, ok := b.results[sql]; ok {
		return rows, nil
	}
	if b.fallback != nil {
		return b.fallback, nil
	}
	return nil, ErrUnknownSQL
}

// Calls returns every SQL string executed, in order.
func (b *FakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	copy(out, b.calls)
	return out
}

// Rows builds single-column rows.
func Rows(values ...string) []store.Row {
	rows := make([]store.Row, len(values))
	for i, v := range values {
		rows[i] = store.Row{v}
	}
	return rows
}

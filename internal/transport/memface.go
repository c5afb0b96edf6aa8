package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/catalog/internal/name"
)

// ErrNoRoute is returned by Express when no handler covers the request and
// no stored packet satisfies it.
var ErrNoRoute = errors.New("no route for name")

// Handler receives a request name. It answers, if at all, by publishing.
type Handler func(ctx context.Context, request name.Name)

// Face is the transport collaborator used by the query adapter.
type Face interface {
	// RegisterHandler routes requests under prefix to h.
	RegisterHandler(prefix name.Name, h Handler) error

	// Publish signs p and makes it available to requesters.
	Publish(ctx context.Context, p Packet) error
}

type registration struct {
	prefix  name.Name
	handler Handler
}

type storedPacket struct {
	packet   Packet
	storedAt time.Time
}

type waiter struct {
	request name.Name
	ch      chan Packet
}

// MemFace is an in-process Face with a content store.
//
// Requests are dispatched one at a time: handlers never run concurrently
// with each other. Publish may be called from any goroutine.
type MemFace struct {
	signer    *Signer
	logger    *slog.Logger
	now       func() time.Time
	recording bool

	dispatchMu sync.Mutex

	mu        sync.Mutex
	handlers  []registration
	store     map[string]storedPacket
	order     []string
	waiters   []*waiter
	published []Packet
}

// MemFaceOption configures a MemFace.
type MemFaceOption func(*MemFace)

// WithSigner signs every published packet with s.
func WithSigner(s Signer) MemFaceOption {
	return func(f *MemFace) {
		f.signer = &s
	}
}

// WithLogger sets the face logger.
func WithLogger(l *slog.Logger) MemFaceOption {
	return func(f *MemFace) {
		f.logger = l
	}
}

// WithClock sets the time source used for freshness checks.
func WithClock(now func() time.Time) MemFaceOption {
	return func(f *MemFace) {
		f.now = now
	}
}

// WithRecording keeps a log of every Publish call, returned by Published.
func WithRecording() MemFaceOption {
	return func(f *MemFace) {
		f.recording = true
	}
}

// NewMemFace creates an empty MemFace.
func NewMemFace(opts ...MemFaceOption) *MemFace {
	f := &MemFace{
		logger: slog.Default(),
		now:    time.Now,
		store:  make(map[string]storedPacket),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RegisterHandler routes requests under prefix to h. Registering the same
// prefix twice is an error.
func (f *MemFace) RegisterHandler(prefix name.Name, h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler for %s", prefix)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.handlers {
		if r.prefix.Equal(prefix) {
			return fmt.Errorf("handler already registered for %s", prefix)
		}
	}
	f.handlers = append(f.handlers, registration{prefix: prefix, handler: h})
	f.logger.Debug("handler registered", "prefix", prefix.String())
	return nil
}

// Publish signs p, stores it, and satisfies pending requests.
// Re-publishing a name replaces the stored packet.
func (f *MemFace) Publish(ctx context.Context, p Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Name.Len() == 0 {
		return fmt.Errorf("cannot publish packet with empty name")
	}
	if f.signer != nil {
		p = f.signer.Sign(p)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := p.Name.String()
	if _, exists := f.store[key]; !exists {
		f.order = append(f.order, key)
	}
	f.store[key] = storedPacket{packet: p, storedAt: f.now()}
	if f.recording {
		f.published = append(f.published, p)
	}

	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if w.request.IsPrefixOf(p.Name) {
			w.ch <- p
			continue
		}
		remaining = append(remaining, w)
	}
	f.waiters = remaining

	return nil
}

// Express requests n and blocks until a packet satisfies it or ctx is done.
//
// A fresh stored packet whose name has n as prefix is returned immediately
// (the earliest stored wins). Otherwise the request is dispatched to the
// handler with the longest matching prefix.
func (f *MemFace) Express(ctx context.Context, n name.Name) (Packet, error) {
	f.mu.Lock()
	if p, ok := f.lookupLocked(n); ok {
		f.mu.Unlock()
		return p, nil
	}
	h, ok := f.routeLocked(n)
	if !ok {
		f.mu.Unlock()
		return Packet{}, fmt.Errorf("%w: %s", ErrNoRoute, n)
	}
	w := &waiter{request: n, ch: make(chan Packet, 1)}
	f.waiters = append(f.waiters, w)
	f.mu.Unlock()

	f.dispatchMu.Lock()
	h(ctx, n)
	f.dispatchMu.Unlock()

	select {
	case p := <-w.ch:
		return p, nil
	case <-ctx.Done():
		f.removeWaiter(w)
		return Packet{}, ctx.Err()
	}
}

// Lookup returns a fresh stored packet satisfying n without dispatching.
func (f *MemFace) Lookup(n name.Name) (Packet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookupLocked(n)
}

// Published returns every packet published so far, in order.
// Only populated when the face was created WithRecording.
func (f *MemFace) Published() []Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Packet, len(f.published))
	copy(out, f.published)
	return out
}

func (f *MemFace) lookupLocked(n name.Name) (Packet, bool) {
	now := f.now()
	if sp, ok := f.store[n.String()]; ok && fresh(sp, now) {
		return sp.packet, true
	}
	for _, key := range f.order {
		sp := f.store[key]
		if n.IsPrefixOf(sp.packet.Name) && fresh(sp, now) {
			return sp.packet, true
		}
	}
	return Packet{}, false
}

func (f *MemFace) routeLocked(n name.Name) (Handler, bool) {
	var best *registration
	for i := range f.handlers {
		r := &f.handlers[i]
		if r.prefix.IsPrefixOf(n) && (best == nil || r.prefix.Len() > best.prefix.Len()) {
			best = r
		}
	}
	if best == nil {
		return nil, false
	}
	return best.handler, true
}

func (f *MemFace) removeWaiter(target *waiter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, w := range f.waiters {
		if w == target {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			return
		}
	}
}

func fresh(sp storedPacket, now time.Time) bool {
	return sp.packet.Freshness == 0 || now.Before(sp.storedAt.Add(sp.packet.Freshness))
}

// Package catalogsync announces completed query results to the other
// members of a catalog group.
//
// The query adapter only needs Synchronizer.NotifyUpdate. LocalGroup is an
// in-process group: every member sees every other member's updates, and
// each member keeps a state vector of the highest sequence number seen per
// origin.
package catalogsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Synchronizer is the synchronization collaborator used by the adapter.
type Synchronizer interface {
	// NotifyUpdate announces that the result named id is available.
	NotifyUpdate(ctx context.Context, id string) error
}

// Update is one announcement.
type Update struct {
	// ID is the announced identifier (a response-name-prefix).
	ID string

	// Origin is the member that announced it.
	Origin string

	// Seq is the origin's sequence number for this update, starting at 1.
	Seq uint64

	// UpdateID uniquely identifies the announcement.
	UpdateID string
}

// LocalGroup is an in-process broadcast group.
type LocalGroup struct {
	mu      sync.RWMutex
	members map[string]*Member
	ids     Generator
	logger  *slog.Logger
}

// GroupOption configures a LocalGroup.
type GroupOption func(*LocalGroup)

// WithGenerator sets the update id generator.
func WithGenerator(g Generator) GroupOption {
	return func(lg *LocalGroup) {
		lg.ids = g
	}
}

// WithLogger sets the group logger.
func WithLogger(l *slog.Logger) GroupOption {
	return func(lg *LocalGroup) {
		lg.logger = l
	}
}

// NewLocalGroup creates an empty group.
func NewLocalGroup(opts ...GroupOption) *LocalGroup {
	g := &LocalGroup{
		members: make(map[string]*Member),
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Join adds a member with the given id. Joining twice is an error.
func (g *LocalGroup) Join(id string) (*Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.members[id]; ok {
		return nil, fmt.Errorf("member %q already joined", id)
	}
	m := &Member{
		id:        id,
		group:     g,
		state:     make(map[string]uint64),
		listeners: make(map[int]func(Update)),
	}
	g.members[id] = m
	g.logger.Debug("member joined", "member", id)
	return m, nil
}

// Leave removes a member. Its listeners stop receiving updates.
func (g *LocalGroup) Leave(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, id)
}

func (g *LocalGroup) broadcast(u Update) {
	g.mu.RLock()
	members := make([]*Member, 0, len(g.members))
	for _, m := range g.members {
		members = append(members, m)
	}
	g.mu.RUnlock()

	for _, m := range members {
		m.receive(u)
	}
}

// Member is one participant of a LocalGroup.
type Member struct {
	id    string
	group *LocalGroup

	mu        sync.Mutex
	seq       uint64
	state     map[string]uint64
	listeners map[int]func(Update)
	nextID    int
}

// ID returns the member id.
func (m *Member) ID() string {
	return m.id
}

// NotifyUpdate announces id to every member of the group, including m.
func (m *Member) NotifyUpdate(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	u := Update{
		ID:       id,
		Origin:   m.id,
		Seq:      seq,
		UpdateID: m.group.ids.Generate(),
	}
	m.group.logger.Debug("sync update", "member", m.id, "id", id, "seq", seq)
	m.group.broadcast(u)
	return nil
}

// OnUpdate registers cb for every update the member receives.
// The returned function unregisters it.
func (m *Member) OnUpdate(cb func(Update)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = cb

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// State returns a copy of the member's state vector: origin -> highest seq.
func (m *Member) State() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]uint64, len(m.state))
	for k, v := range m.state {
		out[k] = v
	}
	return out
}

func (m *Member) receive(u Update) {
	m.mu.Lock()
	if u.Seq > m.state[u.Origin] {
		m.state[u.Origin] = u.Seq
	}
	listeners := make([]func(Update), 0, len(m.listeners))
	for _, cb := range m.listeners {
		listeners = append(listeners, cb)
	}
	m.mu.Unlock()

	for _, cb := range listeners {
		cb(u)
	}
}

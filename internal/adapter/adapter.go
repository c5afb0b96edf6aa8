package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/catalog/internal/cache"
	"github.com/roach88/catalog/internal/catalogsync"
	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/querysql"
	"github.com/roach88/catalog/internal/schema"
	"github.com/roach88/catalog/internal/store"
	"github.com/roach88/catalog/internal/transport"
)

// Name components of the request and response namespaces.
const (
	ComponentQuery        = "query"
	ComponentQueryResults = "query-results"
)

// Defaults.
const (
	DefaultPageSize         = 25
	DefaultWorkers          = 8
	DefaultAckFreshness     = 10 * time.Second
	DefaultSegmentFreshness = time.Hour
)

// ErrClosed is returned by operations on a closed Adapter.
var ErrClosed = errors.New("adapter closed")

// Backend executes translated SQL and returns rows in backend order.
// *store.Store implements it.
type Backend interface {
	Execute(ctx context.Context, sql string) ([]store.Row, error)
}

// activeQuery tracks a request that has been acknowledged.
type activeQuery struct {
	ack            transport.Packet
	responsePrefix name.Name
	done           bool
}

// Adapter is the catalog Query Adapter.
//
// Thread-safety model:
//   - HandleRequest, RunQuery, Lookup: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Adapter struct {
	face       transport.Face
	backend    Backend
	syncer     catalogsync.Synchronizer
	translator *querysql.Translator
	cache      *cache.Cache
	logger     *slog.Logger
	ids        catalogsync.Generator

	prefix           name.Name
	catalogID        string
	signingID        name.Name
	pageSize         int
	workers          int
	cacheMaxEntries  int
	escape           bool
	ackFreshness     time.Duration
	segmentFreshness time.Duration

	version *versionClock
	queue   *completionQueue
	pool    *ants.Pool
	group   singleflight.Group

	// pending holds accepted jobs while every worker is busy. running
	// counts workers that are draining jobs; it never exceeds workers.
	pendMu  sync.Mutex
	pending []job
	running int

	// ctx bounds backend executions of accepted requests. It outlives the
	// request that started them and is cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[string]*activeQuery
	closed bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPrefix sets the catalog-service name prefix.
func WithPrefix(p name.Name) Option {
	return func(a *Adapter) {
		a.prefix = p
	}
}

// WithCatalogID sets the catalog id used in response names. When unset a
// UUIDv7 is generated.
func WithCatalogID(id string) Option {
	return func(a *Adapter) {
		a.catalogID = id
	}
}

// WithSigningID records the signing identity of the face publishing for
// this adapter.
func WithSigningID(id name.Name) Option {
	return func(a *Adapter) {
		a.signingID = id
	}
}

// WithPageSize sets the number of rows per reply segment.
func WithPageSize(n int) Option {
	return func(a *Adapter) {
		a.pageSize = n
	}
}

// WithWorkers sets the size of the backend worker pool.
func WithWorkers(n int) Option {
	return func(a *Adapter) {
		a.workers = n
	}
}

// WithCacheMaxEntries bounds the segment cache. Zero means unbounded.
func WithCacheMaxEntries(n int) Option {
	return func(a *Adapter) {
		a.cacheMaxEntries = n
	}
}

// WithEscaping enables SQL value escaping in the translator.
func WithEscaping(enabled bool) Option {
	return func(a *Adapter) {
		a.escape = enabled
	}
}

// WithFreshness sets the freshness periods of acknowledgements and segments.
func WithFreshness(ack, segment time.Duration) Option {
	return func(a *Adapter) {
		a.ackFreshness = ack
		a.segmentFreshness = segment
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// WithIDGenerator sets the generator used for the catalog id.
func WithIDGenerator(g catalogsync.Generator) Option {
	return func(a *Adapter) {
		a.ids = g
	}
}

// New creates an Adapter. syncer may be nil, in which case completions are
// not announced.
func New(
	face transport.Face,
	backend Backend,
	syncer catalogsync.Synchronizer,
	binding schema.Binding,
	opts ...Option,
) (*Adapter, error) {
	if face == nil {
		return nil, fmt.Errorf("adapter needs a face")
	}
	if backend == nil {
		return nil, fmt.Errorf("adapter needs a backend")
	}
	if binding.IsZero() {
		return nil, fmt.Errorf("adapter needs a schema binding")
	}

	a := &Adapter{
		face:             face,
		backend:          backend,
		syncer:           syncer,
		logger:           slog.Default(),
		ids:              catalogsync.UUIDv7Generator{},
		pageSize:         DefaultPageSize,
		workers:          DefaultWorkers,
		ackFreshness:     DefaultAckFreshness,
		segmentFreshness: DefaultSegmentFreshness,
		version:          newVersionClock(0),
		queue:            newCompletionQueue(),
		active:           make(map[string]*activeQuery),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", a.pageSize)
	}
	if a.workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", a.workers)
	}
	if a.catalogID == "" {
		a.catalogID = a.ids.Generate()
	}

	pool, err := ants.NewPool(a.workers, ants.WithPanicHandler(func(v any) {
		a.logger.Error("query worker panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	a.pool = pool
	a.translator = querysql.NewTranslator(binding, querysql.WithEscaping(a.escape))
	a.cache = cache.New(a.cacheMaxEntries)
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a, nil
}

// Prefix returns the catalog-service name prefix. Empty until configured.
func (a *Adapter) Prefix() name.Name {
	return a.prefix
}

// SigningID returns the configured signing identity. Empty until configured.
func (a *Adapter) SigningID() name.Name {
	return a.signingID
}

// CatalogID returns the catalog id used in response names.
func (a *Adapter) CatalogID() string {
	return a.catalogID
}

// Binding returns the schema binding queries are translated against.
func (a *Adapter) Binding() schema.Binding {
	return a.translator.Binding()
}

// QueryPrefix returns <prefix>/query.
func (a *Adapter) QueryPrefix() name.Name {
	return a.prefix.AppendString(ComponentQuery)
}

// ResultsPrefix returns <prefix>/query-results.
func (a *Adapter) ResultsPrefix() name.Name {
	return a.prefix.AppendString(ComponentQueryResults)
}

// Register installs the query and segment handlers on the face.
func (a *Adapter) Register() error {
	if a.prefix.Len() == 0 {
		return fmt.Errorf("adapter prefix is not configured")
	}
	if err := a.face.RegisterHandler(a.QueryPrefix(), a.HandleRequest); err != nil {
		return fmt.Errorf("register query handler: %w", err)
	}
	if err := a.face.RegisterHandler(a.ResultsPrefix(), a.handleSegmentRequest); err != nil {
		return fmt.Errorf("register segment handler: %w", err)
	}
	a.logger.Info("adapter registered",
		"prefix", a.prefix.String(),
		"catalog_id", a.catalogID,
		"table", a.Binding().Table(),
	)
	return nil
}

// Lookup returns the cached segment named exactly n.
func (a *Adapter) Lookup(n name.Name) (transport.Packet, bool) {
	return a.cache.Lookup(n)
}

// CacheLen returns the number of cached segments.
func (a *Adapter) CacheLen() int {
	return a.cache.Len()
}

// Close stops accepting requests, waits for running backend executions,
// and releases the worker pool. Completions still queued are published if
// Run is active. Close is idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.wg.Wait()
	a.pool.Release()
	a.queue.Close()
	a.cancel()
	a.logger.Debug("adapter closed")
	return nil
}

package cli

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/catalog/internal/adapter"
	"github.com/roach88/catalog/internal/catalogsync"
	"github.com/roach88/catalog/internal/config"
	"github.com/roach88/catalog/internal/store"
	"github.com/roach88/catalog/internal/transport"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string

	// IDGenerator overrides the catalog id generator (for testing).
	IDGenerator catalogsync.Generator
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve catalog queries over HTTP",
		Long: `Start the catalog Query Adapter.

The adapter answers query requests under <prefix>/query and serves reply
segments under <prefix>/query-results. Data is exposed at GET /data/<name>,
Prometheus metrics at GET /metrics.

Example:
  catalog serve --config catalog.yaml
  catalog serve --listen 127.0.0.1:9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if opts.Listen != "" {
				cfg.Listen = opts.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, opts, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "HTTP listen address (overrides config)")

	return cmd
}

// service is a running catalog: store, face and adapter wired together.
type service struct {
	store   *store.Store
	face    *transport.MemFace
	group   *catalogsync.LocalGroup
	member  *catalogsync.Member
	adapter *adapter.Adapter
}

// newService opens the store and builds a registered adapter over an
// in-memory face.
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger, ids catalogsync.Generator) (*service, error) {
	binding, err := cfg.Binding()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid schema binding", err)
	}
	prefix, err := cfg.PrefixName()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid prefix", err)
	}
	signing, err := cfg.SigningName()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid signing id", err)
	}

	logger.Info("opening database", "driver", cfg.Database.Driver)
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	if err := st.EnsureCatalogTable(ctx, binding); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to provision catalog table", err)
	}

	face := transport.NewMemFace(
		transport.WithSigner(transport.NewSigner(signing)),
		transport.WithLogger(logger),
	)

	groupOpts := []catalogsync.GroupOption{catalogsync.WithLogger(logger)}
	if ids != nil {
		groupOpts = append(groupOpts, catalogsync.WithGenerator(ids))
	}
	group := catalogsync.NewLocalGroup(groupOpts...)
	member, err := group.Join(prefix.String())
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to join sync group", err)
	}

	adapterOpts := []adapter.Option{
		adapter.WithPrefix(prefix),
		adapter.WithCatalogID(cfg.CatalogID),
		adapter.WithSigningID(signing),
		adapter.WithPageSize(cfg.PageSize),
		adapter.WithWorkers(cfg.Workers),
		adapter.WithCacheMaxEntries(cfg.CacheMaxEntries),
		adapter.WithEscaping(cfg.EscapeValues),
		adapter.WithLogger(logger),
	}
	if ids != nil {
		adapterOpts = append(adapterOpts, adapter.WithIDGenerator(ids))
	}
	a, err := adapter.New(face, st, member, binding, adapterOpts...)
	if err != nil {
		group.Leave(member.ID())
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create adapter", err)
	}
	if err := a.Register(); err != nil {
		a.Close()
		group.Leave(member.ID())
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to register adapter", err)
	}

	return &service{store: st, face: face, group: group, member: member, adapter: a}, nil
}

// Close stops the adapter and closes the store.
func (s *service) Close() error {
	err := s.adapter.Close()
	s.group.Leave(s.member.ID())
	return errors.Join(err, s.store.Close())
}

func runServe(ctx context.Context, opts *ServeOptions, cfg *config.Config) error {
	logger := opts.Logger()

	svc, err := newService(ctx, cfg, logger, opts.IDGenerator)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("catalog ready",
		"prefix", svc.adapter.Prefix().String(),
		"catalog_id", svc.adapter.CatalogID(),
		"table", cfg.Table,
		"listen", cfg.Listen,
	)

	httpFace := transport.NewHTTPFace(svc.face, transport.WithHTTPLogger(logger))

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return httpFace.Serve(egctx, cfg.Listen)
	})
	eg.Go(func() error {
		err := svc.adapter.Run(egctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	if err := eg.Wait(); err != nil {
		return WrapExitError(ExitFailure, "serve failed", err)
	}
	logger.Info("catalog stopped")
	return nil
}

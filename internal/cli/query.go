package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/adapter"
	"github.com/roach88/catalog/internal/catalogsync"
	"github.com/roach88/catalog/internal/querysql"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	Timeout  time.Duration

	// IDGenerator overrides the catalog id generator (for testing).
	IDGenerator catalogsync.Generator
}

// QueryResult is the JSON form of a query response.
type QueryResult struct {
	Request        string   `json:"request"`
	ResponsePrefix string   `json:"responsePrefix"`
	ResultCount    int      `json:"resultCount"`
	Segments       int      `json:"segments"`
	Results        []string `json:"results"`
	LastComponent  bool     `json:"lastComponent,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <query-json>",
		Short: "Run one query against the local catalog",
		Long: `Run one query through an in-process Query Adapter: the request is
acknowledged, executed against the configured database and its reply
segments are fetched until the final one.

Example:
  catalog query '{"name":"test"}' --db ./catalog.db
  catalog query '{"?":"/CMIP5/output1/"}' --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database DSN (overrides config)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "how long to wait for the reply")

	return cmd
}

func runQuery(opts *QueryOptions, payload string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.Database.DSN = opts.Database
	}
	out := opts.formatter(cmd)

	// Rejected queries are acknowledged but never answered; report them
	// up front instead of waiting for the timeout.
	binding, err := cfg.Binding()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid schema binding", err)
	}
	tr, err := querysql.NewTranslator(binding, querysql.WithEscaping(cfg.EscapeValues)).TranslatePayload([]byte(payload))
	if err != nil {
		_ = out.QueryError(err)
		return WrapExitError(ExitFailure, "query rejected", err)
	}
	out.VerboseLog("sql: %s", tr.SQL)

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	logger := opts.Logger()
	svc, err := newService(ctx, cfg, logger, opts.IDGenerator)
	if err != nil {
		return err
	}
	defer svc.Close()

	runDone := make(chan error, 1)
	go func() { runDone <- svc.adapter.Run(ctx) }()

	start := time.Now()
	request := adapter.QueryRequest(svc.adapter.Prefix(), payload)
	res, err := adapter.Fetch(ctx, svc.face, svc.adapter.Prefix(), request)
	elapsed := time.Since(start)

	svc.adapter.Close()
	if rerr := <-runDone; rerr != nil && !errors.Is(rerr, context.Canceled) && !errors.Is(rerr, context.DeadlineExceeded) {
		logger.Warn("adapter loop stopped", "error", rerr)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return WrapExitError(ExitFailure, fmt.Sprintf("no reply within %s", opts.Timeout), err)
		}
		return WrapExitError(ExitFailure, "query failed", err)
	}

	return writeResult(opts.formatter(cmd), request.String(), res, tr.Dialect.String(),
		fmt.Sprintf("(%s)", elapsed.Round(time.Millisecond)))
}

// writeResult prints a fetched query response: a JSON QueryResult, or a
// table of rows followed by a summary line.
func writeResult(out *OutputFormatter, request string, res *adapter.Result, column, suffix string) error {
	if out.Format == "json" {
		results := res.Items
		if results == nil {
			results = []string{}
		}
		return out.Success(QueryResult{
			Request:        request,
			ResponsePrefix: res.ResponsePrefix.String(),
			ResultCount:    res.ResultCount,
			Segments:       len(res.Segments),
			Results:        results,
			LastComponent:  res.LastComponent,
		})
	}

	rows := make([][]any, len(res.Items))
	for i, item := range res.Items {
		rows[i] = []any{i + 1, item}
	}
	if err := out.Table([]string{"#", column}, rows); err != nil {
		return err
	}
	fmt.Fprintf(out.Writer, "%s %s in %s %s %s\n",
		humanize.Comma(int64(res.ResultCount)),
		plural(res.ResultCount, "result", "results"),
		humanize.Comma(int64(len(res.Segments))),
		plural(len(res.Segments), "segment", "segments"),
		suffix,
	)
	if res.LastComponent {
		fmt.Fprintln(out.Writer, "last path component reached")
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

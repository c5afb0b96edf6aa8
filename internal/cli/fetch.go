package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/adapter"
	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/transport"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Addr    string
	Query   bool
	Timeout time.Duration

	// Client overrides the HTTP client (for testing).
	Client *http.Client
}

// PacketOutput is the JSON form of a fetched packet.
type PacketOutput struct {
	Name         string `json:"name"`
	FinalBlockID string `json:"finalBlockId,omitempty"`
	FreshnessMs  int64  `json:"freshnessMs,omitempty"`
	Signer       string `json:"signer,omitempty"`
	Verified     bool   `json:"verified"`
	Content      string `json:"content"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch <name | query-json>",
		Short: "Fetch data from a running catalog",
		Long: `Fetch a named packet from a catalog served by "catalog serve".

With --query the argument is a JSON query: it is sent under the configured
prefix and every reply segment is fetched.

Example:
  catalog fetch /catalog/query-results/<id>/<query>/%FD%01/%00%00
  catalog fetch --query '{"name":"test"}' --addr http://localhost:8080`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			client := transport.NewHTTPClient(opts.Addr, opts.Client)
			if opts.Query {
				return fetchQuery(ctx, opts, client, args[0], cmd)
			}
			return fetchPacket(ctx, opts, client, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "http://localhost:8080", "catalog HTTP address")
	cmd.Flags().BoolVar(&opts.Query, "query", false, "treat the argument as a JSON query and fetch all segments")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	return cmd
}

func fetchPacket(ctx context.Context, opts *FetchOptions, client transport.Expresser, uri string, cmd *cobra.Command) error {
	n, err := name.Parse(uri)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid name", err)
	}
	p, err := client.Express(ctx, n)
	if err != nil {
		return WrapExitError(ExitFailure, "fetch failed", err)
	}

	po := PacketOutput{
		Name:        p.Name.String(),
		FreshnessMs: p.Freshness.Milliseconds(),
		Verified:    transport.Verify(p),
		Content:     string(p.Content),
	}
	if p.IsFinal() {
		po.FinalBlockID = p.FinalBlockID.String()
	}
	if p.SignerID != nil {
		po.Signer = p.SignerID.String()
	}

	out := opts.formatter(cmd)
	if out.Format == "json" {
		return out.Success(po)
	}
	w := out.Writer
	fmt.Fprintf(w, "name:      %s\n", po.Name)
	if po.FinalBlockID != "" {
		fmt.Fprintf(w, "final:     %s\n", po.FinalBlockID)
	}
	if p.Freshness > 0 {
		fmt.Fprintf(w, "freshness: %s\n", p.Freshness)
	}
	if po.Signer != "" {
		fmt.Fprintf(w, "signer:    %s (verified: %t)\n", po.Signer, po.Verified)
	}
	fmt.Fprintf(w, "size:      %s\n\n", humanize.Bytes(uint64(len(p.Content))))
	fmt.Fprintln(w, po.Content)
	return nil
}

func fetchQuery(ctx context.Context, opts *FetchOptions, client transport.Expresser, payload string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	prefix, err := cfg.PrefixName()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid prefix", err)
	}

	request := adapter.QueryRequest(prefix, payload)
	res, err := adapter.Fetch(ctx, client, prefix, request)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}

	return writeResult(opts.formatter(cmd), request.String(), res, "result", "from "+res.ResponsePrefix.String())
}

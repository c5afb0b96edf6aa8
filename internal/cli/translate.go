package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/querysql"
)

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	Escape bool
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <query-json>...",
		Short: "Translate queries to SQL",
		Long: `Translate one or more JSON queries to SQL against the configured schema
binding, without touching the database.

Example:
  catalog translate '{"name":"test"}'
  catalog translate '{"?":"/CMIP5/output1/"}' '{"??":"/CMIP5/"}' --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Escape, "escape", false, "double single quotes in values (overrides config when set)")

	return cmd
}

func runTranslate(opts *TranslateOptions, payloads []string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	binding, err := cfg.Binding()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid schema binding", err)
	}

	escape := cfg.EscapeValues
	if cmd.Flags().Changed("escape") {
		escape = opts.Escape
	}
	tr := querysql.NewTranslator(binding, querysql.WithEscaping(escape))
	out := opts.formatter(cmd)

	rows := make([][]any, 0, len(payloads))
	for _, payload := range payloads {
		t, err := tr.TranslatePayload([]byte(payload))
		if err != nil {
			_ = out.QueryError(err)
			return WrapExitError(ExitFailure, "query rejected", err)
		}
		nextField := ""
		if t.NextField >= 0 {
			nextField = binding.Field(t.NextField)
		}
		rows = append(rows, []any{payload, t.Dialect.String(), t.SQL, nextField, t.Terminal})
		out.VerboseLog("translated %s as %s", payload, t.Dialect)
	}

	return out.Table([]string{"query", "dialect", "sql", "nextField", "terminal"}, rows)
}

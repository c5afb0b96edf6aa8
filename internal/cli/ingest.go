package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/schema"
	"github.com/roach88/catalog/internal/store"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Database string
	Prefix   string
}

// Manifest is the YAML ingest format.
//
//	prefix: /CMIP5
//	names:
//	  - /CMIP5/output1/NOAA/...
type Manifest struct {
	Prefix string   `yaml:"prefix"`
	Names  []string `yaml:"names"`
}

// IngestSummary is the JSON form of an ingest run.
type IngestSummary struct {
	Files    int `json:"files"`
	Names    int `json:"names"`
	Inserted int `json:"inserted"`
	Total    int `json:"total"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Load catalog entries from name lists",
		Long: `Load catalog entries into the configured database.

Each input is either a text file with one content name per line (blank
lines and lines starting with '#' are skipped) or a YAML manifest with
"prefix" and "names" keys. The components of each name after the prefix
are assigned positionally to the schema fields. Names already present are
skipped.

Example:
  catalog ingest --prefix / names.txt
  catalog ingest manifest.yaml --db ./catalog.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database DSN (overrides config)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "/", "name prefix stripped before field assignment (text files)")

	return cmd
}

func runIngest(opts *IngestOptions, files []string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.Database.DSN = opts.Database
	}
	binding, err := cfg.Binding()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid schema binding", err)
	}
	defaultPrefix, err := name.Parse(opts.Prefix)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --prefix", err)
	}

	var entries []store.Entry
	for _, path := range files {
		es, err := readEntries(path, defaultPrefix, binding)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read "+path, err)
		}
		entries = append(entries, es...)
	}

	ctx := cmd.Context()
	logger := opts.Logger()
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.EnsureCatalogTable(ctx, binding); err != nil {
		return WrapExitError(ExitCommandError, "failed to provision catalog table", err)
	}
	inserted, err := st.InsertBatch(ctx, binding, entries)
	if err != nil {
		return WrapExitError(ExitFailure, "ingest failed", err)
	}
	total, err := st.Count(ctx, binding)
	if err != nil {
		return WrapExitError(ExitFailure, "count failed", err)
	}
	logger.Debug("ingest complete", "inserted", inserted, "total", total)

	summary := IngestSummary{Files: len(files), Names: len(entries), Inserted: inserted, Total: total}
	if opts.Format == "json" {
		return opts.formatter(cmd).Success(summary)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ingested %s of %s names from %s %s; %s has %s entries\n",
		humanize.Comma(int64(inserted)),
		humanize.Comma(int64(len(entries))),
		humanize.Comma(int64(len(files))),
		plural(len(files), "file", "files"),
		binding.Table(),
		humanize.Comma(int64(total)),
	)
	return nil
}

// readEntries parses one ingest file.
func readEntries(path string, defaultPrefix name.Name, b schema.Binding) ([]store.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	prefix := defaultPrefix
	var names []string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		m, err := parseManifest(data)
		if err != nil {
			return nil, err
		}
		if m.Prefix != "" {
			if prefix, err = name.Parse(m.Prefix); err != nil {
				return nil, fmt.Errorf("manifest prefix: %w", err)
			}
		}
		names = m.Names
	default:
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			names = append(names, line)
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}

	entries := make([]store.Entry, 0, len(names))
	for i, uri := range names {
		e, err := store.ParseEntry(prefix, b, uri)
		if err != nil {
			return nil, fmt.Errorf("name %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseManifest(data []byte) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

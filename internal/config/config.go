// Package config loads the catalog service configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML,
// JSON or TOML file, and CATALOG_* environment variables (nested keys join
// with '_', so database.dsn is CATALOG_DATABASE_DSN). The result is checked
// against an embedded CUE schema and then semantically, by building the
// Schema Binding and parsing the configured names.
package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"

	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/schema"
	"github.com/roach88/catalog/internal/store"
)

//go:embed config.cue
var schemaCUE string

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "CATALOG"

// Defaults.
const (
	DefaultPrefix    = "/catalog"
	DefaultSigningID = "/catalog/signing"
	DefaultPageSize  = 25
	DefaultWorkers   = 8
	DefaultListen    = ":8080"
	DefaultDSN       = "catalog.db"
)

// Config is the catalog service configuration.
type Config struct {
	// Prefix is the catalog-service name prefix.
	Prefix string `mapstructure:"prefix" json:"prefix"`

	// CatalogID names this catalog in response names. Empty means a UUIDv7
	// is generated at startup.
	CatalogID string `mapstructure:"catalogId" json:"catalogId"`

	// SigningID is the identity published packets are signed with.
	SigningID string `mapstructure:"signingId" json:"signingId"`

	// Table and Fields form the Schema Binding.
	Table  string   `mapstructure:"table" json:"table"`
	Fields []string `mapstructure:"fields" json:"fields"`

	PageSize        int    `mapstructure:"pageSize" json:"pageSize"`
	Workers         int    `mapstructure:"workers" json:"workers"`
	CacheMaxEntries int    `mapstructure:"cacheMaxEntries" json:"cacheMaxEntries"`
	EscapeValues    bool   `mapstructure:"escapeValues" json:"escapeValues"`
	Listen          string `mapstructure:"listen" json:"listen"`

	Database DatabaseConfig `mapstructure:"database" json:"database"`
}

// DatabaseConfig selects the backend store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" json:"dsn"`
}

// Default returns the built-in configuration: the CMIP5 schema on a local
// sqlite database.
func Default() *Config {
	return &Config{
		Prefix:    DefaultPrefix,
		SigningID: DefaultSigningID,
		Table:     schema.CMIP5Table,
		Fields:    append([]string(nil), schema.CMIP5Fields...),
		PageSize:  DefaultPageSize,
		Workers:   DefaultWorkers,
		Listen:    DefaultListen,
		Database: DatabaseConfig{
			Driver: store.DriverSQLite,
			DSN:    DefaultDSN,
		},
	}
}

// Load reads the configuration. An empty path uses defaults and the
// environment only. The loaded configuration is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("prefix", d.Prefix)
	v.SetDefault("catalogId", d.CatalogID)
	v.SetDefault("signingId", d.SigningID)
	v.SetDefault("table", d.Table)
	v.SetDefault("fields", d.Fields)
	v.SetDefault("pageSize", d.PageSize)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("cacheMaxEntries", d.CacheMaxEntries)
	v.SetDefault("escapeValues", d.EscapeValues)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
}

// Error is a configuration validation error.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Message
	}
	return "config error in field '" + e.Field + "': " + e.Message
}

// Validate checks c against the CUE schema, then checks that the schema
// binding and names are usable.
func (c *Config) Validate() error {
	if err := c.validateSchema(); err != nil {
		return err
	}
	if _, err := c.Binding(); err != nil {
		return &Error{Field: "fields", Message: err.Error()}
	}
	if _, err := c.PrefixName(); err != nil {
		return &Error{Field: "prefix", Message: err.Error()}
	}
	if _, err := c.SigningName(); err != nil {
		return &Error{Field: "signingId", Message: err.Error()}
	}
	return nil
}

func (c *Config) validateSchema() error {
	ctx := cuecontext.New()

	def := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	val := def.Unify(ctx.Encode(c))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return &Error{Message: strings.TrimSpace(cueerrors.Details(err, nil))}
	}
	return nil
}

// Binding returns the Schema Binding described by Table and Fields.
func (c *Config) Binding() (schema.Binding, error) {
	return schema.New(c.Table, c.Fields)
}

// PrefixName parses Prefix.
func (c *Config) PrefixName() (name.Name, error) {
	n, err := name.Parse(c.Prefix)
	if err != nil {
		return nil, err
	}
	if n.Len() == 0 {
		return nil, fmt.Errorf("prefix must have at least one component")
	}
	return n, nil
}

// SigningName parses SigningID.
func (c *Config) SigningName() (name.Name, error) {
	return name.Parse(c.SigningID)
}

package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/query"
)

// Scenario defaults.
const (
	DefaultPrefix    = "/catalog/myUniqueName"
	DefaultCatalogID = "catalogIdPlaceHolder"
	DefaultSigningID = "/test/signingId"
	DefaultPageSize  = 25
)

// Scenario defines an end-to-end query scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Prefix is the catalog-service prefix. Defaults to DefaultPrefix.
	Prefix string `yaml:"prefix,omitempty"`

	// CatalogID defaults to DefaultCatalogID.
	CatalogID string `yaml:"catalog_id,omitempty"`

	// PageSize defaults to DefaultPageSize.
	PageSize int `yaml:"page_size,omitempty"`

	// EscapeValues enables value escaping in the translator.
	EscapeValues bool `yaml:"escape_values,omitempty"`

	// EntriesPrefix is stripped from entry names before field assignment.
	// Defaults to "/".
	EntriesPrefix string `yaml:"entries_prefix,omitempty"`

	// Entries are the content names loaded into the CMIP5 table, in order.
	Entries []string `yaml:"entries"`

	// Flow contains the query steps, executed in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate backend and cache effects after the flow.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FlowStep sends one query.
type FlowStep struct {
	// Query is the JSON payload, used verbatim as the query component.
	Query string `yaml:"query"`

	// Expect specifies the expected response. If nil, only success is
	// checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected response of a step.
type ExpectClause struct {
	// Rejected is the expected error code. Other fields are ignored when set.
	Rejected string `yaml:"rejected,omitempty"`

	ResultCount *int `yaml:"result_count,omitempty"`
	Segments    *int `yaml:"segments,omitempty"`

	// Results must equal the fetched rows in order.
	Results []string `yaml:"results,omitempty"`

	// ResultSet must equal the fetched rows in any order.
	ResultSet []string `yaml:"result_set,omitempty"`

	LastComponent *bool `yaml:"last_component,omitempty"`

	// Version is the expected version of the response name.
	Version *uint64 `yaml:"version,omitempty"`
}

// Assertion validates effects observed over the whole flow.
type Assertion struct {
	// Type is one of sql_executed, sql_count, published_count, cache_entries.
	Type string `yaml:"type"`

	// SQL is the statement (sql_executed, sql_count).
	SQL string `yaml:"sql,omitempty"`

	// Count is the expected number (sql_count, published_count, cache_entries).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLExecuted    = "sql_executed"
	AssertSQLCount       = "sql_count"
	AssertPublishedCount = "published_count"
	AssertCacheEntries   = "cache_entries"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	scenario.applyDefaults()
	return &scenario, nil
}

func (s *Scenario) applyDefaults() {
	if s.Prefix == "" {
		s.Prefix = DefaultPrefix
	}
	if s.CatalogID == "" {
		s.CatalogID = DefaultCatalogID
	}
	if s.PageSize == 0 {
		s.PageSize = DefaultPageSize
	}
	if s.EntriesPrefix == "" {
		s.EntriesPrefix = "/"
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if s.PageSize < 0 {
		return fmt.Errorf("page_size must be positive")
	}
	if s.Prefix != "" {
		if _, err := name.Parse(s.Prefix); err != nil {
			return fmt.Errorf("prefix: %w", err)
		}
	}

	for i, step := range s.Flow {
		if step.Query == "" {
			return fmt.Errorf("flow[%d]: query is required", i)
		}
		if step.Expect != nil && step.Expect.Rejected != "" && !knownCode(step.Expect.Rejected) {
			return fmt.Errorf("flow[%d].expect: unknown error code %q", i, step.Expect.Rejected)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func knownCode(code string) bool {
	switch query.ErrorCode(code) {
	case query.CodeMalformedQuery, query.CodeInvalidQueryShape,
		query.CodeInvalidPathFormat, query.CodePathTooDeep:
		return true
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertSQLExecuted, AssertSQLCount:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for %s", index, a.Type)
		}
	case AssertPublishedCount, AssertCacheEntries:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}

package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gfdlTas = "/CMIP5/output1/NOAA/GFDL/historical/mon/atmos/tas/r1i1p1/1850-2005"
	gfdlPr  = "/CMIP5/output1/NOAA/GFDL/historical/mon/atmos/pr/r1i1p1/1850-2005"
	ccsmTos = "/CMIP5/output1/NCAR/CCSM4/historical/day/ocean/tos/r2i1p1/1850-2005"
)

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func minimalScenario(flow ...FlowStep) *Scenario {
	s := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		PageSize:    2,
		Entries:     []string{gfdlTas, gfdlPr, ccsmTos},
		Flow:        flow,
	}
	s.applyDefaults()
	return s
}

func TestRun_ExactMatch(t *testing.T) {
	scenario := minimalScenario(FlowStep{
		Query: `{"model":"GFDL"}`,
		Expect: &ExpectClause{
			ResultCount: intPtr(2),
			Segments:    intPtr(1),
			Results:     []string{gfdlTas, gfdlPr},
		},
	})

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Steps, 1)

	step := result.Steps[0]
	assert.Equal(t, "/query-results/catalogIdPlaceHolder/%7B%22model%22%3A%22GFDL%22%7D/%FD%01", step.Ack)
	assert.Equal(t, []string{"SELECT name FROM cmip5 WHERE model='GFDL';"}, step.SQL)
	require.Len(t, step.Segments, 1)
	assert.True(t, step.Segments[0].Final)
	assert.True(t, step.Segments[0].Verified)
	assert.Equal(t, step.Ack+"/%00%00", step.Segments[0].Name)

	assert.Equal(t, 1, result.CacheEntries)
	assert.Equal(t, map[string]int{"SELECT name FROM cmip5 WHERE model='GFDL';": 1}, result.Executed)
	assert.Equal(t, []string{"/catalog/myUniqueName" + step.Ack}, result.Announced)
	assert.GreaterOrEqual(t, result.Published, 2)
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario := minimalScenario(FlowStep{
		Query: `{"organization":"NCAR"}`,
		Expect: &ExpectClause{
			ResultCount:   intPtr(5),
			Segments:      intPtr(2),
			LastComponent: boolPtr(true),
		},
	})

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "result_count: expected 5, got 1")
	assert.Contains(t, result.Errors[1], "segments: expected 2, got 1")
	assert.Contains(t, result.Errors[2], "last_component: expected true, got false")
}

func TestRun_ResultSetIgnoresOrder(t *testing.T) {
	scenario := minimalScenario(FlowStep{
		Query: `{"?":"/CMIP5/output1/NOAA/GFDL/historical/mon/atmos/"}`,
		Expect: &ExpectClause{
			ResultSet: []string{"pr", "tas"},
		},
	})

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{
		"SELECT DISTINCT variable_name FROM cmip5 WHERE activity='CMIP5' AND experiment='historical' AND frequency='mon' AND model='GFDL' AND modeling_realm='atmos' AND organization='NOAA' AND product='output1';",
	}, result.Steps[0].SQL)
}

func TestRun_Rejected(t *testing.T) {
	scenario := minimalScenario(
		FlowStep{Query: `{"?":"CMIP5"}`, Expect: &ExpectClause{Rejected: "INVALID_PATH_FORMAT"}},
		FlowStep{Query: `{"model":"GFDL"}`, Expect: &ExpectClause{Rejected: "MALFORMED_QUERY"}},
	)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "INVALID_PATH_FORMAT", result.Steps[0].Rejected)
	assert.Empty(t, result.Steps[0].SQL)
	assert.Equal(t, "/query-results/catalogIdPlaceHolder/%7B%22%3F%22%3A%22CMIP5%22%7D/%FD%01", result.Steps[0].Ack)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flow[1]: expected rejection MALFORMED_QUERY, query succeeded")
}

func TestRun_FailedAssertion(t *testing.T) {
	scenario := minimalScenario(FlowStep{Query: `{"model":"GFDL"}`})
	scenario.Assertions = []Assertion{
		{Type: AssertSQLCount, SQL: "SELECT name FROM cmip5 WHERE model='GFDL';", Count: 2},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: sql_count")
}

func TestRun_InvalidEntry(t *testing.T) {
	scenario := minimalScenario(FlowStep{Query: `{"model":"GFDL"}`})
	scenario.Entries = []string{"/CMIP5/output1/NOAA"}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entries[0]")
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Steps, len(scenario.Flow))
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	tests := []string{
		"exact_match_paging",
		"prefix_search",
		"rejections",
	}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "exact_match_paging.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_InvalidContent(t *testing.T) {
	result := NewResult()
	result.Steps = append(result.Steps, StepTrace{
		Query:    `{"model":"x"}`,
		Segments: []SegmentTrace{{Name: "/s", Content: []byte("{not json")}},
	})

	_, err := Snapshot("bad", result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 segment 0")
}

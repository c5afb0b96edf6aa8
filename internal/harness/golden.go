package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/catalog/internal/ir"
)

// Snapshot converts a result to its canonical golden form. Signatures are
// left out; segment content is embedded as decoded JSON.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	steps := make(ir.Array, len(result.Steps))
	for i, st := range result.Steps {
		step := ir.Object{
			"query": ir.String(st.Query),
			"ack":   ir.String(st.Ack),
			"sql":   ir.Strings(st.SQL...),
		}
		if st.Rejected != "" {
			step["rejected"] = ir.String(st.Rejected)
		}
		if len(st.Segments) > 0 {
			segs := make(ir.Array, len(st.Segments))
			for j, seg := range st.Segments {
				content, err := ir.Decode(seg.Content)
				if err != nil {
					return nil, fmt.Errorf("step %d segment %d: %w", i, j, err)
				}
				segs[j] = ir.Object{
					"name":    ir.String(seg.Name),
					"final":   ir.Bool(seg.Final),
					"content": content,
				}
			}
			step["segments"] = segs
		}
		steps[i] = step
	}

	return ir.MarshalCanonical(ir.Object{
		"scenario": ir.String(scenarioName),
		"steps":    steps,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)
	return nil
}

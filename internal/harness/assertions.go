package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertSQLExecuted:
		if result.Executed[a.SQL] == 0 {
			return &AssertionError{
				Type:     a.Type,
				Expected: a.SQL,
				Actual:   "not executed; executed: " + executedList(result),
			}
		}
	case AssertSQLCount:
		if got := result.Executed[a.SQL]; got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d executions of %s", a.Count, a.SQL),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
	case AssertPublishedCount:
		if result.Published != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d packets", a.Count),
				Actual:   fmt.Sprintf("%d packets", result.Published),
			}
		}
	case AssertCacheEntries:
		if result.CacheEntries != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d segments", a.Count),
				Actual:   fmt.Sprintf("%d segments", result.CacheEntries),
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func executedList(result *Result) string {
	if len(result.Executed) == 0 {
		return "none"
	}
	stmts := make([]string, 0, len(result.Executed))
	for sql := range result.Executed {
		stmts = append(stmts, sql)
	}
	return strings.Join(stmts, " | ")
}

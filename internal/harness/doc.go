// Package harness runs end-to-end query scenarios against a real catalog.
//
// Each scenario gets a fresh in-memory SQLite store loaded with its entries,
// an in-memory face signing with a fixed identity, and a Query Adapter with
// a fixed catalog id. Flow steps are sent one at a time through the face:
// the acknowledgement is resolved and every segment is fetched before the
// next step starts, so the trace is reproducible.
//
// # Scenario Format
//
//	name: exact_match_paging
//	description: "Exact match pages three rows at page size two"
//	page_size: 2
//	entries:
//	  - /CMIP5/output1/NOAA/GFDL/historical/mon/atmos/tas/r1i1p1/1850-2005
//	flow:
//	  - query: '{"organization":"NOAA"}'
//	    expect:
//	      result_count: 3
//	      segments: 2
//	      results: [...]
//	  - query: '{"?":"CMIP5"}'
//	    expect:
//	      rejected: INVALID_PATH_FORMAT
//	assertions:
//	  - type: sql_count
//	    sql: "SELECT name FROM cmip5 WHERE organization='NOAA';"
//	    count: 1
//
// # Assertion Types
//
//   - sql_executed: the backend received the statement at least once
//   - sql_count: the backend received the statement exactly count times
//   - published_count: the face published exactly count packets
//   - cache_entries: the segment cache holds exactly count segments
//
// # Golden Files
//
// RunWithGolden snapshots the step trace (acknowledgements, statements and
// segments, without signatures) as canonical JSON under testdata/golden.
// Regenerate with:
//
//	go test ./internal/harness -update
package harness

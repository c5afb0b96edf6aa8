// Package reply paginates an ordered result set into reply segments.
//
// For N rows and page size P, segment i carries rows [i*P, min((i+1)*P, N)).
// Segment 0 carries its window under "results"; later segments use "next".
// Every segment carries resultCount = N. The segment whose window ends at N
// is final and names its own segment component as the final block id.
//
// An empty result set still produces one final segment:
//
//	{"resultCount":0,"results":[]}
//
// Segment content is canonical JSON with row strings written verbatim: no
// normalization, and bytes that are not valid UTF-8 are kept. Rebuilding a
// segment from the same rows always yields identical bytes, and Decode
// returns the rows exactly as the backend produced them.
package reply

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/catalog/internal/ir"
	"github.com/roach88/catalog/internal/name"
)

// Content keys.
const (
	KeyResultCount   = "resultCount"
	KeyResults       = "results"
	KeyNext          = "next"
	KeyLastComponent = "lastComponent"
)

// Options control pagination.
type Options struct {
	// PageSize is the maximum number of rows per segment. Must be positive.
	PageSize int

	// Autocomplete marks results of an autocomplete query.
	Autocomplete bool

	// Terminal marks an autocomplete query that selected the last schema
	// field. The final segment then carries "lastComponent": true.
	Terminal bool
}

// Segment is one page of a paginated result set.
type Segment struct {
	// Name is the response-name-prefix plus the segment component.
	Name name.Name

	// Number is the 0-based segment number.
	Number uint64

	// Start and End bound the half-open window of rows carried.
	Start, End int

	// ResultCount is the size of the whole result set.
	ResultCount int

	// Final is true for the last segment.
	Final bool

	// FinalBlockID is the segment's own component when Final, empty otherwise.
	FinalBlockID name.Component

	// Content is the canonical JSON body.
	Content []byte
}

// SegmentCount returns how many segments n rows produce at page size p.
// It is at least 1.
func SegmentCount(n, p int) int {
	if n == 0 {
		return 1
	}
	return (n + p - 1) / p
}

// Paginate builds every segment of rows under prefix, in segment order.
func Paginate(prefix name.Name, rows []string, opts Options) ([]Segment, error) {
	if opts.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", opts.PageSize)
	}

	count := SegmentCount(len(rows), opts.PageSize)
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		seg, err := BuildSegment(prefix, rows, uint64(i), opts)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// BuildSegment builds segment number seg of rows under prefix.
// Returns an error if seg lies past the final segment.
func BuildSegment(prefix name.Name, rows []string, seg uint64, opts Options) (Segment, error) {
	if opts.PageSize <= 0 {
		return Segment{}, fmt.Errorf("page size must be positive, got %d", opts.PageSize)
	}

	n := len(rows)
	count := SegmentCount(n, opts.PageSize)
	if seg >= uint64(count) {
		return Segment{}, fmt.Errorf("segment %d out of range: %d rows make %d segments", seg, n, count)
	}

	start := int(seg) * opts.PageSize
	end := min(start+opts.PageSize, n)
	final := end == n

	key := KeyResults
	if seg > 0 {
		key = KeyNext
	}

	body := ir.Object{
		KeyResultCount: ir.Int(int64(n)),
		key:            ir.Strings(rows[start:end]...),
	}
	if final && opts.Autocomplete && opts.Terminal {
		body[KeyLastComponent] = ir.Bool(true)
	}

	content, err := ir.MarshalVerbatim(body)
	if err != nil {
		return Segment{}, fmt.Errorf("encode segment %d: %w", seg, err)
	}

	comp := name.FromSegment(seg)
	s := Segment{
		Name:        prefix.Append(comp),
		Number:      seg,
		Start:       start,
		End:         end,
		ResultCount: n,
		Final:       final,
		Content:     content,
	}
	if final {
		s.FinalBlockID = comp
	}
	return s, nil
}

// Page is the decoded content of a segment, as a requester sees it.
type Page struct {
	ResultCount   int      `json:"resultCount"`
	Results       []string `json:"results,omitempty"`
	Next          []string `json:"next,omitempty"`
	LastComponent bool     `json:"lastComponent,omitempty"`
}

// Items returns the rows carried by the page, whichever key holds them.
func (p Page) Items() []string {
	if p.Results != nil {
		return p.Results
	}
	return p.Next
}

// rawPage defers row decoding to ir.Unquote, which keeps bytes that
// encoding/json would replace.
type rawPage struct {
	ResultCount   int               `json:"resultCount"`
	Results       []json.RawMessage `json:"results"`
	Next          []json.RawMessage `json:"next"`
	LastComponent bool              `json:"lastComponent"`
}

// Decode parses segment content.
func Decode(content []byte) (Page, error) {
	var raw rawPage
	if err := json.Unmarshal(content, &raw); err != nil {
		return Page{}, fmt.Errorf("decode segment content: %w", err)
	}

	results, err := unquoteAll(raw.Results)
	if err != nil {
		return Page{}, fmt.Errorf("decode segment results: %w", err)
	}
	next, err := unquoteAll(raw.Next)
	if err != nil {
		return Page{}, fmt.Errorf("decode segment next: %w", err)
	}
	return Page{
		ResultCount:   raw.ResultCount,
		Results:       results,
		Next:          next,
		LastComponent: raw.LastComponent,
	}, nil
}

// unquoteAll keeps nil as nil so Items can tell which key was present.
func unquoteAll(raw []json.RawMessage) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	out := make([]string, len(raw))
	for i, r := range raw {
		s, err := ir.Unquote(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

package harness

// SegmentTrace is one fetched reply segment.
type SegmentTrace struct {
	// Name is relative to the scenario prefix.
	Name     string `json:"name"`
	Final    bool   `json:"final"`
	Content  []byte `json:"content"`
	Verified bool   `json:"verified"`
}

// StepTrace records what one flow step observed.
type StepTrace struct {
	Query string `json:"query"`

	// Ack is the acknowledgement content.
	Ack string `json:"ack"`

	// SQL lists the statements the backend received during the step.
	SQL []string `json:"sql"`

	// Rejected is the error code of a rejected query.
	Rejected string `json:"rejected,omitempty"`

	Segments      []SegmentTrace `json:"segments,omitempty"`
	ResultCount   int            `json:"result_count"`
	Results       []string       `json:"results,omitempty"`
	LastComponent bool           `json:"last_component,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Steps holds one trace per flow step, in order.
	Steps []StepTrace `json:"steps"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Published is the number of packets the face published.
	Published int `json:"published"`

	// CacheEntries is the final segment cache size.
	CacheEntries int `json:"cache_entries"`

	// Executed counts backend executions per statement.
	Executed map[string]int `json:"executed"`

	// Announced lists the response prefixes announced to the sync group.
	Announced []string `json:"announced,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Steps:    []StepTrace{},
		Errors:   []string{},
		Executed: make(map[string]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

package testutil

// FixedIDGenerator generates the same id every time.
//
// Used for the catalog id so response names are stable across runs.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator returning id.
// If id is empty, Generate returns "test-catalog".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-catalog"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

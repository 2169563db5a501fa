// Package testutil holds deterministic stand-ins used when runs must be
// reproducible byte for byte.
package testutil

// DefaultRunID is used by NewFixedRunID when no ID is given.
const DefaultRunID = "test-run-default"

// FixedRunID hands out the same run ID on every call, so that traces of
// repeated runs carry identical headers and digests.
//
// FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID returns a generator for id, or for DefaultRunID when id is
// empty.
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run ID.
func (g *FixedRunID) Generate() string {
	return g.id
}

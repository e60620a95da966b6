package editor

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const localRowPrefix = "local_"

// RowID identifies a variant row. A row is either new to this session (local) or backed
// by a persisted variant (existing); the orchestrator creates the former and patches
// the latter.
type RowID struct {
	value string
	local bool
}

// NewLocalRowID returns a fresh session-local id.
func NewLocalRowID() RowID {
	return RowID{value: localRowPrefix + ulid.Make().String(), local: true}
}

// ExistingRowID wraps a durable variant id returned by the backend.
func ExistingRowID(id string) RowID {
	return RowID{value: strings.TrimSpace(id)}
}

// IsLocal reports whether the row has not been persisted yet.
func (r RowID) IsLocal() bool { return r.local }

// IsZero reports whether the id is unset.
func (r RowID) IsZero() bool { return r.value == "" }

// String returns the raw id. For existing rows this is the backend variant id.
func (r RowID) String() string { return r.value }

package editor

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"finitefield.org/catalog-editor/internal/backend"
)

// PreviewRegistry hands out preview handles for staged files. Every acquired handle
// must be released once the file leaves the staged lists or the session closes.
type PreviewRegistry interface {
	Acquire(file backend.ImageFile) string
	Release(handle string)
}

// MemoryPreviews is an in-process PreviewRegistry.
type MemoryPreviews struct {
	mu   sync.Mutex
	open map[string]string
}

// NewMemoryPreviews constructs an empty registry.
func NewMemoryPreviews() *MemoryPreviews {
	return &MemoryPreviews{open: make(map[string]string)}
}

// Acquire implements PreviewRegistry.
func (m *MemoryPreviews) Acquire(file backend.ImageFile) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle := "preview:" + ulid.Make().String()
	m.open[handle] = file.Name
	return handle
}

// Release implements PreviewRegistry.
func (m *MemoryPreviews) Release(handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.open, handle)
}

// Open returns the number of unreleased handles.
func (m *MemoryPreviews) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/catalog-editor/internal/backend"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []Toast
}

func (n *recordingNotifier) Notify(_ context.Context, toast Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, toast)
}

func (n *recordingNotifier) levels() []ToastLevel {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ToastLevel, 0, len(n.toasts))
	for _, t := range n.toasts {
		out = append(out, t.Level)
	}
	return out
}

func applyAll(t *testing.T, d *Draft, changes map[Field]string) {
	t.Helper()
	for field, value := range changes {
		require.NoError(t, d.ApplyFieldChange(field, value))
	}
}

func validSimpleDraft(t *testing.T) *Draft {
	t.Helper()
	d := NewDraft("USD", "")
	applyAll(t, d, map[Field]string{
		FieldName:        "Canvas Tote",
		FieldSKU:         "TOTE-1",
		FieldOrigin:      "us",
		FieldCondition:   "NEW",
		FieldRetailPrice: "25",
		FieldCostPrice:   "10",
	})
	return d
}

func newTestOrchestrator(t *testing.T, svc backend.Catalog, notifier Notifier) *Orchestrator {
	t.Helper()
	orch, err := NewOrchestrator(OrchestratorDeps{
		Catalog:  svc,
		Notifier: notifier,
		Clock:    func() time.Time { return fixedNow },
		RandIntN: func(int) int { return 42 },
	})
	require.NoError(t, err)
	return orch
}

func ptr[T any](v T) *T { return &v }

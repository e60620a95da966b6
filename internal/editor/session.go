package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/catalog-editor/internal/auth"
	"finitefield.org/catalog-editor/internal/backend"
	"finitefield.org/catalog-editor/internal/catalog"
	"finitefield.org/catalog-editor/internal/platform/observability"
	"finitefield.org/catalog-editor/internal/platform/requestctx"
)

var (
	// ErrSaveInProgress is returned when a save is requested while another is running.
	ErrSaveInProgress = errors.New("editor: save already in progress")
	// ErrSessionBusy is returned when closing a session during a save.
	ErrSessionBusy = errors.New("editor: session is saving")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("editor: session closed")
)

// AuthSource is the auth-change notifier a session subscribes to.
type AuthSource interface {
	Current() auth.State
	Subscribe(func(auth.State)) (unsubscribe func())
}

// SessionDeps bundles constructor inputs for an editing session.
type SessionDeps struct {
	Catalog          backend.Catalog
	Auth             AuthSource
	Previews         PreviewRegistry
	Notifier         Notifier
	Logger           *zap.Logger
	Clock            func() time.Time
	RandIntN         func(int) int
	DefaultStatus    string
	FallbackCurrency string
}

// Session is one open editing surface: a draft, its save gate and the resources tied
// to its lifetime.
type Session struct {
	id           string
	catalog      backend.Catalog
	orchestrator *Orchestrator
	previews     PreviewRegistry
	baseLogger   *zap.Logger
	logger       *zap.Logger
	options      catalog.MetaOptions

	draft  *Draft
	saving atomic.Bool
	// currency is the draft's currency cell, written by auth changes from any goroutine.
	currency *currencyCell

	mu          sync.Mutex
	handles     map[string]string
	unsubscribe func()
	closed      bool
}

// OpenSession loads the option sets and, when productID is set, hydrates the draft
// from the stored product. The session subscribes to deps.Auth until closed.
func OpenSession(ctx context.Context, deps SessionDeps, productID string) (*Session, error) {
	orch, err := NewOrchestrator(OrchestratorDeps{
		Catalog:  deps.Catalog,
		Notifier: deps.Notifier,
		Logger:   deps.Logger,
		Clock:    deps.Clock,
		RandIntN: deps.RandIntN,
	})
	if err != nil {
		return nil, err
	}
	previews := deps.Previews
	if previews == nil {
		previews = NewMemoryPreviews()
	}
	logger := deps.Logger
	if logger == nil {
		logger = requestctx.NoopLogger()
	}

	s := &Session{
		id:           ulid.Make().String(),
		catalog:      deps.Catalog,
		orchestrator: orch,
		previews:     previews,
		baseLogger:   logger,
		handles:      make(map[string]string),
	}
	s.logger = logger.With(zap.String("sessionId", s.id))
	ctx = s.context(ctx)

	currency := deps.FallbackCurrency
	if deps.Auth != nil {
		if cur := deps.Auth.Current().Currency; cur != "" {
			currency = cur
		}
	}

	enums, err := deps.Catalog.GetProductMetaEnums(ctx)
	if err != nil {
		s.logger.Warn("meta enums unavailable, using defaults", zap.Error(err))
	}
	s.options = enums.Options()

	if productID != "" {
		product, err := deps.Catalog.GetProductByID(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("editor: load product %s: %w", productID, err)
		}
		s.draft = FromProduct(product, currency)
	} else {
		s.draft = NewDraft(currency, deps.DefaultStatus)
	}
	s.currency = s.draft.currency

	if deps.Auth != nil {
		s.unsubscribe = deps.Auth.Subscribe(s.onAuthChange)
	}
	return s, nil
}

func (s *Session) context(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = requestctx.WithSessionID(ctx, s.id)
	if requestctx.Logger(ctx) == requestctx.NoopLogger() {
		ctx = observability.WithLogger(ctx, s.baseLogger)
	}
	return ctx
}

func (s *Session) onAuthChange(state auth.State) {
	if !state.SignedIn() {
		s.logger.Warn("auth state cleared")
		return
	}
	if state.Currency != "" && !s.saving.Load() {
		s.currency.set(state.Currency)
	}
	s.logger.Info("auth state changed", zap.String("tenantId", state.TenantID), zap.String("currency", state.Currency))
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Draft returns the draft being edited.
func (s *Session) Draft() *Draft { return s.draft }

// Options returns the form option sets.
func (s *Session) Options() catalog.MetaOptions { return s.options }

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool { return s.saving.Load() }

// Save runs the orchestrator unless a save is already running. A complete save resets
// the draft, except for "save and add another" which keeps the batch defaults.
func (s *Session) Save(ctx context.Context, opts SaveOptions) (SaveResult, error) {
	if !s.saving.CompareAndSwap(false, true) {
		return SaveResult{}, ErrSaveInProgress
	}
	defer s.saving.Store(false)

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return SaveResult{}, ErrSessionClosed
	}

	res, err := s.orchestrator.Save(s.context(ctx), s.draft, opts)
	if err == nil && res.Complete() && !res.AddedAnother {
		s.draft.Reset()
	}
	s.syncPreviews()
	return res, err
}

// StageImages replaces the product-level staged files and returns their preview
// handles.
func (s *Session) StageImages(files ...backend.ImageFile) []string {
	staged := s.draft.StageImages(files...)
	s.syncPreviews()
	return s.handlesFor(staged)
}

// StageVariantImages replaces a row's staged files and returns their preview handles.
func (s *Session) StageVariantImages(id RowID, files ...backend.ImageFile) ([]string, error) {
	staged, err := s.draft.StageVariantImages(id, files...)
	if err != nil {
		return nil, err
	}
	s.syncPreviews()
	return s.handlesFor(staged), nil
}

// RemoveVariant deletes a row and releases its previews.
func (s *Session) RemoveVariant(id RowID) error {
	if err := s.draft.RemoveVariant(id); err != nil {
		return err
	}
	s.syncPreviews()
	return nil
}

func (s *Session) handlesFor(staged []StagedImage) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(staged))
	for _, img := range staged {
		out = append(out, s.handles[img.ID])
	}
	return out
}

// syncPreviews acquires handles for newly staged files and releases those whose file
// is no longer staged.
func (s *Session) syncPreviews() {
	staged := s.draft.stagedIDs()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, handle := range s.handles {
		if _, ok := staged[id]; !ok {
			s.previews.Release(handle)
			delete(s.handles, id)
		}
	}
	for id, file := range staged {
		if _, ok := s.handles[id]; !ok {
			s.handles[id] = s.previews.Acquire(file)
		}
	}
}

// Close releases previews, drops the auth subscription and discards the draft. It is
// refused while a save is in flight.
func (s *Session) Close() error {
	if s.saving.Load() {
		return ErrSessionBusy
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for id, handle := range s.handles {
		s.previews.Release(handle)
		delete(s.handles, id)
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.draft.Reset()
	s.closed = true
	return nil
}

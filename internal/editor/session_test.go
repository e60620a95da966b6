package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/catalog-editor/internal/auth"
	"finitefield.org/catalog-editor/internal/backend"
	"finitefield.org/catalog-editor/internal/catalog"
)

func openTestSession(t *testing.T, svc *backend.MemoryService, deps SessionDeps, productID string) *Session {
	t.Helper()
	deps.Catalog = svc
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return fixedNow }
	}
	if deps.Notifier == nil {
		deps.Notifier = &recordingNotifier{}
	}
	s, err := OpenSession(context.Background(), deps, productID)
	require.NoError(t, err)
	return s
}

func fillSimple(t *testing.T, d *Draft) {
	t.Helper()
	applyAll(t, d, map[Field]string{
		FieldName:        "Canvas Tote",
		FieldSKU:         "TOTE-1",
		FieldOrigin:      "US",
		FieldCondition:   "NEW",
		FieldRetailPrice: "25",
		FieldCostPrice:   "10",
	})
}

func TestSessionRejectsReentrantSaveAndClose(t *testing.T) {
	svc := backend.NewMemoryService()
	started := make(chan struct{})
	release := make(chan struct{})
	svc.FailOn(backend.OpCreateProduct, func(backend.Call) error {
		close(started)
		<-release
		return nil
	})
	s := openTestSession(t, svc, SessionDeps{FallbackCurrency: "USD"}, "")
	fillSimple(t, s.Draft())

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background(), SaveOptions{})
		done <- err
	}()
	<-started

	require.True(t, s.Saving())
	_, err := s.Save(context.Background(), SaveOptions{})
	require.ErrorIs(t, err, ErrSaveInProgress)
	require.ErrorIs(t, s.Close(), ErrSessionBusy)

	close(release)
	require.NoError(t, <-done)
	require.False(t, s.Saving())
	require.Len(t, svc.CallsFor(backend.OpCreateProduct), 1)
	require.NoError(t, s.Close())

	_, err = s.Save(context.Background(), SaveOptions{})
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionCompleteSaveResetsDraft(t *testing.T) {
	svc := backend.NewMemoryService()
	previews := NewMemoryPreviews()
	s := openTestSession(t, svc, SessionDeps{FallbackCurrency: "USD", Previews: previews}, "")
	fillSimple(t, s.Draft())
	handles := s.StageImages(backend.ImageFile{Name: "a.png"}, backend.ImageFile{Name: "b.png"})
	require.Len(t, handles, 2)
	require.Equal(t, 2, previews.Open())

	res, err := s.Save(context.Background(), SaveOptions{})
	require.NoError(t, err)
	require.True(t, res.Complete())
	require.Empty(t, s.Draft().Parent.Name)
	require.False(t, s.Draft().IsEdit())
	require.Zero(t, previews.Open())
}

func TestSessionReleasesReplacedPreviews(t *testing.T) {
	previews := NewMemoryPreviews()
	s := openTestSession(t, backend.NewMemoryService(), SessionDeps{Previews: previews}, "")

	first := s.StageImages(backend.ImageFile{Name: "a.png"}, backend.ImageFile{Name: "b.png"})
	require.Equal(t, 2, previews.Open())
	second := s.StageImages(backend.ImageFile{Name: "c.png"})
	require.Equal(t, 1, previews.Open())
	require.NotEqual(t, first[0], second[0])

	require.NoError(t, s.Draft().SetVariantEnabled(true))
	row := s.Draft().Variants()[0]
	_, err := s.StageVariantImages(row.ID, backend.ImageFile{Name: "v.png"})
	require.NoError(t, err)
	require.Equal(t, 2, previews.Open())
	require.NoError(t, s.RemoveVariant(row.ID))
	require.Equal(t, 1, previews.Open())

	_, err = s.StageVariantImages(NewLocalRowID(), backend.ImageFile{Name: "x.png"})
	require.ErrorIs(t, err, ErrUnknownVariant)

	require.NoError(t, s.Close())
	require.Zero(t, previews.Open())
}

func TestSessionFollowsAuthChanges(t *testing.T) {
	broadcaster := auth.NewBroadcaster(auth.State{Token: "t1", Currency: "JPY"})
	s := openTestSession(t, backend.NewMemoryService(), SessionDeps{Auth: broadcaster, FallbackCurrency: "USD"}, "")
	require.Equal(t, "JPY", s.Draft().Currency())

	broadcaster.Publish(auth.State{Token: "t2", Currency: "EUR"})
	require.Equal(t, "EUR", s.Draft().Currency())

	broadcaster.Publish(auth.State{})
	require.Equal(t, "EUR", s.Draft().Currency())

	require.NoError(t, s.Close())
	broadcaster.Publish(auth.State{Token: "t3", Currency: "GBP"})
	require.Equal(t, "EUR", s.Draft().Currency())
}

func TestSessionLoadsOptionsAndProduct(t *testing.T) {
	svc := backend.NewMemoryService()
	svc.SetMetaEnums(backend.MetaEnums{ProductStatus: []catalog.Option{catalog.NewOption("live", "Live")}})
	svc.Seed(variantProduct())

	s := openTestSession(t, svc, SessionDeps{FallbackCurrency: "USD"}, "p1")
	require.Equal(t, []catalog.Option{{Value: "live", Label: "Live"}}, s.Options().Statuses)
	require.Equal(t, catalog.DefaultConditions, s.Options().Conditions)
	require.True(t, s.Draft().IsEdit())
	require.Len(t, s.Draft().Variants(), 3)
	require.NotEmpty(t, s.ID())
}

func TestSessionOpenFailures(t *testing.T) {
	svc := backend.NewMemoryService()
	svc.FailOn(backend.OpMetaEnums, func(backend.Call) error { return errors.New("enums offline") })

	s := openTestSession(t, svc, SessionDeps{}, "")
	require.Equal(t, catalog.DefaultStatuses, s.Options().Statuses)

	_, err := OpenSession(context.Background(), SessionDeps{Catalog: svc}, "missing")
	require.ErrorIs(t, err, backend.ErrNotFound)

	_, err = OpenSession(context.Background(), SessionDeps{}, "")
	require.ErrorIs(t, err, ErrCatalogMissing)
}

func TestSessionAcceptsAuthChangesFromAnotherGoroutine(t *testing.T) {
	broadcaster := auth.NewBroadcaster(auth.State{Token: "t1", Currency: "USD"})
	s := openTestSession(t, backend.NewMemoryService(), SessionDeps{Auth: broadcaster, FallbackCurrency: "USD"}, "")
	fillSimple(t, s.Draft())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			broadcaster.Publish(auth.State{Token: "t2", Currency: "CAD"})
		}
	}()
	for i := 0; i < 100; i++ {
		_ = BuildSimpleFields(s.Draft())
		s.Draft().Reset()
	}
	<-done

	require.Equal(t, "CAD", s.Draft().Currency())
	require.NoError(t, s.Close())
}

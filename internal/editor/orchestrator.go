package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"finitefield.org/catalog-editor/internal/backend"
	"finitefield.org/catalog-editor/internal/catalog"
	"finitefield.org/catalog-editor/internal/platform/observability"
	"finitefield.org/catalog-editor/internal/platform/requestctx"
)

// Save pipeline phases.
const (
	PhaseParent        = "parent"
	PhaseBackingSKU    = "backing-sku"
	PhaseVariants      = "variants"
	PhaseSuppliers     = "suppliers"
	PhaseImages        = "images"
	PhaseVariantImages = "variant-images"
	PhaseListings      = "listings"
)

var (
	// ErrParentWrite wraps the failure of the parent create or update. No later phase runs.
	ErrParentWrite = errors.New("editor: parent write failed")
	// ErrVariantNotPersisted indicates staged variant images whose row has no backend id.
	ErrVariantNotPersisted = errors.New("editor: variant not persisted")
	// ErrCatalogMissing indicates the orchestrator has no backend.
	ErrCatalogMissing = errors.New("editor: catalog backend is not configured")
)

// PhaseError is a non-fatal failure of one operation inside a phase.
type PhaseError struct {
	Phase  string
	Target string
	Err    error
}

// Error implements the error interface.
func (e PhaseError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("editor: %s phase: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("editor: %s phase (%s): %v", e.Phase, e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e PhaseError) Unwrap() error { return e.Err }

// SaveOptions selects the save intent.
type SaveOptions struct {
	Draft      bool
	AddAnother bool
}

// SaveResult summarizes a save.
type SaveResult struct {
	ProductID     string
	Created       bool
	PhaseErrors   []PhaseError
	AddedAnother  bool
	FocusField    Field
	SavedPreviews []backend.ProductPayload
}

// Complete reports whether every phase succeeded.
func (r SaveResult) Complete() bool { return len(r.PhaseErrors) == 0 }

// FailedPhases lists the phases with at least one failure, in pipeline order.
func (r SaveResult) FailedPhases() []string {
	var out []string
	for _, pe := range r.PhaseErrors {
		if len(out) == 0 || out[len(out)-1] != pe.Phase {
			out = append(out, pe.Phase)
		}
	}
	return out
}

// OrchestratorDeps bundles constructor inputs for the save orchestrator.
type OrchestratorDeps struct {
	Catalog  backend.Catalog
	Notifier Notifier
	Logger   *zap.Logger
	Clock    func() time.Time
	RandIntN func(int) int
}

// Orchestrator persists a draft through an ordered, non-transactional sequence of
// backend operations.
type Orchestrator struct {
	catalog  backend.Catalog
	notifier Notifier
	logger   *zap.Logger
	clock    func() time.Time
	randIntN func(int) int
}

// NewOrchestrator constructs the orchestrator with the supplied dependencies.
func NewOrchestrator(deps OrchestratorDeps) (*Orchestrator, error) {
	if deps.Catalog == nil {
		return nil, ErrCatalogMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = requestctx.NoopLogger()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Orchestrator{
		catalog:  deps.Catalog,
		notifier: notifier,
		logger:   logger,
		clock:    func() time.Time { return clock().UTC() },
		randIntN: deps.RandIntN,
	}, nil
}

// Save validates the draft and runs the create or edit pipeline. Validation failures
// and parent write failures are returned as errors; later phase failures are reported
// in the result.
func (o *Orchestrator) Save(ctx context.Context, d *Draft, opts SaveOptions) (SaveResult, error) {
	if requestctx.Logger(ctx) == requestctx.NoopLogger() {
		ctx = requestctx.WithLogger(ctx, o.logger)
	}

	if err := d.CheckSave(opts.Draft); err != nil {
		o.notify(ctx, ToastError, "Please complete the required fields: "+summarize(err))
		return SaveResult{}, err
	}
	d.ensureSKU(o.randIntN)

	build := BuildOptions{Draft: opts.Draft, Now: o.clock()}
	if d.IsEdit() {
		return o.saveEdit(ctx, d, build)
	}
	return o.saveCreate(ctx, d, build, opts)
}

func (o *Orchestrator) saveCreate(ctx context.Context, d *Draft, build BuildOptions, opts SaveOptions) (SaveResult, error) {
	var res SaveResult
	payload := BuildProductPayload(d, build)

	phaseCtx, span := observability.StartPhase(ctx, PhaseParent)
	created, err := o.catalog.CreateProduct(phaseCtx, payload)
	observability.EndPhase(span, err)
	if err != nil {
		observability.FromContext(ctx).Error("product create failed", zap.String("phase", PhaseParent), zap.Error(err))
		o.notify(ctx, ToastError, "Failed to create product: "+err.Error())
		return res, fmt.Errorf("%w: %w", ErrParentWrite, err)
	}
	res.ProductID = created.ID
	res.Created = true
	unadopted := d.adoptCreated(created, payload)

	o.runPhase(ctx, &res, PhaseSuppliers, "Product created but failed to link some suppliers", func(ctx context.Context) []PhaseError {
		return o.reconcileSuppliers(ctx, d)
	})
	o.runPhase(ctx, &res, PhaseImages, "Product created but failed to upload images", func(ctx context.Context) []PhaseError {
		return o.uploadProductImages(ctx, d)
	})
	if d.variantEnabled {
		o.runPhase(ctx, &res, PhaseVariantImages, "Product created but failed to upload variant images", func(ctx context.Context) []PhaseError {
			return append(o.uploadVariantImages(ctx, d), unadoptedErrors(d, unadopted)...)
		})
	}
	o.runPhase(ctx, &res, PhaseListings, "Product created but failed to update marketplace listings", func(ctx context.Context) []PhaseError {
		return o.syncListings(ctx, d)
	})

	if !res.Complete() {
		return res, nil
	}
	if opts.AddAnother && !opts.Draft {
		d.saved = append(d.saved, payload)
		d.ResetForNext()
		res.AddedAnother = true
		res.FocusField = FieldSKU
		res.SavedPreviews = d.SavedProducts()
	}
	o.notify(ctx, ToastSuccess, "Product created")
	return res, nil
}

func (o *Orchestrator) saveEdit(ctx context.Context, d *Draft, build BuildOptions) (SaveResult, error) {
	res := SaveResult{ProductID: d.productID}
	patch := BuildParentPatch(d, build)

	phaseCtx, span := observability.StartPhase(ctx, PhaseParent, attribute.String("catalog.product_id", d.productID))
	err := o.catalog.UpdateProductParent(phaseCtx, d.productID, patch)
	observability.EndPhase(span, err)
	if err != nil {
		observability.FromContext(ctx).Error("product update failed",
			zap.String("phase", PhaseParent), zap.String("productId", d.productID), zap.Error(err))
		o.notify(ctx, ToastError, "Failed to save product: "+err.Error())
		return res, fmt.Errorf("%w: %w", ErrParentWrite, err)
	}

	sku := strings.TrimSpace(d.Parent.SKU)
	if d.editSimple && d.backingVariantID != "" && sku != d.backingVariantSKU {
		o.runPhase(ctx, &res, PhaseBackingSKU, "Product saved but failed to update the variant SKU", func(ctx context.Context) []PhaseError {
			if err := o.catalog.UpdateProductVariant(ctx, d.productID, d.backingVariantID, backend.VariantSKUPatch{SKU: sku}); err != nil {
				return []PhaseError{{Phase: PhaseBackingSKU, Target: d.backingVariantID, Err: err}}
			}
			d.backingVariantSKU = sku
			return nil
		})
	}
	if d.variantEnabled {
		o.runPhase(ctx, &res, PhaseVariants, "Product saved but failed to save some variants", func(ctx context.Context) []PhaseError {
			return o.saveVariants(ctx, d)
		})
	}
	o.runPhase(ctx, &res, PhaseSuppliers, "Product saved but failed to update some supplier links", func(ctx context.Context) []PhaseError {
		return o.reconcileSuppliers(ctx, d)
	})
	o.runPhase(ctx, &res, PhaseImages, "Product saved but failed to update some images", func(ctx context.Context) []PhaseError {
		errs := o.deleteMarkedImages(ctx, d)
		errs = append(errs, o.uploadProductImages(ctx, d)...)
		if d.variantEnabled {
			errs = append(errs, o.uploadVariantImages(ctx, d)...)
		}
		return errs
	})
	o.runPhase(ctx, &res, PhaseListings, "Product saved but failed to update marketplace listings", func(ctx context.Context) []PhaseError {
		return o.syncListings(ctx, d)
	})

	if res.Complete() {
		o.notify(ctx, ToastSuccess, "Product saved")
	}
	return res, nil
}

// runPhase traces and logs one phase and emits a single warning toast when any of its
// operations failed.
func (o *Orchestrator) runPhase(ctx context.Context, res *SaveResult, phase, failure string, fn func(context.Context) []PhaseError) {
	ctx, span := observability.StartPhase(ctx, phase, attribute.String("catalog.product_id", res.ProductID))
	logger := observability.FromContext(ctx).With(zap.String("phase", phase), zap.String("productId", res.ProductID))
	logger.Debug("save phase started")

	errs := fn(ctx)
	if len(errs) == 0 {
		logger.Debug("save phase finished")
		observability.EndPhase(span, nil)
		return
	}

	joined := make([]error, 0, len(errs))
	for _, pe := range errs {
		logger.Warn("save phase operation failed", targetField(pe), zap.Error(pe.Err))
		joined = append(joined, pe)
	}
	observability.EndPhase(span, errors.Join(joined...))
	res.PhaseErrors = append(res.PhaseErrors, errs...)
	o.notify(ctx, ToastWarning, failure)
}

func targetField(pe PhaseError) zap.Field {
	switch pe.Phase {
	case PhaseVariants, PhaseVariantImages, PhaseBackingSKU:
		return zap.String("variantId", pe.Target)
	case PhaseSuppliers:
		return zap.String("supplierId", pe.Target)
	case PhaseListings:
		return zap.String("listingId", pe.Target)
	default:
		return zap.String("target", pe.Target)
	}
}

func (o *Orchestrator) notify(ctx context.Context, level ToastLevel, message string) {
	o.notifier.Notify(ctx, Toast{Level: level, Message: message})
}

func summarize(err error) string {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	return strings.TrimPrefix(verr.Error(), "editor: missing required fields: ")
}

// adoptCreated switches the draft to edit mode against the created product so a retry
// after a partial failure patches instead of creating a duplicate. Each created variant
// is adopted by at most one row: a SKU shared by several rows falls back to the
// position in the create payload. Rows that could not be adopted are returned and stay
// local.
func (d *Draft) adoptCreated(created backend.CreatedProduct, payload backend.ProductPayload) []RowID {
	d.productID = created.ID
	if !d.variantEnabled {
		d.editSimple = true
		d.backingVariantSKU = payload.SKU
		if len(created.Variants) > 0 {
			d.backingVariantID = created.Variants[0].ID
			d.backingVariantSKU = created.Variants[0].SKU
		}
		return nil
	}

	rows := d.Variants()
	echoed := make(map[string]int, len(created.Variants))
	for _, v := range created.Variants {
		echoed[strings.TrimSpace(v.SKU)]++
	}
	local := make(map[string]int, len(rows))
	for _, row := range rows {
		local[strings.TrimSpace(row.SKU)]++
	}

	used := make([]bool, len(created.Variants))
	take := func(j int) int {
		used[j] = true
		return j
	}
	firstUnused := func(sku string) int {
		for j, v := range created.Variants {
			if !used[j] && strings.TrimSpace(v.SKU) == sku {
				return take(j)
			}
		}
		return -1
	}

	match := make([]int, len(rows))
	for i, row := range rows {
		match[i] = -1
		sku := strings.TrimSpace(row.SKU)
		if echoed[sku] == 1 && local[sku] == 1 {
			match[i] = firstUnused(sku)
		}
	}
	for i, row := range rows {
		if match[i] >= 0 {
			continue
		}
		sku := strings.TrimSpace(row.SKU)
		if i < len(created.Variants) && !used[i] && strings.TrimSpace(created.Variants[i].SKU) == sku {
			match[i] = take(i)
			continue
		}
		match[i] = firstUnused(sku)
	}

	var unadopted []RowID
	for i, row := range rows {
		if match[i] < 0 || created.Variants[match[i]].ID == "" {
			unadopted = append(unadopted, row.ID)
			continue
		}
		if err := d.rekey(row.ID, ExistingRowID(created.Variants[match[i]].ID)); err != nil {
			unadopted = append(unadopted, row.ID)
		}
	}
	return unadopted
}

func (o *Orchestrator) saveVariants(ctx context.Context, d *Draft) []PhaseError {
	var errs []PhaseError
	for _, row := range d.Variants() {
		payload := BuildVariantPayload(d, row)
		if row.ID.IsLocal() {
			ref, err := o.catalog.AddProductVariant(ctx, d.productID, payload)
			if err != nil {
				errs = append(errs, PhaseError{Phase: PhaseVariants, Target: row.ID.String(), Err: err})
				continue
			}
			if ref.ID != "" {
				if err := d.rekey(row.ID, ExistingRowID(ref.ID)); err != nil {
					errs = append(errs, PhaseError{Phase: PhaseVariants, Target: row.ID.String(), Err: err})
				}
			}
			continue
		}
		if err := o.catalog.UpdateProductVariant(ctx, d.productID, row.ID.String(), payload); err != nil {
			errs = append(errs, PhaseError{Phase: PhaseVariants, Target: row.ID.String(), Err: err})
		}
	}
	return errs
}

// reconcileSuppliers links every desired supplier and unlinks originals no longer
// desired. Successful links become the new originals; failures stay pending.
func (o *Orchestrator) reconcileSuppliers(ctx context.Context, d *Draft) []PhaseError {
	desired := d.SupplierRows()
	if len(desired) == 0 && len(d.originalLinks) == 0 {
		return nil
	}

	var errs []PhaseError
	desiredIDs := make(map[string]struct{}, len(desired))
	failed := make(map[string]SupplierRow)
	var linked []backend.SupplierLink
	for _, row := range desired {
		desiredIDs[row.SupplierID] = struct{}{}
		terms := BuildSupplierTerms(d, row)
		if err := o.catalog.LinkSupplierProducts(ctx, row.SupplierID, []string{d.productID}, terms); err != nil {
			errs = append(errs, PhaseError{Phase: PhaseSuppliers, Target: row.SupplierID, Err: err})
			failed[row.SupplierID] = row
			continue
		}
		linked = append(linked, backend.SupplierLink{
			SupplierID:        row.SupplierID,
			LastPurchasePrice: terms.LastPurchasePrice,
			Currency:          terms.Currency,
		})
	}

	edits := make(map[string]SupplierRow)
	removed := make(map[string]struct{})
	originals := linked
	for _, link := range d.originalLinks {
		if _, ok := desiredIDs[link.SupplierID]; ok {
			if row, failedLink := failed[link.SupplierID]; failedLink {
				originals = append(originals, link)
				edits[link.SupplierID] = row
				delete(failed, link.SupplierID)
			}
			continue
		}
		if err := o.catalog.UnlinkSupplierProduct(ctx, link.SupplierID, d.productID); err != nil {
			errs = append(errs, PhaseError{Phase: PhaseSuppliers, Target: link.SupplierID, Err: err})
			originals = append(originals, link)
			removed[link.SupplierID] = struct{}{}
		}
	}

	var pending []SupplierRow
	for _, row := range desired {
		if r, ok := failed[row.SupplierID]; ok {
			pending = append(pending, r)
		}
	}
	d.originalLinks = originals
	d.linkEdits = edits
	d.removedLinks = removed
	d.supplierRows = pending
	return errs
}

func (o *Orchestrator) deleteMarkedImages(ctx context.Context, d *Draft) []PhaseError {
	var errs []PhaseError
	var remaining []string
	for _, id := range d.deleteImages {
		if err := o.catalog.DeleteProductImage(ctx, d.productID, id); err != nil {
			errs = append(errs, PhaseError{Phase: PhaseImages, Target: id, Err: err})
			remaining = append(remaining, id)
			continue
		}
		kept := d.existingImages[:0]
		for _, img := range d.existingImages {
			if img.ID != id {
				kept = append(kept, img)
			}
		}
		d.existingImages = kept
	}
	d.deleteImages = remaining
	return errs
}

func (o *Orchestrator) uploadProductImages(ctx context.Context, d *Draft) []PhaseError {
	if len(d.images) == 0 {
		return nil
	}
	if err := o.catalog.UploadProductImages(ctx, d.productID, stagedFiles(d.images), backend.UploadOptions{}); err != nil {
		return []PhaseError{{Phase: PhaseImages, Err: err}}
	}
	d.images = nil
	return nil
}

// unadoptedErrors reports rows left local after a create. Rows with staged images are
// already reported by the upload.
func unadoptedErrors(d *Draft, ids []RowID) []PhaseError {
	var errs []PhaseError
	for _, id := range ids {
		if len(d.variantImages[id]) > 0 {
			continue
		}
		errs = append(errs, PhaseError{Phase: PhaseVariantImages, Target: id.String(), Err: ErrVariantNotPersisted})
	}
	return errs
}

func (o *Orchestrator) uploadVariantImages(ctx context.Context, d *Draft) []PhaseError {
	var errs []PhaseError
	for _, row := range d.Variants() {
		staged := d.variantImages[row.ID]
		if len(staged) == 0 {
			continue
		}
		if row.ID.IsLocal() {
			errs = append(errs, PhaseError{Phase: PhaseVariantImages, Target: row.ID.String(), Err: ErrVariantNotPersisted})
			continue
		}
		opts := backend.UploadOptions{VariantID: row.ID.String()}
		if err := o.catalog.UploadProductImages(ctx, d.productID, stagedFiles(staged), opts); err != nil {
			errs = append(errs, PhaseError{Phase: PhaseVariantImages, Target: row.ID.String(), Err: err})
			continue
		}
		delete(d.variantImages, row.ID)
	}
	return errs
}

func (o *Orchestrator) syncListings(ctx context.Context, d *Draft) []PhaseError {
	var errs []PhaseError
	var pending []ListingDraft
	for _, l := range d.pendingListings {
		ch, err := EnsureMarketplaceChannel(ctx, o.catalog, l.Marketplace)
		if err != nil {
			errs = append(errs, PhaseError{Phase: PhaseListings, Target: l.ID, Err: err})
			pending = append(pending, l)
			continue
		}
		listing, err := o.catalog.AddProductMarketplaceListing(ctx, d.productID, backend.ListingPayload{
			ChannelID:  ch.ID,
			ExternalID: l.ExternalID,
			URL:        l.URL,
			Price:      catalog.ParseDecimal(l.Price),
		})
		if err != nil {
			errs = append(errs, PhaseError{Phase: PhaseListings, Target: l.ID, Err: err})
			pending = append(pending, l)
			continue
		}
		d.listings = append(d.listings, listing)
	}
	d.pendingListings = pending

	var removed []string
	for _, id := range d.removedListings {
		if err := o.catalog.DeleteProductMarketplaceListing(ctx, d.productID, id); err != nil {
			errs = append(errs, PhaseError{Phase: PhaseListings, Target: id, Err: err})
			removed = append(removed, id)
			continue
		}
		kept := d.listings[:0]
		for _, l := range d.listings {
			if l.ID != id {
				kept = append(kept, l)
			}
		}
		d.listings = kept
	}
	d.removedListings = removed
	return errs
}

func stagedFiles(staged []StagedImage) []backend.ImageFile {
	files := make([]backend.ImageFile, 0, len(staged))
	for _, s := range staged {
		files = append(files, s.File)
	}
	return files
}

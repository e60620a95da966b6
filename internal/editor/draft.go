package editor

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"finitefield.org/catalog-editor/internal/backend"
	"finitefield.org/catalog-editor/internal/catalog"
)

// OriginUnset marks an origin country that has not been chosen.
const OriginUnset = "UNSET"

// DefaultStatus is applied to new drafts when the host does not configure one.
const DefaultStatus = "active"

var (
	// ErrSimpleProductLocked indicates an existing simple product cannot gain variants.
	ErrSimpleProductLocked = errors.New("editor: simple product cannot be switched to variants")
	// ErrUnknownVariant indicates the row id is not part of the draft.
	ErrUnknownVariant = errors.New("editor: unknown variant row")
	// ErrNoVariants indicates an operation needed at least one variant row.
	ErrNoVariants = errors.New("editor: draft has no variant rows")
	// ErrUnknownField indicates the field key is not editable.
	ErrUnknownField = errors.New("editor: unknown field")
	// ErrDuplicateSupplier indicates the supplier is already in the active set.
	ErrDuplicateSupplier = errors.New("editor: supplier already linked")
	// ErrUnknownSupplier indicates the supplier is not part of the draft.
	ErrUnknownSupplier = errors.New("editor: unknown supplier")
	// ErrUnknownListing indicates the listing is not part of the draft.
	ErrUnknownListing = errors.New("editor: unknown listing")
	// ErrRowIDTaken indicates a durable id is already held by another row.
	ErrRowIDTaken = errors.New("editor: variant id already assigned to another row")
)

// Weight is a unit-bearing main/sub pair as entered in the form (lb+oz or kg+g).
type Weight struct {
	Main string `yaml:"main"`
	Sub  string `yaml:"sub"`
	Unit string `yaml:"unit"`
}

func (w Weight) isEmpty() bool {
	return strings.TrimSpace(w.Main) == "" && strings.TrimSpace(w.Sub) == ""
}

// Dimensions are length, width and height with a shared unit.
type Dimensions struct {
	Length string `yaml:"length"`
	Width  string `yaml:"width"`
	Height string `yaml:"height"`
	Unit   string `yaml:"unit"`
}

func (d Dimensions) isEmpty() bool {
	return strings.TrimSpace(d.Length) == "" && strings.TrimSpace(d.Width) == "" && strings.TrimSpace(d.Height) == ""
}

// Packaging is the in-form packaging type and quantity.
type Packaging struct {
	Type     string `yaml:"type"`
	Quantity string `yaml:"quantity"`
}

// Pricing holds parent-level prices.
type Pricing struct {
	Retail       string `yaml:"retail"`
	Cost         string `yaml:"cost"`
	LastPurchase string `yaml:"lastPurchase"`
}

// VariantPrice holds one row's prices.
type VariantPrice struct {
	Retail   string `yaml:"retail"`
	Original string `yaml:"original"`
	Purchase string `yaml:"purchase"`
}

// ParentFields are the parent-level form values.
type ParentFields struct {
	Name          string
	SKU           string
	Barcode       string
	BarcodeType   string
	Brand         string
	Status        string
	Category      string
	OriginCountry string
	Condition     string
	Weight        Weight
	Dimensions    Dimensions
	Packaging     Packaging
	SizeText      string
	ColorText     string
	StockOnHand   string
	Pricing       Pricing
}

// VariantRow is one child row of a variant product.
type VariantRow struct {
	ID          RowID
	SizeCode    string
	SizeText    string
	ColorText   string
	SKU         string
	Barcode     string
	Weight      Weight
	Dimensions  Dimensions
	Packaging   Packaging
	Active      bool
	StockOnHand string
	AutoSKU     bool
}

// SupplierRow associates a supplier with a last purchase price.
type SupplierRow struct {
	SupplierID        string
	LastPurchasePrice string
}

// StagedImage is a local file awaiting upload.
type StagedImage struct {
	ID   string
	File backend.ImageFile
}

// ListingDraft is a marketplace listing to be created on save.
type ListingDraft struct {
	ID          string
	Marketplace string
	ExternalID  string
	URL         string
	Price       string
}

// Draft is the in-memory product being authored. Variant rows and their prices are
// only mutated through Draft methods so the two stay keyed by the same row ids.
type Draft struct {
	Parent ParentFields

	productID      string
	currency       *currencyCell
	variantEnabled bool

	// editSimple locks an existing simple product out of variant mode. The backing
	// variant mirrors the parent SKU.
	editSimple        bool
	backingVariantID  string
	backingVariantSKU string

	variants []VariantRow
	prices   map[RowID]VariantPrice

	supplierRows  []SupplierRow
	originalLinks []backend.SupplierLink
	linkEdits     map[string]SupplierRow
	removedLinks  map[string]struct{}

	images         []StagedImage
	variantImages  map[RowID][]StagedImage
	existingImages []backend.Image
	deleteImages   []string

	listings        []backend.Listing
	pendingListings []ListingDraft
	removedListings []string

	missing map[string]string
	saved   []backend.ProductPayload
}

// NewDraft returns an empty create-mode draft.
func NewDraft(currency, status string) *Draft {
	d := &Draft{}
	d.init(status)
	d.SetCurrency(currency)
	return d
}

// init clears the draft. The currency cell is kept as is.
func (d *Draft) init(status string) {
	status = strings.TrimSpace(status)
	if status == "" {
		status = DefaultStatus
	}
	cell := d.currency
	if cell == nil {
		cell = &currencyCell{}
	}
	*d = Draft{
		currency: cell,
		Parent: ParentFields{
			Status:        status,
			OriginCountry: OriginUnset,
			Weight:        Weight{Unit: catalog.WeightUnitPound},
			Dimensions:    Dimensions{Unit: catalog.LengthUnitInch},
		},
		prices:        make(map[RowID]VariantPrice),
		linkEdits:     make(map[string]SupplierRow),
		removedLinks:  make(map[string]struct{}),
		variantImages: make(map[RowID][]StagedImage),
		missing:       make(map[string]string),
		saved:         d.saved,
	}
}

// Reset discards all state except the tenant currency and the saved-products list.
func (d *Draft) Reset() {
	d.init("")
}

// ResetForNext clears the fields that are unique per item while keeping the ones that
// usually repeat across a batch (status, origin, category, condition, units, packaging
// and parent prices).
func (d *Draft) ResetForNext() {
	keep := d.Parent
	d.init(keep.Status)
	d.Parent.OriginCountry = keep.OriginCountry
	d.Parent.Category = keep.Category
	d.Parent.Condition = keep.Condition
	d.Parent.BarcodeType = keep.BarcodeType
	d.Parent.Weight.Unit = keep.Weight.Unit
	d.Parent.Dimensions.Unit = keep.Dimensions.Unit
	d.Parent.Packaging = keep.Packaging
	d.Parent.Pricing = keep.Pricing
}

// ProductID returns the persisted product id, empty in create mode.
func (d *Draft) ProductID() string { return d.productID }

// IsEdit reports whether the draft targets an existing product.
func (d *Draft) IsEdit() bool { return d.productID != "" }

// currencyCell holds the tenant currency. Auth changes may land on another goroutine
// than the one editing the draft, and the cell survives draft resets.
type currencyCell struct {
	mu   sync.RWMutex
	code string
}

func (c *currencyCell) get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.code
}

func (c *currencyCell) set(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code = strings.ToUpper(strings.TrimSpace(code))
}

// Currency returns the tenant currency. Safe for concurrent use.
func (d *Draft) Currency() string {
	if d.currency == nil {
		return ""
	}
	return d.currency.get()
}

// SetCurrency replaces the tenant currency, for example after an auth change. Safe for
// concurrent use.
func (d *Draft) SetCurrency(code string) {
	if d.currency == nil {
		d.currency = &currencyCell{}
	}
	d.currency.set(code)
}

// VariantEnabled reports whether variant rows are authoritative.
func (d *Draft) VariantEnabled() bool { return d.variantEnabled }

// IsEditSimple reports whether the draft is locked as an existing simple product.
func (d *Draft) IsEditSimple() bool { return d.editSimple }

// Variants returns a copy of the variant rows in display order.
func (d *Draft) Variants() []VariantRow {
	return slices.Clone(d.variants)
}

// Variant returns the row with id.
func (d *Draft) Variant(id RowID) (VariantRow, bool) {
	i := d.indexOf(id)
	if i < 0 {
		return VariantRow{}, false
	}
	return d.variants[i], true
}

// Price returns the pricing entry of a row.
func (d *Draft) Price(id RowID) (VariantPrice, bool) {
	p, ok := d.prices[id]
	return p, ok
}

// PriceKeys returns the row ids present in the pricing table.
func (d *Draft) PriceKeys() []RowID {
	keys := make([]RowID, 0, len(d.prices))
	for k := range d.prices {
		keys = append(keys, k)
	}
	return keys
}

// Missing returns the last validation result.
func (d *Draft) Missing() map[string]string {
	out := make(map[string]string, len(d.missing))
	for k, v := range d.missing {
		out[k] = v
	}
	return out
}

// SavedProducts lists payloads saved through "save and add another".
func (d *Draft) SavedProducts() []backend.ProductPayload {
	return slices.Clone(d.saved)
}

func (d *Draft) indexOf(id RowID) int {
	for i := range d.variants {
		if d.variants[i].ID == id {
			return i
		}
	}
	return -1
}

// appendRow adds row and its pricing entry together.
func (d *Draft) appendRow(row VariantRow, price VariantPrice) {
	d.variants = append(d.variants, row)
	d.prices[row.ID] = price
}

// removeRow drops row i and its pricing entry together.
func (d *Draft) removeRow(i int) VariantRow {
	row := d.variants[i]
	d.variants = slices.Delete(d.variants, i, i+1)
	delete(d.prices, row.ID)
	delete(d.variantImages, row.ID)
	return row
}

// rekey replaces a local row id with its durable id, moving pricing and staged images.
// A durable id already held by another row is refused and the row keeps its id.
func (d *Draft) rekey(from, to RowID) error {
	i := d.indexOf(from)
	if i < 0 {
		return ErrUnknownVariant
	}
	if from == to {
		return nil
	}
	if d.indexOf(to) >= 0 {
		return fmt.Errorf("%w: %s", ErrRowIDTaken, to)
	}
	d.variants[i].ID = to
	d.prices[to] = d.prices[from]
	delete(d.prices, from)
	if imgs, ok := d.variantImages[from]; ok {
		d.variantImages[to] = imgs
		delete(d.variantImages, from)
	}
	return nil
}

// Suppliers.

// SupplierRows returns the active supplier set: create-mode rows, or in edit mode the
// existing links with overlays applied followed by pending rows.
func (d *Draft) SupplierRows() []SupplierRow {
	out := make([]SupplierRow, 0, len(d.originalLinks)+len(d.supplierRows))
	for _, link := range d.originalLinks {
		if _, removed := d.removedLinks[link.SupplierID]; removed {
			continue
		}
		if edit, ok := d.linkEdits[link.SupplierID]; ok {
			out = append(out, edit)
			continue
		}
		out = append(out, SupplierRow{SupplierID: link.SupplierID, LastPurchasePrice: decimalString(link.LastPurchasePrice)})
	}
	return append(out, d.supplierRows...)
}

func (d *Draft) supplierActive(id string) bool {
	for _, row := range d.SupplierRows() {
		if row.SupplierID == id {
			return true
		}
	}
	return false
}

// AddSupplier adds a supplier row. In edit mode the row is pending until saved.
func (d *Draft) AddSupplier(supplierID, lastPurchasePrice string) error {
	supplierID = strings.TrimSpace(supplierID)
	if supplierID == "" {
		return ErrUnknownSupplier
	}
	if d.supplierActive(supplierID) {
		return ErrDuplicateSupplier
	}
	// Re-adding a link removed earlier in the session restores it.
	if _, removed := d.removedLinks[supplierID]; removed {
		delete(d.removedLinks, supplierID)
		d.linkEdits[supplierID] = SupplierRow{SupplierID: supplierID, LastPurchasePrice: catalog.SanitizeDecimal(lastPurchasePrice)}
		return nil
	}
	d.supplierRows = append(d.supplierRows, SupplierRow{SupplierID: supplierID, LastPurchasePrice: catalog.SanitizeDecimal(lastPurchasePrice)})
	return nil
}

// EditSupplier re-points or re-prices the active supplier currentID.
func (d *Draft) EditSupplier(currentID, newSupplierID, lastPurchasePrice string) error {
	newSupplierID = strings.TrimSpace(newSupplierID)
	if newSupplierID == "" {
		newSupplierID = currentID
	}
	if newSupplierID != currentID && d.supplierActive(newSupplierID) {
		return ErrDuplicateSupplier
	}
	row := SupplierRow{SupplierID: newSupplierID, LastPurchasePrice: catalog.SanitizeDecimal(lastPurchasePrice)}
	for i := range d.supplierRows {
		if d.supplierRows[i].SupplierID == currentID {
			d.supplierRows[i] = row
			return nil
		}
	}
	for _, link := range d.originalLinks {
		if _, removed := d.removedLinks[link.SupplierID]; removed {
			continue
		}
		active := link.SupplierID
		if edit, ok := d.linkEdits[link.SupplierID]; ok {
			active = edit.SupplierID
		}
		if active == currentID {
			d.linkEdits[link.SupplierID] = row
			return nil
		}
	}
	return ErrUnknownSupplier
}

// RemoveSupplier drops the active supplier id.
func (d *Draft) RemoveSupplier(supplierID string) error {
	for i := range d.supplierRows {
		if d.supplierRows[i].SupplierID == supplierID {
			d.supplierRows = slices.Delete(d.supplierRows, i, i+1)
			return nil
		}
	}
	for _, link := range d.originalLinks {
		active := link.SupplierID
		if edit, ok := d.linkEdits[link.SupplierID]; ok {
			active = edit.SupplierID
		}
		if active == supplierID {
			if _, removed := d.removedLinks[link.SupplierID]; removed {
				continue
			}
			d.removedLinks[link.SupplierID] = struct{}{}
			delete(d.linkEdits, link.SupplierID)
			return nil
		}
	}
	return ErrUnknownSupplier
}

// Images.

func newStaged(files []backend.ImageFile) []StagedImage {
	out := make([]StagedImage, 0, len(files))
	for _, f := range files {
		out = append(out, StagedImage{ID: ulid.Make().String(), File: f})
	}
	return out
}

// StageImages replaces the product-level staged files.
func (d *Draft) StageImages(files ...backend.ImageFile) []StagedImage {
	d.images = newStaged(files)
	return slices.Clone(d.images)
}

// StageVariantImages replaces the staged files of a variant row.
func (d *Draft) StageVariantImages(id RowID, files ...backend.ImageFile) ([]StagedImage, error) {
	if d.indexOf(id) < 0 {
		return nil, ErrUnknownVariant
	}
	if len(files) == 0 {
		delete(d.variantImages, id)
		return nil, nil
	}
	d.variantImages[id] = newStaged(files)
	return slices.Clone(d.variantImages[id]), nil
}

// StagedImages returns product-level staged files.
func (d *Draft) StagedImages() []StagedImage { return slices.Clone(d.images) }

// StagedVariantImages returns the staged files of a row.
func (d *Draft) StagedVariantImages(id RowID) []StagedImage {
	return slices.Clone(d.variantImages[id])
}

// stagedIDs lists every staged file id, product and variant level.
func (d *Draft) stagedIDs() map[string]backend.ImageFile {
	out := make(map[string]backend.ImageFile)
	for _, img := range d.images {
		out[img.ID] = img.File
	}
	for _, imgs := range d.variantImages {
		for _, img := range imgs {
			out[img.ID] = img.File
		}
	}
	return out
}

// ExistingImages returns stored images loaded with the product.
func (d *Draft) ExistingImages() []backend.Image { return slices.Clone(d.existingImages) }

// MarkImageForDeletion schedules a stored image for removal on save.
func (d *Draft) MarkImageForDeletion(imageID string) bool {
	for _, img := range d.existingImages {
		if img.ID == imageID {
			if !slices.Contains(d.deleteImages, imageID) {
				d.deleteImages = append(d.deleteImages, imageID)
			}
			return true
		}
	}
	return false
}

// Listings.

// Listings returns stored marketplace listings not marked for removal.
func (d *Draft) Listings() []backend.Listing {
	out := make([]backend.Listing, 0, len(d.listings))
	for _, l := range d.listings {
		if !slices.Contains(d.removedListings, l.ID) {
			out = append(out, l)
		}
	}
	return out
}

// PendingListings returns listings to be created on save.
func (d *Draft) PendingListings() []ListingDraft { return slices.Clone(d.pendingListings) }

// AddListing stages a new marketplace listing.
func (d *Draft) AddListing(l ListingDraft) ListingDraft {
	l.ID = ulid.Make().String()
	l.Marketplace = strings.TrimSpace(l.Marketplace)
	l.ExternalID = strings.TrimSpace(l.ExternalID)
	l.URL = strings.TrimSpace(l.URL)
	l.Price = catalog.SanitizeDecimal(l.Price)
	d.pendingListings = append(d.pendingListings, l)
	return l
}

// RemoveListing drops a pending listing or marks a stored one for deletion.
func (d *Draft) RemoveListing(id string) error {
	for i := range d.pendingListings {
		if d.pendingListings[i].ID == id {
			d.pendingListings = slices.Delete(d.pendingListings, i, i+1)
			return nil
		}
	}
	for _, l := range d.listings {
		if l.ID == id {
			if !slices.Contains(d.removedListings, id) {
				d.removedListings = append(d.removedListings, id)
			}
			return nil
		}
	}
	return ErrUnknownListing
}

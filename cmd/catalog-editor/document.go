package main

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"finitefield.org/catalog-editor/internal/backend"
	"finitefield.org/catalog-editor/internal/editor"
)

// draftDocument is the YAML shape accepted by -draft. Parent and variant fields are
// keyed by the editor's field names so each entry flows through the same sanitizing
// and propagation path as an interactive edit.
type draftDocument struct {
	Parent    map[string]string `yaml:"parent"`
	Variants  []variantDocument `yaml:"variants"`
	Suppliers []struct {
		SupplierID        string `yaml:"supplierId"`
		LastPurchasePrice string `yaml:"lastPurchasePrice"`
	} `yaml:"suppliers"`
	Images         []string `yaml:"images"`
	RemoveImages   []string `yaml:"removeImages"`
	RemoveListings []string `yaml:"removeListings"`
	Listings       []struct {
		Marketplace string `yaml:"marketplace"`
		ExternalID  string `yaml:"externalId"`
		URL         string `yaml:"url"`
		Price       string `yaml:"price"`
	} `yaml:"listings"`
}

type variantDocument struct {
	// ID targets a stored variant when editing; empty rows are appended.
	ID     string            `yaml:"id"`
	Fields map[string]string `yaml:"fields"`
	Price  map[string]string `yaml:"price"`
	Active *bool             `yaml:"active"`
	Images []string          `yaml:"images"`
}

// parentFieldOrder applies type before quantity and SKU before anything that reads it.
var parentFieldOrder = []editor.Field{
	editor.FieldName,
	editor.FieldSKU,
	editor.FieldBarcodeType,
	editor.FieldBarcode,
	editor.FieldBrand,
	editor.FieldStatus,
	editor.FieldCategory,
	editor.FieldOrigin,
	editor.FieldCondition,
	editor.FieldWeightUnit,
	editor.FieldWeightMain,
	editor.FieldWeightSub,
	editor.FieldLengthUnit,
	editor.FieldLength,
	editor.FieldWidth,
	editor.FieldHeight,
	editor.FieldPackagingType,
	editor.FieldPackagingQuantity,
	editor.FieldSize,
	editor.FieldColor,
	editor.FieldStockOnHand,
	editor.FieldRetailPrice,
	editor.FieldCostPrice,
	editor.FieldLastPurchasePrice,
}

var variantFieldOrder = []editor.VariantField{
	editor.VariantSizeCode,
	editor.VariantSizeText,
	editor.VariantColor,
	editor.VariantSKU,
	editor.VariantBarcode,
	editor.VariantWeightUnit,
	editor.VariantWeightMain,
	editor.VariantWeightSub,
	editor.VariantLengthUnit,
	editor.VariantLength,
	editor.VariantWidth,
	editor.VariantHeight,
	editor.VariantPackagingType,
	editor.VariantPackagingQuantity,
	editor.VariantStockOnHand,
}

var priceFieldOrder = []editor.PriceField{
	editor.PriceRetail,
	editor.PriceOriginal,
	editor.PricePurchase,
}

func readDraftDocument(path string) (draftDocument, error) {
	var doc draftDocument
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read draft %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse draft %s: %w", path, err)
	}
	return doc, nil
}

// imageLoader resolves a path into an upload-ready file.
type imageLoader func(path string) (backend.ImageFile, error)

func loadImageFile(path string) (backend.ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return backend.ImageFile{}, fmt.Errorf("read image %s: %w", path, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return backend.ImageFile{Name: filepath.Base(path), ContentType: contentType, Data: data}, nil
}

// apply replays the document onto the session's draft.
func (doc draftDocument) apply(s *editor.Session, load imageLoader) error {
	d := s.Draft()

	known := make(map[string]bool, len(parentFieldOrder))
	for _, f := range parentFieldOrder {
		known[string(f)] = true
	}
	for name := range doc.Parent {
		if !known[name] {
			return fmt.Errorf("parent.%s: %w", name, editor.ErrUnknownField)
		}
	}
	for _, f := range parentFieldOrder {
		if v, ok := doc.Parent[string(f)]; ok {
			if err := d.ApplyFieldChange(f, v); err != nil {
				return fmt.Errorf("parent.%s: %w", f, err)
			}
		}
	}

	if len(doc.Variants) > 0 {
		if err := d.SetVariantEnabled(true); err != nil {
			return fmt.Errorf("enable variants: %w", err)
		}
	}
	seeded := d.Variants()
	for i, vd := range doc.Variants {
		id, err := resolveRow(d, vd, i, seeded)
		if err != nil {
			return fmt.Errorf("variants[%d]: %w", i, err)
		}
		if err := vd.applyTo(d, id); err != nil {
			return fmt.Errorf("variants[%d]: %w", i, err)
		}
		if len(vd.Images) > 0 {
			files, err := loadAll(vd.Images, load)
			if err != nil {
				return fmt.Errorf("variants[%d]: %w", i, err)
			}
			if _, err := s.StageVariantImages(id, files...); err != nil {
				return fmt.Errorf("variants[%d]: %w", i, err)
			}
		}
	}

	for _, sup := range doc.Suppliers {
		if err := d.AddSupplier(sup.SupplierID, sup.LastPurchasePrice); err != nil {
			return fmt.Errorf("supplier %q: %w", sup.SupplierID, err)
		}
	}

	if len(doc.Images) > 0 {
		files, err := loadAll(doc.Images, load)
		if err != nil {
			return err
		}
		s.StageImages(files...)
	}
	for _, imageID := range doc.RemoveImages {
		if !d.MarkImageForDeletion(imageID) {
			return fmt.Errorf("image %q is not stored on this product", imageID)
		}
	}

	for _, l := range doc.Listings {
		d.AddListing(editor.ListingDraft{
			Marketplace: l.Marketplace,
			ExternalID:  l.ExternalID,
			URL:         l.URL,
			Price:       l.Price,
		})
	}
	for _, listingID := range doc.RemoveListings {
		if err := d.RemoveListing(listingID); err != nil {
			return fmt.Errorf("listing %q: %w", listingID, err)
		}
	}
	return nil
}

// resolveRow picks the row a variant entry edits: an explicit stored id, the row seeded
// from the parent for the first entry of a fresh product, or a newly appended row.
func resolveRow(d *editor.Draft, vd variantDocument, i int, seeded []editor.VariantRow) (editor.RowID, error) {
	if vd.ID != "" {
		id := editor.ExistingRowID(vd.ID)
		if _, ok := d.Variant(id); !ok {
			return editor.RowID{}, editor.ErrUnknownVariant
		}
		return id, nil
	}
	if i == 0 && !d.IsEdit() && len(seeded) == 1 && seeded[0].ID.IsLocal() {
		return seeded[0].ID, nil
	}
	row, err := d.AddVariant()
	if err != nil {
		return editor.RowID{}, err
	}
	return row.ID, nil
}

func (vd variantDocument) applyTo(d *editor.Draft, id editor.RowID) error {
	known := make(map[string]bool, len(variantFieldOrder))
	for _, f := range variantFieldOrder {
		known[string(f)] = true
	}
	for name := range vd.Fields {
		if !known[name] {
			return fmt.Errorf("fields.%s: %w", name, editor.ErrUnknownField)
		}
	}
	for _, f := range variantFieldOrder {
		if v, ok := vd.Fields[string(f)]; ok {
			if err := d.SetVariantField(id, f, v); err != nil {
				return fmt.Errorf("fields.%s: %w", f, err)
			}
		}
	}
	for name := range vd.Price {
		switch editor.PriceField(name) {
		case editor.PriceRetail, editor.PriceOriginal, editor.PricePurchase:
		default:
			return fmt.Errorf("price.%s: %w", name, editor.ErrUnknownField)
		}
	}
	for _, f := range priceFieldOrder {
		if v, ok := vd.Price[string(f)]; ok {
			if err := d.SetVariantPrice(id, f, v); err != nil {
				return fmt.Errorf("price.%s: %w", f, err)
			}
		}
	}
	if vd.Active != nil {
		if err := d.SetVariantActive(id, *vd.Active); err != nil {
			return err
		}
	}
	return nil
}

func loadAll(paths []string, load imageLoader) ([]backend.ImageFile, error) {
	files := make([]backend.ImageFile, 0, len(paths))
	var errs []error
	for _, p := range paths {
		f, err := load(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return files, nil
}

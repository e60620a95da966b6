package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const defaultIdempotencyHeader = "Idempotency-Key"

// HTTPClient matches the subset of http.Client used by HTTPService.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() string { return string(t) }

// HTTPOption customises an HTTPService.
type HTTPOption func(*HTTPService)

// WithTokenSource sets the bearer token provider.
func WithTokenSource(src TokenSource) HTTPOption {
	return func(s *HTTPService) {
		s.tokens = src
	}
}

// WithIdempotencyHeader overrides the header carrying idempotency keys on POST requests.
func WithIdempotencyHeader(name string) HTTPOption {
	return func(s *HTTPService) {
		if strings.TrimSpace(name) != "" {
			s.idempotencyHeader = strings.TrimSpace(name)
		}
	}
}

// WithKeyGenerator overrides idempotency key generation.
func WithKeyGenerator(fn func() string) HTTPOption {
	return func(s *HTTPService) {
		if fn != nil {
			s.newKey = fn
		}
	}
}

// HTTPService implements Catalog backed by the catalog REST API.
type HTTPService struct {
	base              *url.URL
	client            HTTPClient
	tokens            TokenSource
	idempotencyHeader string
	newKey            func() string
	validate          *validator.Validate
}

var _ Catalog = (*HTTPService)(nil)

// NewHTTPService constructs a Catalog that talks to the backend API at baseURL.
func NewHTTPService(baseURL string, client HTTPClient, opts ...HTTPOption) (*HTTPService, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("backend: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: parse base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	svc := &HTTPService{
		base:              parsed,
		client:            client,
		tokens:            StaticToken(""),
		idempotencyHeader: defaultIdempotencyHeader,
		newKey:            func() string { return uuid.NewString() },
		validate:          validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateProduct posts a new product.
func (s *HTTPService) CreateProduct(ctx context.Context, payload ProductPayload) (CreatedProduct, error) {
	if payload.Variants == nil {
		payload.Variants = []VariantPayload{}
	}
	var out CreatedProduct
	if err := s.sendJSON(ctx, http.MethodPost, "/products", payload, &out, "create product"); err != nil {
		return CreatedProduct{}, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return CreatedProduct{}, errors.New("backend: create product: response missing id")
	}
	return out, nil
}

// UpdateProductParent patches parent-level fields.
func (s *HTTPService) UpdateProductParent(ctx context.Context, productID string, patch ParentPatch) error {
	id, err := requireID("product", productID)
	if err != nil {
		return err
	}
	return s.sendJSON(ctx, http.MethodPatch, path.Join("/products", url.PathEscape(id)), patch, nil, "update product")
}

// AddProductVariant creates a variant under productID.
func (s *HTTPService) AddProductVariant(ctx context.Context, productID string, payload VariantPayload) (VariantRef, error) {
	id, err := requireID("product", productID)
	if err != nil {
		return VariantRef{}, err
	}
	var out VariantRef
	endpoint := path.Join("/products", url.PathEscape(id), "variants")
	if err := s.sendJSON(ctx, http.MethodPost, endpoint, payload, &out, "add variant"); err != nil {
		return VariantRef{}, err
	}
	if out.SKU == "" {
		out.SKU = payload.SKU
	}
	return out, nil
}

// UpdateProductVariant patches a variant.
func (s *HTTPService) UpdateProductVariant(ctx context.Context, productID, variantID string, update VariantUpdate) error {
	pid, err := requireID("product", productID)
	if err != nil {
		return err
	}
	vid, err := requireID("variant", variantID)
	if err != nil {
		return err
	}
	if update == nil {
		return errors.New("backend: variant update is required")
	}
	endpoint := path.Join("/products", url.PathEscape(pid), "variants", url.PathEscape(vid))
	return s.sendJSON(ctx, http.MethodPatch, endpoint, update, nil, "update variant")
}

// UploadProductImages uploads files as multipart/form-data.
func (s *HTTPService) UploadProductImages(ctx context.Context, productID string, files []ImageFile, opts UploadOptions) error {
	id, err := requireID("product", productID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if variantID := strings.TrimSpace(opts.VariantID); variantID != "" {
		if err := mw.WriteField("variantId", variantID); err != nil {
			return fmt.Errorf("backend: encode upload: %w", err)
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		contentType := f.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(f.Data)
		}
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return fmt.Errorf("backend: encode upload: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return fmt.Errorf("backend: encode upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("backend: encode upload: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, path.Join("/products", url.PathEscape(id), "images"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.exchange(req, nil, "upload images")
}

// DeleteProductImage deletes a stored image.
func (s *HTTPService) DeleteProductImage(ctx context.Context, productID, imageID string) error {
	pid, err := requireID("product", productID)
	if err != nil {
		return err
	}
	iid, err := requireID("image", imageID)
	if err != nil {
		return err
	}
	endpoint := path.Join("/products", url.PathEscape(pid), "images", url.PathEscape(iid))
	return s.sendJSON(ctx, http.MethodDelete, endpoint, nil, nil, "delete image")
}

// LinkSupplierProducts upserts supplier links.
func (s *HTTPService) LinkSupplierProducts(ctx context.Context, supplierID string, productIDs []string, terms SupplierTerms) error {
	sid, err := requireID("supplier", supplierID)
	if err != nil {
		return err
	}
	if len(productIDs) == 0 {
		return errors.New("backend: at least one product id is required")
	}
	if err := s.validate.Struct(terms); err != nil {
		return fmt.Errorf("backend: invalid supplier terms: %w", err)
	}
	body := struct {
		ProductIDs []string `json:"productIds"`
		SupplierTerms
	}{ProductIDs: productIDs, SupplierTerms: terms}
	endpoint := path.Join("/suppliers", url.PathEscape(sid), "products")
	return s.sendJSON(ctx, http.MethodPost, endpoint, body, nil, "link supplier")
}

// UnlinkSupplierProduct removes a supplier link.
func (s *HTTPService) UnlinkSupplierProduct(ctx context.Context, supplierID, productID string) error {
	sid, err := requireID("supplier", supplierID)
	if err != nil {
		return err
	}
	pid, err := requireID("product", productID)
	if err != nil {
		return err
	}
	endpoint := path.Join("/suppliers", url.PathEscape(sid), "products", url.PathEscape(pid))
	return s.sendJSON(ctx, http.MethodDelete, endpoint, nil, nil, "unlink supplier")
}

// CreateMarketplaceChannel registers a marketplace channel.
func (s *HTTPService) CreateMarketplaceChannel(ctx context.Context, marketplace string) (Channel, error) {
	key, err := requireID("marketplace", marketplace)
	if err != nil {
		return Channel{}, err
	}
	var out Channel
	body := map[string]string{"marketplace": key}
	if err := s.sendJSON(ctx, http.MethodPost, "/marketplace/channels", body, &out, "create channel"); err != nil {
		return Channel{}, err
	}
	return out, nil
}

// SearchMarketplaceChannels lists channels matching query.
func (s *HTTPService) SearchMarketplaceChannels(ctx context.Context, query string) ([]Channel, error) {
	endpoint := "/marketplace/channels"
	if q := strings.TrimSpace(query); q != "" {
		endpoint += "?" + url.Values{"q": {q}}.Encode()
	}
	var out []Channel
	if err := s.sendJSON(ctx, http.MethodGet, endpoint, nil, &out, "search channels"); err != nil {
		return nil, err
	}
	return out, nil
}

// AddProductMarketplaceListing creates a marketplace listing.
func (s *HTTPService) AddProductMarketplaceListing(ctx context.Context, productID string, payload ListingPayload) (Listing, error) {
	id, err := requireID("product", productID)
	if err != nil {
		return Listing{}, err
	}
	if err := s.validate.Struct(payload); err != nil {
		return Listing{}, fmt.Errorf("backend: invalid listing: %w", err)
	}
	var out Listing
	endpoint := path.Join("/products", url.PathEscape(id), "marketplace-listings")
	if err := s.sendJSON(ctx, http.MethodPost, endpoint, payload, &out, "add listing"); err != nil {
		return Listing{}, err
	}
	return out, nil
}

// DeleteProductMarketplaceListing removes a marketplace listing.
func (s *HTTPService) DeleteProductMarketplaceListing(ctx context.Context, productID, listingID string) error {
	pid, err := requireID("product", productID)
	if err != nil {
		return err
	}
	lid, err := requireID("listing", listingID)
	if err != nil {
		return err
	}
	endpoint := path.Join("/products", url.PathEscape(pid), "marketplace-listings", url.PathEscape(lid))
	return s.sendJSON(ctx, http.MethodDelete, endpoint, nil, nil, "delete listing")
}

// GetProductMetaEnums fetches the form option sets.
func (s *HTTPService) GetProductMetaEnums(ctx context.Context) (MetaEnums, error) {
	var out MetaEnums
	if err := s.sendJSON(ctx, http.MethodGet, "/products/meta/enums", nil, &out, "meta enums"); err != nil {
		return MetaEnums{}, err
	}
	return out, nil
}

// GetProductByID fetches a product aggregate.
func (s *HTTPService) GetProductByID(ctx context.Context, productID string) (Product, error) {
	id, err := requireID("product", productID)
	if err != nil {
		return Product{}, err
	}
	var out Product
	if err := s.sendJSON(ctx, http.MethodGet, path.Join("/products", url.PathEscape(id)), nil, &out, "get product"); err != nil {
		return Product{}, err
	}
	return out, nil
}

func (s *HTTPService) sendJSON(ctx context.Context, method, endpoint string, payload, out any, op string) error {
	var body io.Reader
	if payload != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("backend: encode %s payload: %w", op, err)
		}
		body = &buf
	}
	req, err := s.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.exchange(req, out, op)
}

func (s *HTTPService) exchange(req *http.Request, out any, op string) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s: %w", op, err)
	}
	return nil
}

func (s *HTTPService) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.resolve(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.tokens != nil {
		if token := strings.TrimSpace(s.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if method == http.MethodPost {
		req.Header.Set(s.idempotencyHeader, s.newKey())
	}
	return req, nil
}

func (s *HTTPService) resolve(endpoint string) string {
	if endpoint == "" {
		return s.base.String()
	}
	trimmed := strings.TrimPrefix(endpoint, "/")
	ref, err := url.Parse(trimmed)
	if err != nil {
		ref = &url.URL{Path: trimmed}
	}
	return s.base.ResolveReference(ref).String()
}

func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
			return &APIError{Status: resp.StatusCode, Code: strings.TrimSpace(payload.Code), Message: payload.Message}
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}

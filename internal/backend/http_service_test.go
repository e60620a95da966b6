package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu      sync.Mutex
	headers []http.Header
	bodies  map[string][]byte
}

func (f *fakeAPI) capture(name string, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(r.Body)
	if f.bodies == nil {
		f.bodies = make(map[string][]byte)
	}
	f.bodies[name] = body
	f.headers = append(f.headers, r.Header.Clone())
}

func newTestService(t *testing.T, fake *fakeAPI) *HTTPService {
	t.Helper()

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/products", func(w http.ResponseWriter, r *http.Request) {
			fake.capture("create", r)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"prod_1","variants":[{"id":"var_1","sku":"ABC-M"}]}`))
		})
		r.Patch("/products/{id}/variants/{vid}", func(w http.ResponseWriter, r *http.Request) {
			fake.capture("variant:"+chi.URLParam(r, "vid"), r)
			w.WriteHeader(http.StatusNoContent)
		})
		r.Post("/products/{id}/images", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			fake.mu.Lock()
			fake.bodies = map[string][]byte{"variantId": []byte(r.FormValue("variantId"))}
			for _, fh := range r.MultipartForm.File["files"] {
				fake.bodies["file:"+fh.Filename] = []byte(fh.Header.Get("Content-Type"))
			}
			fake.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		})
		r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"not_found","message":"product missing"}`))
		})
		r.Get("/products/meta/enums", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ProductStatus":["active",{"value":"archived","label":"Archived"}]}`))
		})
		r.Get("/marketplace/channels", func(w http.ResponseWriter, r *http.Request) {
			fake.capture("search:"+r.URL.Query().Get("q"), r)
			_, _ = w.Write([]byte(`[{"id":"ch_1","marketplace":"amazon-us"}]`))
		})
		r.Post("/suppliers/{sid}/products", func(w http.ResponseWriter, r *http.Request) {
			fake.capture("link:"+chi.URLParam(r, "sid"), r)
			w.WriteHeader(http.StatusNoContent)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	keys := 0
	svc, err := NewHTTPService(srv.URL+"/api", srv.Client(),
		WithTokenSource(StaticToken("tok-123")),
		WithKeyGenerator(func() string {
			keys++
			return "key-" + string(rune('0'+keys))
		}),
	)
	require.NoError(t, err)
	return svc
}

func TestHTTPServiceCreateProductSendsEmptyVariants(t *testing.T) {
	fake := &fakeAPI{}
	svc := newTestService(t, fake)

	created, err := svc.CreateProduct(context.Background(), ProductPayload{
		Envelope:     Envelope{Name: "Tee", SKU: "T-1"},
		SimpleFields: &SimpleFields{Currency: "USD"},
	})
	require.NoError(t, err)
	require.Equal(t, "prod_1", created.ID)
	require.Equal(t, []VariantRef{{ID: "var_1", SKU: "ABC-M"}}, created.Variants)

	var body map[string]any
	require.NoError(t, json.Unmarshal(fake.bodies["create"], &body))
	require.Equal(t, []any{}, body["variants"])
	require.Equal(t, "Tee", body["name"])
	require.Equal(t, "USD", body["currency"])

	require.Len(t, fake.headers, 1)
	require.Equal(t, "Bearer tok-123", fake.headers[0].Get("Authorization"))
	require.Equal(t, "key-1", fake.headers[0].Get("Idempotency-Key"))
}

func TestHTTPServiceUpdateVariantSKUOnly(t *testing.T) {
	fake := &fakeAPI{}
	svc := newTestService(t, fake)

	err := svc.UpdateProductVariant(context.Background(), "prod_1", "var_9", VariantSKUPatch{SKU: "NEW"})
	require.NoError(t, err)
	require.JSONEq(t, `{"sku":"NEW"}`, string(fake.bodies["variant:var_9"]))
	require.Empty(t, fake.headers[0].Get("Idempotency-Key"))
}

func TestHTTPServiceUploadImagesMultipart(t *testing.T) {
	fake := &fakeAPI{}
	svc := newTestService(t, fake)

	files := []ImageFile{
		{Name: "front.png", ContentType: "image/png", Data: []byte("png")},
		{Name: "back.jpg", ContentType: "image/jpeg", Data: []byte("jpg")},
	}
	err := svc.UploadProductImages(context.Background(), "prod_1", files, UploadOptions{VariantID: "var_1"})
	require.NoError(t, err)
	require.Equal(t, "var_1", string(fake.bodies["variantId"]))
	require.Equal(t, "image/png", string(fake.bodies["file:front.png"]))
	require.Equal(t, "image/jpeg", string(fake.bodies["file:back.jpg"]))
}

func TestHTTPServiceUploadNoFilesIsNoop(t *testing.T) {
	svc, err := NewHTTPService("http://127.0.0.1:1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.UploadProductImages(context.Background(), "prod_1", nil, UploadOptions{}))
}

func TestHTTPServiceNotFoundMapsToSentinel(t *testing.T) {
	svc := newTestService(t, &fakeAPI{})

	_, err := svc.GetProductByID(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "not_found", apiErr.Code)
	require.Equal(t, "product missing", apiErr.Message)
}

func TestHTTPServiceMetaEnumsDecodesMixedShapes(t *testing.T) {
	svc := newTestService(t, &fakeAPI{})

	enums, err := svc.GetProductMetaEnums(context.Background())
	require.NoError(t, err)
	require.Len(t, enums.ProductStatus, 2)
	require.Equal(t, "active", enums.ProductStatus[0].Label)
	require.Equal(t, "Archived", enums.ProductStatus[1].Label)

	opts := enums.Options()
	require.NotEmpty(t, opts.Conditions)
}

func TestHTTPServiceSearchChannelsKeepsQuery(t *testing.T) {
	fake := &fakeAPI{}
	svc := newTestService(t, fake)

	channels, err := svc.SearchMarketplaceChannels(context.Background(), "amazon us")
	require.NoError(t, err)
	require.Len(t, channels, 1)
	_, ok := fake.bodies["search:amazon us"]
	require.True(t, ok)
}

func TestHTTPServiceLinkSupplierValidatesTerms(t *testing.T) {
	fake := &fakeAPI{}
	svc := newTestService(t, fake)
	price := decimal.RequireFromString("4.50")

	err := svc.LinkSupplierProducts(context.Background(), "sup_1", []string{"prod_1"}, SupplierTerms{LastPurchasePrice: &price, Currency: "ZZZ"})
	require.Error(t, err)
	require.Empty(t, fake.headers)

	err = svc.LinkSupplierProducts(context.Background(), "sup_1", []string{"prod_1"}, SupplierTerms{LastPurchasePrice: &price, Currency: "EUR"})
	require.NoError(t, err)
	require.JSONEq(t, `{"productIds":["prod_1"],"lastPurchasePrice":"4.5","currency":"EUR"}`, string(fake.bodies["link:sup_1"]))
}

func TestHTTPServiceListingValidation(t *testing.T) {
	svc := newTestService(t, &fakeAPI{})

	_, err := svc.AddProductMarketplaceListing(context.Background(), "prod_1", ListingPayload{URL: "not a url"})
	require.Error(t, err)
}

func TestHTTPServiceRequiresIDs(t *testing.T) {
	svc := newTestService(t, &fakeAPI{})

	require.Error(t, svc.UpdateProductParent(context.Background(), " ", ParentPatch{}))
	require.Error(t, svc.DeleteProductImage(context.Background(), "prod_1", ""))
	require.Error(t, svc.UnlinkSupplierProduct(context.Background(), "", "prod_1"))
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Simplici0/o.quotes/internal/db"
	"github.com/Simplici0/o.quotes/internal/migrations"
	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/quotation"
	"github.com/Simplici0/o.quotes/internal/store"
)

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()

	ctx := context.Background()
	database, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = migrations.Up(ctx, database, migrations.SQLite)
	require.NoError(t, err)
	return store.NewSQLite(database)
}

func newTestAPI(t *testing.T, s store.Store, token string) (http.Handler, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.InfoLevel)
	return NewRouter(Options{
		Store:           s,
		Logger:          zap.New(core),
		APIToken:        token,
		DefaultCurrency: "USD",
		Now:             func() time.Time { return fixedNow },
	}), logs
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const sampleQuotation = `{
	"title": "Office fit-out",
	"customer": {"name": "Acme Corp", "email": "buyer@acme.test"},
	"notes": "valid for 30 days",
	"service_charges": 20,
	"items": [
		{"description": "Consulting hours", "unit": "h", "quantity": 10, "rate": 100, "discount": 10, "discount_type": "percentage", "tax": 5, "tax_type": "percentage"},
		{"description": "Setup fee", "quantity": 2, "rate": 50, "discount": 5, "discount_type": "fixed", "tax": 2, "tax_type": "fixed"}
	]
}`

func TestHealth(t *testing.T) {
	h, _ := newTestAPI(t, newSQLiteStore(t), "secret")

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestInternalAuth(t *testing.T) {
	h, _ := newTestAPI(t, newSQLiteStore(t), "secret")

	rec := do(t, h, http.MethodGet, "/v1/quotations", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/v1/quotations", nil)
	req.Header.Set("X-Internal-Token", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/quotations", nil)
	req.Header.Set("X-Internal-Token", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPreviewLineItemJSON(t *testing.T) {
	h, _ := newTestAPI(t, newSQLiteStore(t), "")

	rec := do(t, h, http.MethodPost, "/v1/pricing/line-item",
		`{"quantity": 10, "rate": 100, "discount": 10, "discount_type": "percentage", "tax": 5, "tax_type": "percentage"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[pricing.Breakdown](t, rec)
	require.InDelta(t, 1000, got.Base, 1e-9)
	require.InDelta(t, 100, got.DiscountAmount, 1e-9)
	require.InDelta(t, 45, got.TaxAmount, 1e-9)
	require.InDelta(t, 945, got.Amount, 1e-9)
}

func TestPreviewLineItemRejectsBadJSON(t *testing.T) {
	h, _ := newTestAPI(t, newSQLiteStore(t), "")

	tests := map[string]string{
		"unknown field":       `{"quantity": 1, "price": 3}`,
		"percentage over 100": `{"quantity": 1, "rate": 10, "discount": 150, "discount_type": "percentage"}`,
		"negative rate":       `{"quantity": 1, "rate": -10}`,
		"unknown type":        `{"quantity": 1, "rate": 10, "tax_type": "vat"}`,
		"trailing data":       `{"quantity": 1} {"quantity": 2}`,
		"not json":            `quantity=1`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/pricing/line-item", body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestPreviewLineItemFormIsLenient(t *testing.T) {
	h, _ := newTestAPI(t, newSQLiteStore(t), "")

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/pricing/line-item", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := post(url.Values{
		"quantity": {"10 units"},
		"rate":     {"100"},
		"discount": {"10"},
		"tax":      {"5%"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.InDelta(t, 945, decode[pricing.Breakdown](t, rec).Amount, 1e-9)

	rec = post(url.Values{"quantity": {"abc"}, "rate": {"100"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Zero(t, decode[pricing.Breakdown](t, rec).Amount)
}

func TestPreviewLineItemClampOverride(t *testing.T) {
	h, _ := newTestAPI(t, newSQLiteStore(t), "")
	body := `{"quantity": 1, "rate": 50, "discount": 80, "discount_type": "fixed", "tax": 10, "tax_type": "percentage"}`

	rec := do(t, h, http.MethodPost, "/v1/pricing/line-item", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.InDelta(t, -33, decode[pricing.Breakdown](t, rec).Amount, 1e-9)

	rec = do(t, h, http.MethodPost, "/v1/pricing/line-item?clamp=true", body)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[pricing.Breakdown](t, rec)
	require.Zero(t, got.Amount)
	require.InDelta(t, 50, got.DiscountAmount, 1e-9)

	rec = do(t, h, http.MethodPost, "/v1/pricing/line-item?clamp=maybe", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewTotals(t *testing.T) {
	h, _ := newTestAPI(t, newSQLiteStore(t), "")

	rec := do(t, h, http.MethodPost, "/v1/pricing/totals", `{
		"service_charges": 20,
		"items": [
			{"quantity": 10, "rate": 100, "discount": 10, "discount_type": "percentage", "tax": 5, "tax_type": "percentage"},
			{"quantity": 2, "rate": 50, "discount": 5, "discount_type": "fixed", "tax": 2, "tax_type": "fixed"}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[totalsResponse](t, rec)
	require.Len(t, got.Items, 2)
	require.InDelta(t, 945, got.Items[0].Amount, 1e-9)
	require.InDelta(t, 97, got.Items[1].Amount, 1e-9)
	require.InDelta(t, 1100, got.Totals.Subtotal, 1e-9)
	require.InDelta(t, 105, got.Totals.TotalDiscount, 1e-9)
	require.InDelta(t, 47, got.Totals.TotalTax, 1e-9)
	require.InDelta(t, 1062, got.Totals.GrandTotal, 1e-9)

	rec = do(t, h, http.MethodPost, "/v1/pricing/totals", `{"service_charges": -1, "items": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "service_charges")
}

func TestQuotationLifecycle(t *testing.T) {
	h, logs := newTestAPI(t, newSQLiteStore(t), "")

	rec := do(t, h, http.MethodPost, "/v1/quotations", sampleQuotation)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[quotationResponse](t, rec)
	require.Equal(t, quotation.StatusDraft, created.Status)
	require.Equal(t, "USD", created.Currency)
	require.InDelta(t, 1062, created.Totals.GrandTotal, 1e-9)
	require.Equal(t, "USD 1,062.00", created.GrandTotalDisplay)
	require.True(t, created.CreatedAt.Equal(fixedNow))
	require.Equal(t, 1, logs.FilterMessage("quotation created").Len())

	base := "/v1/quotations/" + created.ID.String()

	rec = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[quotationResponse](t, rec)
	require.Len(t, got.Items, 2)
	require.InDelta(t, 945, got.Items[0].Breakdown.Amount, 1e-9)
	require.Equal(t, "h", got.Items[0].Unit)

	rec = do(t, h, http.MethodGet, "/v1/quotations?q=Acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Quotations []store.Summary `json:"quotations"`
	}](t, rec)
	require.Len(t, list.Quotations, 1)
	require.Equal(t, created.Number, list.Quotations[0].Number)

	rec = do(t, h, http.MethodPut, base, `{
		"title": "Office fit-out v2",
		"customer": {"name": "Acme Corp"},
		"service_charges": 0,
		"items": [{"description": "Setup fee", "quantity": 2, "rate": 50, "discount": 5, "discount_type": "fixed", "tax": 2, "tax_type": "fixed"}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[quotationResponse](t, rec)
	require.Equal(t, "Office fit-out v2", updated.Title)
	require.InDelta(t, 97, updated.Totals.GrandTotal, 1e-9)

	rec = do(t, h, http.MethodPost, base+"/status", `{"status": "sent"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, quotation.StatusSent, decode[quotationResponse](t, rec).Status)

	rec = do(t, h, http.MethodPut, base, sampleQuotation)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/status", `{"status": "sent"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/status", `{"status": "archived"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/status", `{"status": "accepted"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/quotations?status=accepted", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), created.Number)

	rec = do(t, h, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportQuotation(t *testing.T) {
	h, _ := newTestAPI(t, newSQLiteStore(t), "")

	rec := do(t, h, http.MethodPost, "/v1/quotations", sampleQuotation)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[quotationResponse](t, rec)
	base := "/v1/quotations/" + created.ID.String()

	rec = do(t, h, http.MethodGet, base+"/export.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "Grand total: USD 1,062.00")
	require.Contains(t, rec.Header().Get("Content-Disposition"), created.Number+".txt")

	rec = do(t, h, http.MethodGet, base+"/export.pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = do(t, h, http.MethodGet, base+"/export.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotZero(t, rec.Body.Len())

	rec = do(t, h, http.MethodGet, base+"/export.docx", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/quotations/"+uuid.NewString()+"/export.pdf", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateQuotationValidation(t *testing.T) {
	h, _ := newTestAPI(t, newSQLiteStore(t), "")

	rec := do(t, h, http.MethodPost, "/v1/quotations", `{"title": "", "items": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "title")

	rec = do(t, h, http.MethodPost, "/v1/quotations", `{"title": "No description", "items": [{"quantity": 1, "rate": 1}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "description")

	rec = do(t, h, http.MethodGet, "/v1/quotations/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/quotations?status=archived", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingStore struct{ err error }

func (s failingStore) Save(context.Context, *quotation.Quotation) error { return s.err }
func (s failingStore) Get(context.Context, uuid.UUID) (*quotation.Quotation, error) {
	return nil, s.err
}
func (s failingStore) List(context.Context, store.Filter) ([]store.Summary, error) {
	return nil, s.err
}
func (s failingStore) Delete(context.Context, uuid.UUID) error { return s.err }

func TestInternalErrorsAreLoggedNotExposed(t *testing.T) {
	h, logs := newTestAPI(t, failingStore{err: errors.New("disk on fire")}, "")

	rec := do(t, h, http.MethodGet, "/v1/quotations", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())

	failures := logs.FilterMessage("request failed").All()
	require.Len(t, failures, 1)
	require.Equal(t, "disk on fire", failures[0].ContextMap()["error"])

	requests := logs.FilterMessage("http request").All()
	require.Len(t, requests, 1)
	require.EqualValues(t, http.StatusInternalServerError, requests[0].ContextMap()["status"])
	require.Equal(t, "/v1/quotations", requests[0].ContextMap()["path"])
}

func TestPricingRejectsOverflow(t *testing.T) {
	h, _ := newTestAPI(t, newSQLiteStore(t), "")

	rec := do(t, h, http.MethodPost, "/v1/pricing/line-item", `{"quantity": 1e200, "rate": 1e200}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, decode[map[string]string](t, rec)["error"], "base")

	rec = do(t, h, http.MethodPost, "/v1/pricing/totals", `{"items": [
		{"quantity": 1, "rate": 1.7976931348623157e308, "discount_type": "fixed", "tax_type": "fixed"},
		{"quantity": 1, "rate": 1.7976931348623157e308, "discount_type": "fixed", "tax_type": "fixed"}
	]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, decode[map[string]string](t, rec)["error"], "totals")
}

func TestCreateQuotationRejectsOverflow(t *testing.T) {
	h, logs := newTestAPI(t, newSQLiteStore(t), "")

	rec := do(t, h, http.MethodPost, "/v1/quotations",
		`{"title": "Huge", "items": [{"description": "Too much", "quantity": 1e200, "rate": 1e200}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "base")

	rec = do(t, h, http.MethodPost, "/v1/quotations", `{"title": "Huge", "items": [
		{"description": "Half", "quantity": 1, "rate": 1.7976931348623157e308, "discount_type": "fixed", "tax_type": "fixed"},
		{"description": "Other half", "quantity": 1, "rate": 1.7976931348623157e308, "discount_type": "fixed", "tax_type": "fixed"}
	]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "totals")
	require.Zero(t, logs.FilterMessage("request failed").Len())
}

func TestDuplicateNumberIsConflict(t *testing.T) {
	h, logs := newTestAPI(t, failingStore{err: fmt.Errorf("%w: QT-20261014-ABCDEF", store.ErrDuplicateNumber)}, "")

	rec := do(t, h, http.MethodPost, "/v1/quotations", sampleQuotation)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "already in use")
	require.Zero(t, logs.FilterMessage("request failed").Len())
}

func TestRespondReportsEncodeFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := New(Options{Logger: zap.New(core)})

	req := httptest.NewRequest(http.MethodPost, "/v1/pricing/line-item", nil)
	rec := httptest.NewRecorder()
	h.respond(rec, req, http.StatusOK, map[string]float64{"amount": math.Inf(1)})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())

	failures := logs.FilterMessage("request failed").All()
	require.Len(t, failures, 1)
	require.Contains(t, failures[0].ContextMap()["error"], "encode response")
}

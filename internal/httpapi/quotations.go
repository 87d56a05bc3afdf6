package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/o.quotes/internal/export"
	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/quotation"
	"github.com/Simplici0/o.quotes/internal/store"
)

type itemPayload struct {
	Description string `json:"description"`
	Unit        string `json:"unit,omitempty"`
	pricing.LineItem
}

type quotationRequest struct {
	Title          string             `json:"title"`
	Customer       quotation.Customer `json:"customer"`
	Notes          string             `json:"notes"`
	Currency       string             `json:"currency"`
	ServiceCharges float64            `json:"service_charges"`
	ClampTaxable   *bool              `json:"clamp_taxable"`
	Items          []itemPayload      `json:"items"`
}

func (req quotationRequest) items() []quotation.Item {
	out := make([]quotation.Item, len(req.Items))
	for i, it := range req.Items {
		out[i] = quotation.Item{
			Description: strings.TrimSpace(it.Description),
			Unit:        strings.TrimSpace(it.Unit),
			LineItem:    it.LineItem.WithDefaults(),
		}
	}
	return out
}

type itemResponse struct {
	Description string `json:"description"`
	Unit        string `json:"unit,omitempty"`
	pricing.LineItem
	Breakdown pricing.Breakdown `json:"breakdown"`
}

type quotationResponse struct {
	ID                uuid.UUID          `json:"id"`
	Number            string             `json:"number"`
	Title             string             `json:"title"`
	Customer          quotation.Customer `json:"customer"`
	Notes             string             `json:"notes,omitempty"`
	Currency          string             `json:"currency"`
	Status            quotation.Status   `json:"status"`
	ClampTaxable      bool               `json:"clamp_taxable"`
	ServiceCharges    float64            `json:"service_charges"`
	Items             []itemResponse     `json:"items"`
	Totals            pricing.Totals     `json:"totals"`
	GrandTotalDisplay string             `json:"grand_total_display"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func newQuotationResponse(q *quotation.Quotation) quotationResponse {
	items := q.Items()
	resp := quotationResponse{
		ID:                q.ID,
		Number:            q.Number,
		Title:             q.Title,
		Customer:          q.Customer,
		Notes:             q.Notes,
		Currency:          q.Currency,
		Status:            q.Status,
		ClampTaxable:      q.Policy.ClampTaxable,
		ServiceCharges:    q.ServiceCharges,
		Items:             make([]itemResponse, len(items)),
		Totals:            q.Totals(),
		GrandTotalDisplay: pricing.FormatMoney(q.Totals().GrandTotal, q.Currency),
		CreatedAt:         q.CreatedAt,
		UpdatedAt:         q.UpdatedAt,
	}
	for i, it := range items {
		resp.Items[i] = itemResponse{
			Description: it.Description,
			Unit:        it.Unit,
			LineItem:    it.LineItem,
			Breakdown:   q.Policy.LineItem(it.LineItem),
		}
	}
	return resp
}

// CreateQuotation prices and stores a new draft.
func (h *Handlers) CreateQuotation(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	currency := req.Currency
	if strings.TrimSpace(currency) == "" {
		currency = h.currency
	}
	policy := h.policy
	if req.ClampTaxable != nil {
		policy.ClampTaxable = *req.ClampTaxable
	}

	q := quotation.New(req.Title, currency, policy, h.now())
	q.Customer = trimCustomer(req.Customer)
	q.Notes = strings.TrimSpace(req.Notes)
	if err := q.ReplaceItems(req.items()); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := q.SetServiceCharges(req.ServiceCharges); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.store.Save(r.Context(), q); err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("quotation created", zap.String("id", q.ID.String()), zap.String("number", q.Number))
	h.respond(w, r, http.StatusCreated, newQuotationResponse(q))
}

// ListQuotations accepts q, status and limit query parameters.
func (h *Handlers) ListQuotations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	f := store.Filter{Query: strings.TrimSpace(query.Get("q"))}

	if raw := query.Get("status"); raw != "" {
		status, err := quotation.ParseStatus(raw)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		f.Status = status
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: limit must be an integer", errBadRequest))
			return
		}
		f.Limit = limit
	}

	summaries, err := h.store.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, map[string]any{"quotations": summaries})
}

// GetQuotation returns a quotation with totals derived from its items.
func (h *Handlers) GetQuotation(w http.ResponseWriter, r *http.Request) {
	q, ok := h.load(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, newQuotationResponse(q))
}

// UpdateQuotation replaces the header, items and service charges of a draft.
func (h *Handlers) UpdateQuotation(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	q, ok := h.load(w, r)
	if !ok {
		return
	}
	if q.Status != quotation.StatusDraft {
		h.fail(w, r, fmt.Errorf("%w: status is %s", quotation.ErrNotEditable, q.Status))
		return
	}

	if req.ClampTaxable != nil {
		q.Policy.ClampTaxable = *req.ClampTaxable
	}
	if err := q.ReplaceItems(req.items()); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := q.SetServiceCharges(req.ServiceCharges); err != nil {
		h.fail(w, r, err)
		return
	}
	q.Title = strings.TrimSpace(req.Title)
	q.Customer = trimCustomer(req.Customer)
	q.Notes = strings.TrimSpace(req.Notes)
	if c := strings.TrimSpace(req.Currency); c != "" {
		q.Currency = strings.ToUpper(c)
	}
	q.UpdatedAt = h.now().UTC()

	if err := h.store.Save(r.Context(), q); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, newQuotationResponse(q))
}

type statusRequest struct {
	Status string `json:"status"`
}

// ChangeStatus moves a quotation along the status lifecycle.
func (h *Handlers) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := quotation.ParseStatus(req.Status)
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	q, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := q.Transition(to, h.now()); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.Save(r.Context(), q); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, newQuotationResponse(q))
}

// DeleteQuotation removes a quotation in any status.
func (h *Handlers) DeleteQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := quotationID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportQuotation renders a stored quotation as txt, pdf or xlsx.
func (h *Handlers) ExportQuotation(w http.ResponseWriter, r *http.Request) {
	renderer, err := export.ForFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	q, ok := h.load(w, r)
	if !ok {
		return
	}
	body, err := renderer.Render(q)
	if err != nil {
		h.fail(w, r, fmt.Errorf("render %s export: %w", renderer.Extension(), err))
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(q, renderer)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// load fetches the quotation named by the {id} URL parameter. It writes the
// error response itself and reports whether the handler should continue.
func (h *Handlers) load(w http.ResponseWriter, r *http.Request) (*quotation.Quotation, bool) {
	id, err := quotationID(r)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	q, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return q, true
}

func quotationID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid quotation id", errBadRequest)
	}
	return id, nil
}

func trimCustomer(c quotation.Customer) quotation.Customer {
	return quotation.Customer{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Simplici0/o.quotes/internal/pricing"
)

// PreviewLineItem prices a single item without storing anything. JSON bodies
// are validated strictly. Form bodies are coerced leniently the way the live
// editor does, then validated.
func (h *Handlers) PreviewLineItem(w http.ResponseWriter, r *http.Request) {
	var item pricing.LineItem
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			h.fail(w, r, fmt.Errorf("%w: invalid form", errBadRequest))
			return
		}
		item = lineItemFromForm(r)
	} else if err := decodeJSON(w, r, &item); err != nil {
		h.fail(w, r, err)
		return
	}

	item = item.WithDefaults()
	if err := item.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	policy, err := h.policyFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, policy.LineItem(item))
}

type totalsRequest struct {
	Items          []pricing.LineItem `json:"items"`
	ServiceCharges float64            `json:"service_charges"`
	ClampTaxable   *bool              `json:"clamp_taxable"`
}

type totalsResponse struct {
	Items  []pricing.Breakdown `json:"items"`
	Totals pricing.Totals      `json:"totals"`
}

// PreviewTotals rolls a list of items up into quotation totals.
func (h *Handlers) PreviewTotals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	errs := validation.Errors{}
	for i := range req.Items {
		req.Items[i] = req.Items[i].WithDefaults()
		if err := req.Items[i].Validate(); err != nil {
			errs[fmt.Sprintf("items.%d", i)] = err
		}
	}
	if err := pricing.ValidateServiceCharges(req.ServiceCharges); err != nil {
		errs["service_charges"] = err
	}
	if err := errs.Filter(); err != nil {
		h.fail(w, r, err)
		return
	}

	policy := h.policy
	if req.ClampTaxable != nil {
		policy.ClampTaxable = *req.ClampTaxable
	}

	resp := totalsResponse{
		Items:  make([]pricing.Breakdown, len(req.Items)),
		Totals: policy.Totals(req.Items, req.ServiceCharges),
	}
	for i, item := range req.Items {
		resp.Items[i] = policy.LineItem(item)
	}
	if err := resp.Totals.Validate(); err != nil {
		h.fail(w, r, validation.Errors{"totals": err})
		return
	}
	h.respond(w, r, http.StatusOK, resp)
}

func lineItemFromForm(r *http.Request) pricing.LineItem {
	kind := func(key string) pricing.AdjustmentType {
		return pricing.AdjustmentType(strings.ToLower(strings.TrimSpace(r.FormValue(key))))
	}
	return pricing.LineItem{
		Quantity:     pricing.Coerce(r.FormValue("quantity")),
		Rate:         pricing.Coerce(r.FormValue("rate")),
		Discount:     pricing.Coerce(r.FormValue("discount")),
		DiscountType: kind("discount_type"),
		Tax:          pricing.Coerce(r.FormValue("tax")),
		TaxType:      kind("tax_type"),
	}
}

// policyFor applies an optional ?clamp= override to the configured policy.
func (h *Handlers) policyFor(r *http.Request) (pricing.Policy, error) {
	policy := h.policy
	raw := r.URL.Query().Get("clamp")
	if raw == "" {
		return policy, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return policy, fmt.Errorf("%w: clamp must be a boolean", errBadRequest)
	}
	policy.ClampTaxable = v
	return policy, nil
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/quotation"
)

// quotationFile is the on-disk shape read by calc and export.
type quotationFile struct {
	Title          string             `json:"title" yaml:"title"`
	Customer       quotation.Customer `json:"customer" yaml:"customer"`
	Notes          string             `json:"notes" yaml:"notes"`
	Currency       string             `json:"currency" yaml:"currency"`
	ServiceCharges float64            `json:"service_charges" yaml:"service_charges"`
	ClampTaxable   bool               `json:"clamp_taxable" yaml:"clamp_taxable"`
	Items          []fileItem         `json:"items" yaml:"items"`
}

type fileItem struct {
	Description      string `json:"description" yaml:"description"`
	Unit             string `json:"unit" yaml:"unit"`
	pricing.LineItem `yaml:",inline"`
}

// readQuotationFile decodes a .json file strictly, anything else as YAML.
func readQuotationFile(path string) (quotationFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return quotationFile{}, fmt.Errorf("read quotation file: %w", err)
	}

	var f quotationFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return quotationFile{}, fmt.Errorf("parse %s: %w", path, err)
		}
		return f, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return quotationFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// build turns the file into a priced draft. clamp forces the clamping policy
// on even when the file leaves it off.
func (f quotationFile) build(defaultCurrency string, clamp bool, now time.Time) (*quotation.Quotation, error) {
	currency := f.Currency
	if strings.TrimSpace(currency) == "" {
		currency = defaultCurrency
	}

	q := quotation.New(f.Title, currency, pricing.Policy{ClampTaxable: f.ClampTaxable || clamp}, now)
	q.Customer = f.Customer
	q.Notes = strings.TrimSpace(f.Notes)

	items := make([]quotation.Item, len(f.Items))
	for i, it := range f.Items {
		items[i] = quotation.Item{
			Description: strings.TrimSpace(it.Description),
			Unit:        strings.TrimSpace(it.Unit),
			LineItem:    it.LineItem.WithDefaults(),
		}
	}
	if err := q.ReplaceItems(items); err != nil {
		return nil, err
	}
	if err := q.SetServiceCharges(f.ServiceCharges); err != nil {
		return nil, err
	}
	return q, nil
}

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/quotation"
	"github.com/Simplici0/o.quotes/internal/store"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// Handlers serves the pricing and quotation endpoints.
type Handlers struct {
	store    store.Store
	log      *zap.Logger
	currency string
	policy   pricing.Policy
	now      func() time.Time
}

// New builds Handlers, filling in defaults for unset options.
func New(opts Options) *Handlers {
	h := &Handlers{
		store:    opts.Store,
		log:      opts.Logger,
		currency: opts.DefaultCurrency,
		policy:   opts.Policy,
		now:      opts.Now,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.currency == "" {
		h.currency = "USD"
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// decodeJSON reads a single JSON document and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}

// writeJSON encodes v before writing the status. If v cannot be encoded the
// client gets a 500 and the encoding error is returned.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

func statusFor(err error) int {
	var (
		fieldErrs validation.Errors
		ruleErr   validation.Error
	)
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, quotation.ErrItemIndex),
		errors.As(err, &fieldErrs),
		errors.As(err, &ruleErr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, quotation.ErrNotEditable),
		errors.Is(err, quotation.ErrInvalidTransition),
		errors.Is(err, store.ErrDuplicateNumber):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error. Internal errors are logged and their
// message is not exposed.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

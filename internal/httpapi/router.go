package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/store"
)

// Options carries everything the API needs from the outside.
type Options struct {
	Store           store.Store
	Logger          *zap.Logger
	APIToken        string
	DefaultCurrency string
	Policy          pricing.Policy
	Now             func() time.Time
}

// NewRouter mounts the API under /v1 with logging and token auth.
func NewRouter(opts Options) http.Handler {
	h := New(opts)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(InternalAuth(opts.APIToken))

		r.Post("/pricing/line-item", h.PreviewLineItem)
		r.Post("/pricing/totals", h.PreviewTotals)

		r.Route("/quotations", func(r chi.Router) {
			r.Get("/", h.ListQuotations)
			r.Post("/", h.CreateQuotation)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetQuotation)
				r.Put("/", h.UpdateQuotation)
				r.Delete("/", h.DeleteQuotation)
				r.Post("/status", h.ChangeStatus)
				r.Get("/export.{format}", h.ExportQuotation)
			})
		})
	})

	return r
}

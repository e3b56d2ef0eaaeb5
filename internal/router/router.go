package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkorir/tradebase/internal/middleware"
	"github.com/mkorir/tradebase/internal/server"
	"github.com/mkorir/tradebase/internal/transaction"
	"github.com/mkorir/tradebase/internal/webhook"
)

type Handlers struct {
	Webhook     *webhook.WebhookHandler
	Transaction *transaction.TransactionHandler
}

func NewRouter(s *server.Server, h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	mw := middleware.NewMiddlewares(s)

	// Apply middleware in order
	r.Use(middleware.RequestID)
	r.Use(mw.Tracing.NewRelicMiddleware())
	r.Use(mw.Tracing.EnhanceTracing)
	r.Use(mw.ContextEnhancer.EnhanceContext)
	r.Use(mw.Global.RequestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		if err := s.Db.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Provider webhook ingestion
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/paddle", h.Webhook.HandlePaddle)
			r.Post("/mpesa", h.Webhook.HandleMpesa)
		})

		// Course checkout
		r.Route("/payments", func(r chi.Router) {
			r.Post("/intent", h.Transaction.InitializeCheckout)
		})
	})

	return r
}

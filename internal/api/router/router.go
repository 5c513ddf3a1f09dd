// Package router assembles the HTTP surface of the booking platform.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aquashine/carwash-ai-platform/internal/conversation"
	"github.com/aquashine/carwash-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/aquashine/carwash-ai-platform/internal/http/middleware"
	"github.com/aquashine/carwash-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	AdminRequests       *handlers.AdminRequestsHandler
	AdminTranscripts    *handlers.AdminTranscriptsHandler
	AdminAuthSecret     string
	MetricsHandler      http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.ConversationHandler != nil {
			public.Route("/conversations", func(r chi.Router) {
				r.Post("/message", cfg.ConversationHandler.Message)
				r.Get("/{conversationID}/completeness", cfg.ConversationHandler.Completeness)
			})
		}
	})

	if cfg.AdminRequests != nil || cfg.AdminTranscripts != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.AdminRequests != nil {
				admin.Get("/admin/requests", cfg.AdminRequests.List)
			}
			if cfg.AdminTranscripts != nil {
				admin.Get("/admin/conversations/{conversationID}/transcript", cfg.AdminTranscripts.List)
			}
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the service router: the unauthenticated inbound
// webhook endpoint, the JWT-protected admin API, and a health probe.
func NewRouter(inbound *InboundHandler, admin *AdminHandler, jwtSecret string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Use(chi_middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhook/{webhook_id}", inbound.HandleInbound)

	r.Route("/api/rooms/{room_id}", func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret, logger))
		r.Post("/webhooks", admin.HandleRegister)
		r.Get("/webhooks", admin.HandleList)
		r.Delete("/webhooks", admin.HandleUnregister)
		r.Post("/webhooks/enable", admin.HandleEnable)
		r.Post("/webhooks/disable", admin.HandleDisable)
		r.Post("/inbound", admin.HandleCreateIncoming)
		r.Delete("/inbound/{id}", admin.HandleDeleteIncoming)
	})

	return r
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/ahmadqo/event-certificate-service/docs" // Import generated docs
	"github.com/ahmadqo/event-certificate-service/internal/logger"
	appMiddleware "github.com/ahmadqo/event-certificate-service/internal/middleware"
	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/response"
)

type Router struct {
	certificateHandler *CertificateHandler
	approverHandler    *ApproverHandler
	jwtSecret          string
	logger             zerolog.Logger
}

func NewRouter(
	certificateHandler *CertificateHandler,
	approverHandler *ApproverHandler,
	jwtSecret string,
	logger zerolog.Logger,
) *Router {
	return &Router{
		certificateHandler: certificateHandler,
		approverHandler:    approverHandler,
		jwtSecret:          jwtSecret,
		logger:             logger,
	}
}

func (ro *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(logger.Requests(ro.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, "Server berjalan dengan baik", map[string]string{"status": "ok"})
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	admin := model.RoleAdmin
	coordinator := model.RoleCoordinator

	r.Route("/api/v1", func(r chi.Router) {

		// ── Public: verifikasi QR ─────────────────────────
		r.Get("/verify/{certificateId}", ro.certificateHandler.Verify)

		// ── Protected routes ──────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Authenticate(ro.jwtSecret))

			// Certificates
			r.Route("/certificates", func(r chi.Router) {
				r.Get("/stats", ro.certificateHandler.Stats)
				r.Get("/{id}", ro.certificateHandler.GetByID)
				r.Get("/{id}/download", ro.certificateHandler.Download)

				r.Group(func(r chi.Router) {
					r.Use(appMiddleware.RequireRole(admin, coordinator))
					r.Post("/", ro.certificateHandler.Create)
					r.Post("/{id}/generate", ro.certificateHandler.Generate)
					r.Post("/{id}/cleanup", ro.certificateHandler.Cleanup)
					r.Patch("/{id}/status", ro.certificateHandler.UpdateStatus)
					r.Post("/{id}/force-regenerate", ro.certificateHandler.ForceRegenerate)
				})

				// Bulk (admin only)
				r.Group(func(r chi.Router) {
					r.Use(appMiddleware.RequireRole(admin))
					r.Post("/bulk", ro.certificateHandler.Bulk)
					r.Post("/regenerate", ro.certificateHandler.RegenerateAll)
				})
			})

			r.Get("/participants/{id}/certificates", ro.certificateHandler.ListByParticipant)

			r.Route("/events/{id}/certificates", func(r chi.Router) {
				r.Get("/", ro.certificateHandler.ListByEvent)
				r.With(appMiddleware.RequireRole(admin)).Post("/regenerate", ro.certificateHandler.RegenerateEvent)
			})

			// Approvers (admin only)
			r.Route("/approvers", func(r chi.Router) {
				r.Use(appMiddleware.RequireRole(admin))
				r.Get("/", ro.approverHandler.List)
				r.Post("/", ro.approverHandler.Create)
				r.Get("/current", ro.approverHandler.Current)
				r.Post("/{id}/activate", ro.approverHandler.Activate)
				r.Post("/{id}/deactivate", ro.approverHandler.Deactivate)
				r.Post("/{id}/signature", ro.approverHandler.UploadSignature)
			})
		})
	})

	return r
}

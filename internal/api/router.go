package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/acadops/timetable-backend/internal/api/handlers"
	"github.com/acadops/timetable-backend/internal/api/httpx"
	"github.com/acadops/timetable-backend/internal/auth"
	"github.com/acadops/timetable-backend/internal/config"
	"github.com/acadops/timetable-backend/internal/metrics"
	"github.com/acadops/timetable-backend/internal/middleware"
	"github.com/acadops/timetable-backend/internal/models"
	"github.com/acadops/timetable-backend/internal/services"
)

type Deps struct {
	Cfg      config.Config
	TM       *auth.TokenManager
	AuthSvc  *services.AuthService
	UserSvc  *services.UserService
	AuditSvc *services.AuditService
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(d.Cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// The interceptor wraps everything below; its own exclusion rules keep
	// health, metrics, auth and the audit read API out of the trail.
	interceptor := middleware.NewAuditInterceptor(d.TM, d.AuditSvc)
	r.Use(interceptor.Intercept)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "timetable admin API", "version": "1.0.0"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authMW := middleware.NewAuthMiddleware(d.TM)
	authH := handlers.NewAuthHandler(d.AuthSvc)
	userH := handlers.NewUserHandler(d.UserSvc)
	auditH := handlers.NewAuditLogHandler(d.AuditSvc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authH.Login)
			r.Post("/forgot-password", authH.ForgotPassword)
			r.Post("/reset-password", authH.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireAuth)
				r.Get("/me", authH.Me)
				r.Post("/logout", authH.Logout)
				r.Post("/refresh", authH.Refresh)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authMW.RequireAuth)

			r.Route("/me", func(r chi.Router) {
				r.Get("/profile", userH.Me)
				r.Put("/profile", userH.UpdateMe)
				r.Put("/password", userH.ChangePassword)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Post("/", userH.Create)
				r.Get("/", userH.List)
				r.Get("/{id}", userH.Get)
				r.Put("/{id}", userH.Update)
				r.Delete("/{id}", userH.Delete)
			})
		})

		r.Route("/audit-logs", func(r chi.Router) {
			r.Use(authMW.RequireAuth, middleware.RequireRole(models.RoleAdmin))
			r.Get("/", auditH.List)
			r.Get("/{id}", auditH.Get)
		})
	})

	return r
}

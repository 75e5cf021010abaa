package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tallyops/stockcount-backend/api/controllers"
	"github.com/tallyops/stockcount-backend/api/middleware"
	"github.com/tallyops/stockcount-backend/internal/auth"
	"github.com/tallyops/stockcount-backend/internal/notifications"
	"github.com/tallyops/stockcount-backend/internal/products"
	"github.com/tallyops/stockcount-backend/internal/reconciliations"
	"github.com/tallyops/stockcount-backend/internal/users"
	"github.com/tallyops/stockcount-backend/pkg/auth/session"
	"github.com/tallyops/stockcount-backend/pkg/config"
	"github.com/tallyops/stockcount-backend/pkg/db"
	"github.com/tallyops/stockcount-backend/pkg/enums"
	"github.com/tallyops/stockcount-backend/pkg/logger"
	"github.com/tallyops/stockcount-backend/pkg/metrics"
	"github.com/tallyops/stockcount-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	SessionManager  sessionManager
	HTTPMetrics     *metrics.HTTPMetrics
	MetricsHandler  http.Handler
	AuthService     auth.Service
	UsersService    users.Service
	ProductsService products.Service
	Reconciliations reconciliations.Service
	Notifications   notifications.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	metricsHandler := p.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.AuthService, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))

		r.Route("/reconciliations", func(r chi.Router) {
			r.Post("/", controllers.ReconciliationCreate(p.Reconciliations, logg))
			r.Get("/", controllers.ReconciliationList(p.Reconciliations, logg))
			r.Get("/{reconciliationId}", controllers.ReconciliationGet(p.Reconciliations, logg))
			r.Patch("/{reconciliationId}", controllers.ReconciliationUpdate(p.Reconciliations, logg))
			r.Delete("/{reconciliationId}", controllers.ReconciliationDelete(p.Reconciliations, logg))
			r.Post("/{reconciliationId}/submit", controllers.ReconciliationSubmit(p.Reconciliations, logg))
			r.Post("/{reconciliationId}/approve", controllers.ReconciliationApprove(p.Reconciliations, logg))
			r.Post("/{reconciliationId}/reject", controllers.ReconciliationReject(p.Reconciliations, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(p.ProductsService, logg))
			r.Get("/", controllers.ProductList(p.ProductsService, logg))
			r.Get("/{productId}", controllers.ProductGet(p.ProductsService, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(p.ProductsService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
			r.Post("/", controllers.UserCreate(p.UsersService, logg))
			r.Get("/", controllers.UserList(p.UsersService, logg))
			r.Patch("/{userId}/active", controllers.UserSetActive(p.UsersService, logg))
		})
	})

	return r
}

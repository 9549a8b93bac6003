package scorecard

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/scorecard-backend/internal/config"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/handlers/admin/userlist"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/handlers/admin/userremove"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/handlers/forgotpassword"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/handlers/login"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/handlers/logout"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/handlers/removeaccount"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/handlers/resetpassword"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/handlers/signup"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/handlers/status"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/handlers/webhook"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/mware"
	authservice "github.com/magabrotheeeer/scorecard-backend/internal/services/auth"
	billingservice "github.com/magabrotheeeer/scorecard-backend/internal/services/billing"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authService *authservice.AuthService, billingService *billingservice.BillingService, cfg *config.Config) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		mware.MetricsMiddleware,
	)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Открытые конечные точки
			r.Post("/signup", signup.New(logger, authService).ServeHTTP)
			r.Get("/status", status.New(logger, authService).ServeHTTP)
			r.Post("/logout", logout.New(logger, authService).ServeHTTP)
			r.Post("/reset-password", resetpassword.New(logger, authService).ServeHTTP)

			// Точки с ограничением частоты: перебор паролей и перечисление
			// почтовых адресов должны упираться в лимит
			r.Group(func(r chi.Router) {
				r.Use(mware.RateLimitMiddleware(2, 5, logger))
				r.Post("/login", login.New(logger, authService, cfg.Tokens.SessionTTL).ServeHTTP)
				r.Post("/forgot-password", forgotpassword.New(logger, authService).ServeHTTP)
			})
		})

		// Группа с проверкой сессии
		r.Group(func(r chi.Router) {
			r.Use(mware.SessionMiddleware(authService, logger))
			r.Delete("/account", removeaccount.New(logger, authService).ServeHTTP)

			r.Route("/admin", func(r chi.Router) {
				r.Use(mware.AdminOnlyMiddleware(logger))
				r.Get("/users", userlist.New(logger, authService).ServeHTTP)
				r.Delete("/users/{username}", userremove.New(logger, authService).ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации, подпись в заголовке)
		r.Post("/billing/webhook", webhook.New(logger, billingService, cfg.Billing.WebhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

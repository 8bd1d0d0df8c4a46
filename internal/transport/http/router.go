package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	auditapp "github.com/solace-api/internal/application/audit"
	"github.com/solace-api/internal/application/auth"
	"github.com/solace-api/internal/application/cutover"
	"github.com/solace-api/internal/application/dashboard"
	"github.com/solace-api/internal/config"
	"github.com/solace-api/internal/infrastructure/idp"
	jwtinfra "github.com/solace-api/internal/infrastructure/jwt"
	redisinfra "github.com/solace-api/internal/infrastructure/redis"
	"github.com/solace-api/internal/infrastructure/smtp"
	"github.com/solace-api/internal/pkg/cache"
	"github.com/solace-api/internal/pkg/csrf"
	"github.com/solace-api/internal/transport/http/handler"
	appmiddleware "github.com/solace-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    UserRepository
	TokenRepo   TokenRepository
	AuditRepo   AuditRepository
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
	Limiter     *redisinfra.SlidingWindowLimiter
	IDP         idp.Adapter
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", csrf.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	auditor := auditapp.NewRecorder(deps.AuditRepo)
	guard := csrf.New(cfg.CSRFSigningSecret, cfg.IsProduction())
	csrfMw := appmiddleware.Csrf(guard, auditor)

	// 5 requests/second, burst of 10 — the coarse per-IP shield in front of
	// the distributed per-operation windows.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	signupRL := appmiddleware.OperationLimit(deps.Limiter, auditor, "signup", 5, 10*time.Minute)
	verifyRL := appmiddleware.OperationLimit(deps.Limiter, auditor, "verify", 10, 10*time.Minute)
	resetRL := appmiddleware.OperationLimit(deps.Limiter, auditor, "reset", 5, 10*time.Minute)
	loginRL := appmiddleware.OperationLimit(deps.Limiter, auditor, "login", 20, 5*time.Minute)
	dashboardRL := appmiddleware.OperationLimit(deps.Limiter, auditor, "dashboard", 120, time.Minute)

	cut := cutover.NewController(cutover.ResolveMode(cfg.CutoverMode), deps.UserRepo, deps.IDP, auditor)

	var signer auth.BearerSigner
	if deps.JWTProvider != nil {
		signer = deps.JWTProvider
	}

	authSvc := auth.NewService(
		deps.UserRepo, deps.TokenRepo, deps.Mailer, cut, signer, auditor,
		cfg.PublicBaseURL, cfg.VerifyTokenTTL, cfg.ResetTokenTTL,
	)
	dashboardSvc := dashboard.NewService(deps.UserRepo, cache.New())

	healthH := handler.NewHealthHandler()
	securityH := handler.NewSecurityHandler(guard)
	authH := handler.NewAuthHandler(authSvc)
	dashboardH := handler.NewDashboardHandler(dashboardSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.Get("/security/csrf", securityH.CsrfToken)

		r.Route("/auth", func(r chi.Router) {
			r.Use(csrfMw)

			r.With(sensitiveRL.Limit, signupRL).Post("/signup", authH.Signup)
			r.With(verifyRL).Get("/verify-email", authH.VerifyEmail)
			r.With(sensitiveRL.Limit, resetRL).Post("/forgot-password", authH.ForgotPassword)
			r.With(resetRL).Post("/reset-password", authH.ResetPassword)
			r.With(sensitiveRL.Limit, loginRL).Post("/login", authH.Login)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(dashboardRL).Get("/dashboard/summary", dashboardH.Summary)
		})
	})

	return r
}

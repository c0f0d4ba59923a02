package api

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hirelane/portal/internal/api/handler"
	"github.com/hirelane/portal/internal/api/middleware"
	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/core/ports"
)

const (
	loginPath   = "/login"
	landingPath = "/"
)

// Deps is everything the router wires into handlers. Mongo, Redis and
// Events may be nil.
type Deps struct {
	Tabs         middleware.TabRegistry
	Events       ports.SessionEventRepository
	Mongo        *mongo.Database
	Redis        *redis.Client
	SecureCookie bool
	CookieMaxAge time.Duration
	Log          zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(loginPath, deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))

	// --- Health probes and metrics (no tab required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	tab := middleware.Tab(deps.Tabs, middleware.TabConfig{Secure: deps.SecureCookie, MaxAge: deps.CookieMaxAge})
	session := middleware.SessionGuard(loginPath)

	// --- Public tab routes ---
	authHandler := handler.NewAuthHandler()
	e.GET(loginPath, authHandler.LoginView, tab)
	e.POST(loginPath, authHandler.Login, tab)
	e.POST("/logout", authHandler.Logout, tab)
	e.POST("/register", authHandler.Register, tab)
	e.POST("/password-reset/request", authHandler.RequestPasswordReset, tab)
	e.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset, tab)

	// --- Any logged-in role ---
	e.GET(landingPath, authHandler.Home, tab, session)
	e.GET("/me", authHandler.Me, tab, session)
	e.PUT("/me/password", authHandler.ChangePassword, tab, session)

	// --- Role-gated views ---
	dash := handler.NewDashboardHandler(deps.Events)

	candidate := e.Group("/candidate", tab, session, middleware.RoleGuard(landingPath, domain.RoleCandidate))
	candidate.GET("/dashboard", dash.CandidateDashboard)
	candidate.POST("/resume", dash.UploadResume)

	hr := e.Group("/hr", tab, session, middleware.RoleGuard(landingPath, domain.RoleHR))
	hr.GET("/dashboard", dash.HRDashboard)
	hr.GET("/candidates", dash.ListCandidates)

	admin := e.Group("/admin", tab, session, middleware.RoleGuard(landingPath, domain.RoleAdmin))
	admin.GET("/dashboard", dash.AdminDashboard)
	admin.GET("/users", dash.ListUsers)
	admin.GET("/session-events", dash.SessionEvents)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

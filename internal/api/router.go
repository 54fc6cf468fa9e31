package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/user-directory/docs"
	"github.com/99minutos/user-directory/internal/api/handler"
	"github.com/99minutos/user-directory/internal/api/middleware"
	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Directory ports.DirectoryService
	Auth      ports.AuthService
	// Health names the dependencies probed by /health/ready.
	Health map[string]handler.Pinger
	Logger zerolog.Logger
	// Registry receives the HTTP metrics and backs /metrics. Nil means the
	// default Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	promCfg := echoprometheus.MiddlewareConfig{Subsystem: "directory"}
	scrapeCfg := echoprometheus.HandlerConfig{}
	if deps.Registry != nil {
		promCfg.Registerer = deps.Registry
		scrapeCfg.Gatherer = deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))

	// --- Ops endpoints (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Health)
	e.GET("/health", healthHandler.Liveness)                          // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness)                   // readiness – is the store up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(scrapeCfg)) // prometheus scrape
	e.GET("/swagger/*", echoSwagger.WrapHandler)                      // OpenAPI UI

	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Directory)

	v1 := e.Group("/api/v1")
	v1.POST("/oauth2/login", authHandler.Login)

	// --- Authenticated routes ---
	users := v1.Group("/users", middleware.Auth(deps.Auth), middleware.RequireActivated(deps.Auth))
	admin := middleware.RBAC(deps.Auth, domain.RoleAdmin)
	managerOrAdmin := middleware.SelfOrRBAC(deps.Auth, "user_id", domain.RoleAdmin)

	users.GET("/my-user", authHandler.MyUser)
	users.PUT("/:user_id/password", authHandler.ChangePassword)

	users.GET("", userHandler.List)
	users.GET("/:user_id", userHandler.Get)
	users.GET("/:user_id/subordinates", userHandler.ListSubordinates)

	users.POST("", userHandler.Create, admin)
	users.POST("/bulk", userHandler.Bulk, admin)
	users.PUT("/:user_id", userHandler.Update, admin)
	users.PATCH("/:user_id", userHandler.Patch, admin)
	users.DELETE("/:user_id", userHandler.Delete, admin)
	users.DELETE("", userHandler.DeleteAll, admin)

	users.POST("/:user_id/subordinates/:subordinate_id", userHandler.AddSubordinate, managerOrAdmin)
	users.DELETE("/:user_id/subordinates/:subordinate_id", userHandler.RemoveSubordinate, managerOrAdmin)

	return e
}

// requestLogger writes one zerolog entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

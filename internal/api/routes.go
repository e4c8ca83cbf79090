// routes.go - Route registration and middleware setup
package api

import (
	"net/http"
	"strings"
	"time"

	"document-assistant/internal/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.HandleHealth)

	sessions := e.Group("/api/sessions")
	sessions.POST("", h.HandleCreateSession)
	sessions.GET("/:id", h.HandleGetSession)
	sessions.DELETE("/:id", h.HandleDeleteSession)
	sessions.PUT("/:id/mode", h.HandleSetMode)

	sessions.POST("/:id/documents", h.HandleUploadDocuments)
	sessions.GET("/:id/documents", h.HandleListDocuments)
	sessions.POST("/:id/images", h.HandleExtractImage)

	sessions.POST("/:id/ask", h.HandleAsk)
	sessions.GET("/:id/history", h.HandleGetHistory)
	sessions.DELETE("/:id/history", h.HandleResetHistory)
	sessions.POST("/:id/feedback", h.HandleAddFeedback)
	sessions.GET("/:id/feedback", h.HandleListFeedback)
	sessions.GET("/:id/report", h.HandleReport)
}

// SetupMiddleware configures the error handler and common middleware
func SetupMiddleware(e *echo.Echo, cfg *config.ServerConfig) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(RequestLogger())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().Err(err).Bytes("stack", stack).Msg("Recovered from panic")
			return err
		},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	origins := splitOrigins(cfg.AllowOrigins)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
}

// RequestLogger logs one zerolog event per request.
func RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency.Round(time.Millisecond)).
				Msg("request")
			return nil
		},
	})
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

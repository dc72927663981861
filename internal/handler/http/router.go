package http

import (
	"log/slog"
	"os"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/time/rate"
)

type RouterOptions struct {
	Logger          *slog.Logger
	LogLevel        slog.Level
	AllowedOrigins  []string
	SecureCookies   bool
	DeviceCookieTTL time.Duration
	RateLimit       rate.Limit
	RateBurst       int
	WorkflowTimeout time.Duration
}

// NewLogger builds the ECS-formatted JSON logger shared by the request logger and the app.
func NewLogger(app, version, env string, level slog.Level) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", app),
		slog.String("version", version),
		slog.String("env", env),
	)
}

func NewRouter(opts RouterOptions, jwtService jwt.Service, kioskHandler KioskHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.DeviceIDHeader},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	workflowTimeout := opts.WorkflowTimeout
	if workflowTimeout <= 0 {
		workflowTimeout = 60 * time.Second
	}

	r.Route("/api/v1/kiosk", func(r chi.Router) {
		r.Use(middleware.DeviceIdentity(opts.SecureCookies, opts.DeviceCookieTTL))
		r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
		r.Use(middleware.HROverride(jwtService))

		// Event streams stay open, so they skip the request rate limit.
		r.Get("/events", kioskHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByDevice(middleware.NewKeyedRateLimiter(opts.RateLimit, opts.RateBurst)))
			r.Use(chiMiddleware.AllowContentType("application/json"))

			r.Get("/session", kioskHandler.Session)
			r.Get("/history", kioskHandler.History)

			r.Get("/status/{employeeID}", kioskHandler.Status)
			r.Get("/availability/{employeeID}", kioskHandler.Availability)

			r.With(chiMiddleware.Timeout(workflowTimeout)).Post("/clock-in", kioskHandler.ClockIn)
			r.With(chiMiddleware.Timeout(workflowTimeout)).Post("/clock-out", kioskHandler.ClockOut)
		})
	})

	return r
}

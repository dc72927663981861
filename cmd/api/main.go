package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/config"
	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/workflow"
	appHTTP "github.com/cmlabs-hris/attendance-kiosk/internal/handler/http"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/attendanceapi"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-kiosk/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-kiosk/internal/repository/postgresql"
	"github.com/cmlabs-hris/attendance-kiosk/internal/repository/redis"
	attendanceService "github.com/cmlabs-hris/attendance-kiosk/internal/service/attendance"
	deviceService "github.com/cmlabs-hris/attendance-kiosk/internal/service/device"
	geoService "github.com/cmlabs-hris/attendance-kiosk/internal/service/geo"
	workflowService "github.com/cmlabs-hris/attendance-kiosk/internal/service/workflow"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := appHTTP.NewLogger(cfg.App.Name, cfg.App.Version, cfg.App.Env, cfg.LogLevel())
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := cron.NewScheduler()

	var (
		store    device.SessionStore
		inFlight workflow.InFlightGuard
	)
	switch cfg.Store.Type {
	case config.StoreRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.MaxRetries)
		if err != nil {
			return fmt.Errorf("error connecting to redis: %w", err)
		}
		defer client.Close()

		store = redis.NewSessionStore(client, cfg.Session.TTL)
		inFlight = redis.NewInFlightLocker(client, cfg.Session.InFlightTTL)

	case config.StorePostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fmt.Errorf("error connecting to database: %w", err)
		}
		defer db.Close()

		pgStore := postgresql.NewDeviceSessionStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("error preparing device session table: %w", err)
		}
		store = pgStore
		inFlight = postgresql.NewInFlightLocker(db)

		cron.NewDeviceSessionJobs(pgStore, cfg.Session.Retention, cfg.Session.PurgeInterval).RegisterJobs(scheduler)

	default:
		slog.Warn("Device sessions are kept in memory and will not survive a restart")
		store = memory.NewSessionStore()
		inFlight = workflowService.NewLocalInFlight()
	}

	stateMachine, err := attendanceService.NewStateMachine(cfg.Policy.ClockInDeadline)
	if err != nil {
		return err
	}

	apiClient := attendanceapi.NewClient(cfg.AttendanceAPI.BaseURL, cfg.AttendanceAPI.Timeout, loc, cfg.AttendanceAPI.RadiusUnit)
	guard := deviceService.NewGuard(store, loc, nil)
	mirror := deviceService.NewMirror(store, loc, nil)
	verifier := geoService.NewVerifier(cfg.Policy.GeoLocateTimeout)

	hub := sse.NewHub(16)
	orchestrator := workflowService.NewOrchestrator(
		guard,
		mirror,
		apiClient,
		stateMachine,
		verifier,
		inFlight,
		sse.NewWorkflowPublisher(hub),
		loc,
	)

	jwtService := jwt.NewJWTService(cfg.HRAuth.Secret, cfg.HRAuth.Roles)
	kioskHandler := appHTTP.NewKioskHandler(orchestrator, hub, 30*time.Second)

	router := appHTTP.NewRouter(appHTTP.RouterOptions{
		Logger:          logger,
		LogLevel:        cfg.LogLevel(),
		AllowedOrigins:  cfg.App.AllowedOrigins,
		SecureCookies:   cfg.App.SecureCookies,
		DeviceCookieTTL: cfg.Session.DeviceCookieTTL,
		RateLimit:       rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:       cfg.RateLimit.Burst,
		WorkflowTimeout: cfg.Policy.WorkflowTimeout,
	}, jwtService, kioskHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr, "store", cfg.Store.Type, "deadline", cfg.Policy.ClockInDeadline)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

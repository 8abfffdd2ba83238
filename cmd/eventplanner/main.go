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

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"

	"github.com/example/eventplanner/internal/application"
	"github.com/example/eventplanner/internal/calendar"
	"github.com/example/eventplanner/internal/clock"
	"github.com/example/eventplanner/internal/config"
	httptransport "github.com/example/eventplanner/internal/http"
	"github.com/example/eventplanner/internal/logging"
	"github.com/example/eventplanner/internal/metrics"
	"github.com/example/eventplanner/internal/notify"
	"github.com/example/eventplanner/internal/persistence/memory"
	"github.com/example/eventplanner/internal/persistence/sqlite"
	"github.com/example/eventplanner/internal/reminder"
	"github.com/example/eventplanner/internal/wiring"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("event planner exited with error", "error", err)
		stop()
		_ = closer.Close()
		os.Exit(1)
	}
}

// service holds every long-lived component of the process.
type service struct {
	handler   http.Handler
	scheduler *reminder.Scheduler
	pool      *sqlite.ConnectionPool
	events    *memory.EventStore
	hub       *notify.Hub
	metrics   *metrics.Metrics

	cancelStreams context.CancelFunc
}

func newService(ctx context.Context, cfg config.Config, clk clock.Clock, logger *slog.Logger) (*service, error) {
	pool, err := sqlite.Open(ctx, cfg.SQLiteDSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	now := clock.NowFunc(clk)

	m := metrics.New()
	scheduler := reminder.New(clk,
		reminder.WithLogger(logger),
		reminder.WithObserver(m),
		reminder.WithTickInterval(cfg.ReminderTick),
	)

	hub := notify.NewHub(logger, m)
	sinks := []notify.Sink{notify.NewLogSink(logger), hub}
	if len(cfg.NotifyURLs) > 0 {
		sinks = append(sinks, notify.NewShoutrrrSink(cfg.NotifyURLs, cfg.NotifyRate, 1, logger, notify.WithDeliveryObserver(m)))
	}

	users := sqlite.NewUserRepository(pool)
	sessions := sqlite.NewSessionRepository(pool)
	events := memory.NewEventStore()

	userService := application.NewUserServiceWithLogger(
		wiring.NewUserRepositoryAdapter(users),
		application.NewPasswordHasher(application.DefaultArgon2idParams),
		now,
		logger,
	)
	authService := application.NewAuthServiceWithLogger(
		wiring.NewCredentialStoreAdapter(users),
		wiring.NewSessionRepositoryAdapter(sessions),
		application.VerifyPassword,
		uuid.NewString,
		now,
		cfg.SessionTTL,
		logger,
	)
	eventService := application.NewEventServiceWithLogger(
		wiring.NewEventStoreAdapter(events),
		scheduler,
		notify.NewFanout(logger, sinks...),
		now,
		location,
		m,
		logger,
	)

	streamCtx, cancelStreams := context.WithCancel(context.Background())
	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(authService, logger),
		Users:     httptransport.NewUserHandler(userService, logger),
		Events:    httptransport.NewEventHandler(eventService, calendar.Options{Now: now}, logger),
		Reminders: httptransport.NewReminderHandler(streamCtx, hub, logger),
		Metrics:   m.Handler(),
		Session:   httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	return &service{
		handler:       handler,
		scheduler:     scheduler,
		pool:          pool,
		events:        events,
		hub:           hub,
		metrics:       m,
		cancelStreams: cancelStreams,
	}, nil
}

// Close stops the reminder driver, waits for in-flight callbacks and
// releases the stores.
func (s *service) Close() error {
	s.cancelStreams()
	s.scheduler.Stop()
	s.scheduler.Wait()
	return errors.Join(s.events.Close(), s.pool.Close())
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	svc, err := newService(ctx, cfg, clock.System{}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			logger.Error("failed to close service", "error", cerr)
		}
	}()

	if err := svc.scheduler.Start(callbackContext(ctx)); err != nil {
		return fmt.Errorf("start reminder driver: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           svc.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	server.RegisterOnShutdown(svc.cancelStreams)

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	logger.Info("event planner listening", "addr", listener.Addr().String(), "reminder_tick", cfg.ReminderTick.String())
	notifySystemd(logger, daemon.SdNotifyReady)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	notifySystemd(logger, daemon.SdNotifyStopping)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to shutdown server", "error", err)
	}
	logger.Info("event planner stopped")
	return nil
}

// callbackContext keeps ctx's values but not its cancellation, so reminders
// dispatched while shutting down still reach their sinks.
func callbackContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func notifySystemd(logger *slog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		logger.Debug("systemd notified", "state", state)
	}
}

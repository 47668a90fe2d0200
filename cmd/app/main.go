package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"guide-booking/internal/config"
	availCreate "guide-booking/internal/http-server/handlers/availability/create"
	availGet "guide-booking/internal/http-server/handlers/availability/get"
	availUpdate "guide-booking/internal/http-server/handlers/availability/update"
	bookingCancel "guide-booking/internal/http-server/handlers/bookings/cancel"
	bookingComplete "guide-booking/internal/http-server/handlers/bookings/complete"
	bookingConfirm "guide-booking/internal/http-server/handlers/bookings/confirm"
	bookingCreate "guide-booking/internal/http-server/handlers/bookings/create"
	bookingFeedback "guide-booking/internal/http-server/handlers/bookings/feedback"
	bookingGet "guide-booking/internal/http-server/handlers/bookings/get"
	bookingList "guide-booking/internal/http-server/handlers/bookings/list"
	bookingRate "guide-booking/internal/http-server/handlers/bookings/rate"
	bookingReschedule "guide-booking/internal/http-server/handlers/bookings/reschedule"
	bookingStart "guide-booking/internal/http-server/handlers/bookings/start"
	paymentWebhook "guide-booking/internal/http-server/handlers/payments/webhook"
	slotGet "guide-booking/internal/http-server/handlers/slots/get"
	"guide-booking/internal/http-server/middleware/actor"
	"guide-booking/internal/lock"
	"guide-booking/internal/mailer"
	"guide-booking/internal/meeting"
	svc "guide-booking/internal/service"
	"guide-booking/internal/storage/postgres"
	"guide-booking/internal/sweeper"
	"guide-booking/pkg/handlers/slogpretty"
	"guide-booking/pkg/middleware/mwLogger"
	"guide-booking/pkg/response"
	"guide-booking/pkg/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+actor.Header)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting API", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	loc, err := time.LoadLocation(cfg.Booking.Location)
	if err != nil {
		log.Error("Invalid booking location", slog.String("location", cfg.Booking.Location), sl.Err(err))
		os.Exit(1)
	}

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = storage.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		log.Error("Failed to migrate storage", sl.Err(err))
		os.Exit(1)
	}

	// without redis the conditional updates in storage still guard every
	// transition, so a missing lock backend is not fatal
	var locker lock.Locker
	redisLock, err := lock.NewRedisLock(cfg.RedisAddr)
	if err != nil {
		log.Warn("Redis lock unavailable, running without it", slog.String("addr", cfg.RedisAddr), sl.Err(err))
	} else {
		locker = redisLock
	}

	meetings := meeting.New(meeting.Config{
		BaseURL: cfg.Meeting.BaseURL,
		APIKey:  cfg.Meeting.APIKey,
		Timeout: cfg.Meeting.Timeout,
	}, log)

	mails := mailer.New(mailer.Config{
		BaseURL: cfg.Mailer.BaseURL,
		APIKey:  cfg.Mailer.APIKey,
		From:    cfg.Mailer.From,
		Timeout: cfg.Mailer.Timeout,
	}, log)

	service := svc.NewService(log, storage, locker, meetings, mails, svc.Options{
		Location: loc,
		LockTTL:  cfg.Booking.LockTTL,
	})

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)
	router.Use(response.Verbose(cfg.Env != envProd))

	// Public
	router.Get("/availability/{guideID}", availGet.New(log, service))
	router.Get("/guides/{guideID}/slots", slotGet.New(log, service))
	router.Post("/payments/webhook", paymentWebhook.New(log, cfg.Payments.WebhookSecret, service))

	router.Group(func(r chi.Router) {
		r.Use(actor.New(log))

		// Availability
		r.Post("/availability", availCreate.New(log, service))
		r.Put("/availability", availUpdate.New(log, service))

		// Bookings
		r.Post("/bookings", bookingCreate.New(log, service))
		r.Get("/bookings", bookingList.New(log, service))
		r.Get("/bookings/{id}", bookingGet.New(log, service))
		r.Post("/bookings/{id}/confirm", bookingConfirm.New(log, service))
		r.Post("/bookings/{id}/reschedule", bookingReschedule.New(log, service))
		r.Post("/bookings/{id}/cancel", bookingCancel.New(log, service))
		r.Post("/bookings/{id}/start", bookingStart.New(log, service))
		r.Post("/bookings/{id}/complete", bookingComplete.New(log, service))
		r.Post("/bookings/{id}/rate", bookingRate.New(log, service))
		r.Post("/bookings/{id}/feedback", bookingFeedback.New(log, service))
	})

	sweep := sweeper.New(log, service, cfg.Sweep.Interval, cfg.Sweep.InitialDelay)
	if err := sweep.Start(context.Background()); err != nil {
		log.Error("Failed to start sweeper", sl.Err(err))
		os.Exit(1)
	}

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if err := sweep.Stop(); err != nil {
		log.Error("Failed to stop sweeper", sl.Err(err))
	}

	// confirmation emails and meeting links still in flight
	service.Wait()

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if redisLock != nil {
		if err := redisLock.Close(); err != nil {
			log.Error("Failed to close locker", sl.Err(err))
		} else {
			log.Info("Locker closed")
		}
	}

	log.Info("Shutdown finished, server stopped")

}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

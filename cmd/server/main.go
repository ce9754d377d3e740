// cmd/server/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/riverhall/attendance/internal/database"
	"github.com/riverhall/attendance/internal/gateway"
	"github.com/riverhall/attendance/internal/handler"
	"github.com/riverhall/attendance/internal/notify"
	"github.com/riverhall/attendance/internal/repository"
	"github.com/riverhall/attendance/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx := context.Background()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, database.ConfigFromEnv(), log)
	if err != nil {
		log.Error("database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("connected to postgres")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	events := repository.NewEventRepository(pool)
	attendance := repository.NewAttendanceRepository(pool)
	payments := repository.NewPaymentRepository(pool)
	volunteers := repository.NewVolunteerRepository(pool)

	pay := gateway.New(getEnv("PAYMENT_GATEWAY_URL", "http://localhost:9090"))
	notifier := notify.NewLogNotifier(log)

	svc := service.New(events, attendance, payments, volunteers,
		events, pay, notifier, service.RealClock{}, log)
	h := handler.NewAttendanceHandler(svc)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(log))
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Get("/{id}/capacity", h.GetCapacity)
		r.Get("/{id}/attendance", h.ListAttendance)
		r.Post("/{id}/register", h.Register)
	})

	r.Route("/attendance", func(r chi.Router) {
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/checkin", h.CheckIn)
	})

	r.Post("/volunteer-assignments/{id}/ticket", h.GrantVolunteerTicket)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // gateway calls can ride on a request
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/acadops/timetable-backend/internal/api"
	"github.com/acadops/timetable-backend/internal/auth"
	"github.com/acadops/timetable-backend/internal/config"
	"github.com/acadops/timetable-backend/internal/db"
	"github.com/acadops/timetable-backend/internal/logger"
	"github.com/acadops/timetable-backend/internal/mailer"
	"github.com/acadops/timetable-backend/internal/metrics"
	"github.com/acadops/timetable-backend/internal/repository/postgres"
	"github.com/acadops/timetable-backend/internal/services"
	"github.com/acadops/timetable-backend/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	metrics.Init()

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(4)

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	auditSvc := services.NewAuditService(repos.AuditEntries, wp)
	authSvc := services.NewAuthService(repos.Users, tm, auditSvc, mailer.LogMailer{Log: log})
	userSvc := services.NewUserService(repos.Users, auditSvc)

	r := api.NewRouter(api.Deps{
		Cfg:      cfg,
		TM:       tm,
		AuthSvc:  authSvc,
		UserSvc:  userSvc,
		AuditSvc: auditSvc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Drain queued audit appends before the pool closes.
	wp.Stop()
}

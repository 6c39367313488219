package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"appstock/backend/internal/cache"
	"appstock/backend/internal/config"
	"appstock/backend/internal/export"
	"appstock/backend/internal/httpapi"
	"appstock/backend/internal/jobs"
	"appstock/backend/internal/logging"
	"appstock/backend/internal/service"
	"appstock/backend/internal/store"
	"appstock/backend/internal/store/memory"
	"appstock/backend/internal/store/sqlstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "appstock: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.Setup(cfg.LogMode, cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		return fmt.Errorf("invalid security configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				zap.S().Warnf("close error: %v", err)
			}
		}
	}()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}

	reportCache := cache.ReportCache(cache.NoopReportCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			zap.S().Warnf("redis unavailable (%v), using noop report cache", err)
			_ = redisCache.Close()
		} else {
			reportCache = redisCache
			closers = append(closers, redisCache.Close)
			zap.S().Info("report cache: redis")
		}
	} else {
		zap.S().Info("report cache: noop")
	}

	exporter, err := export.NewExporter(cfg.ExportDir, cfg.StoreName, export.NewSpoolPrinter(cfg.PrintCommand))
	if err != nil {
		return err
	}
	svc := service.New(repo, reportCache, time.Duration(cfg.ReportCacheTTLSeconds)*time.Second, exporter)

	if cfg.SeedSampleProducts && cfg.DatabaseDriver != config.DriverMemory {
		created, err := svc.SeedSampleProducts(ctx)
		if err != nil {
			return fmt.Errorf("seed sample products: %w", err)
		}
		zap.S().Infof("seeded %d sample products", created)
	}

	auth, err := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		httpapi.Account{Username: cfg.AdminUsername, Password: cfg.AdminPassword, Role: httpapi.RoleAdmin},
		httpapi.Account{Username: cfg.CashierUsername, Password: cfg.CashierPassword, Role: httpapi.RoleCashier},
	)
	if err != nil {
		return err
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	var scheduler *jobs.Scheduler
	if cfg.ExportSchedule != "" {
		scheduler, err = jobs.NewScheduler(cfg.ExportSchedule, svc)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zap.S().Infof("appstock backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnf("shutdown error: %v", err)
	}
	zap.S().Info("server stopped")
	return nil
}

func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		zap.S().Info("repository: in-memory")
		if cfg.SeedSampleProducts {
			return memory.NewSeeded(), nil, nil
		}
		return memory.New(), nil, nil
	}

	db, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%s unavailable: %w", cfg.DatabaseDriver, err)
	}
	zap.S().Infof("repository: %s", db.Driver())
	return db, db.Close, nil
}

var weakPasswords = map[string]bool{
	"admin": true, "admin123": true, "password": true, "password123": true,
	"12345678": true, "123456789": true, "qwerty123": true, "changeme": true,
	"cashier123": true, "letmein1": true,
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if err := validatePassword("ADMIN_PASSWORD", cfg.AdminPassword); err != nil {
		return err
	}
	if cfg.CashierPassword != "" {
		if err := validatePassword("CASHIER_PASSWORD", cfg.CashierPassword); err != nil {
			return err
		}
		if cfg.CashierUsername == cfg.AdminUsername {
			return fmt.Errorf("CASHIER_USERNAME must differ from ADMIN_USERNAME")
		}
	}
	return nil
}

func validatePassword(key string, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%s must be set and at least 8 characters", key)
	}
	if weakPasswords[strings.ToLower(password)] {
		return fmt.Errorf("%s is too weak: common password not allowed", key)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"library-lending/internal/auth"
	"library-lending/internal/config"
	"library-lending/internal/handlers"
	"library-lending/internal/metrics"
	"library-lending/internal/services"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	libraryService := services.NewLibraryService(store, cfg.Policy, nil, metrics.New(registry))

	jwtService := auth.NewJWTService(cfg.Security.JWTSigningKey, cfg.Security.JWTIssuer)
	routerCfg := handlers.RouterConfig{Gatherer: registry}
	if cfg.Security.Enforce {
		routerCfg.Auth = auth.RequireAuth(jwtService)
	} else {
		log.Printf("[WARN] serve: security disabled, all routes are public")
	}
	if cfg.Security.DevToken {
		token, err := jwtService.GenerateToken("m1", time.Hour)
		if err != nil {
			log.Printf("[WARN] serve: could not generate demo token: %v", err)
		} else {
			routerCfg.DevToken = token
			log.Printf("[INFO] serve: demo JWT (Bearer): %s", token)
		}
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handlers.NewRouter(libraryService, routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s (driver=%s, max loans=%d, loan days=%d)",
			cfg.Addr, cfg.DBDriver, cfg.Policy.MaxLoans, cfg.Policy.LoanPeriodDays)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Printf("Server stopped")
	return nil
}

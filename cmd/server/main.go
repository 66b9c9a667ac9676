package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"auth-control-plane/backend/internal/config"
	"auth-control-plane/backend/internal/db"
	"auth-control-plane/backend/internal/httpapi"
	"auth-control-plane/backend/internal/platform/rbac"
	"auth-control-plane/backend/internal/security"
	"auth-control-plane/backend/internal/telemetry"

	authservice "auth-control-plane/backend/internal/auth/service"
	rolerepo "auth-control-plane/backend/internal/role/repository"
	roleservice "auth-control-plane/backend/internal/role/service"
	sessionrepo "auth-control-plane/backend/internal/session/repository"
	sessionservice "auth-control-plane/backend/internal/session/service"
	userrepo "auth-control-plane/backend/internal/user/repository"
	userservice "auth-control-plane/backend/internal/user/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	shutdownTracing := telemetry.Setup("auth-control-plane")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	hasher := security.NewHasher(cfg.BcryptCost)
	userRepo := userrepo.NewPostgresRepository(pool)
	roleRepo := rolerepo.NewPostgresRepository(pool)

	users := userservice.NewUserService(userRepo, hasher)
	roles := roleservice.NewRoleService(roleRepo)
	sessions := sessionservice.NewStore(sessionrepo.NewPostgresRepository(pool), cfg.MaxSessionsPerUser, cfg.RefreshTTL())

	tokens := security.NewTokenProvider([]byte(cfg.AccessTokenSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	auth := authservice.NewAuthService(users, roles, sessions, hasher, tokens)
	guard := rbac.NewGuard(userRepo, roleRepo, httpapi.OperationRoles)

	if err := roles.SeedDefaults(ctx); err != nil {
		log.Fatalf("seed roles: %v", err)
	}

	handler := httpapi.NewHandler(auth, sessions, users, roles, guard, tokens, cfg.RefreshTTL())
	handler.SetHealthCheck(pool)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(httpapi.LoggingMiddleware(handler.Routes()), "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

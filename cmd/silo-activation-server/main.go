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

	"github.com/EternisAI/silo-activation/internal/actkey"
	internalhttp "github.com/EternisAI/silo-activation/internal/api/http"
	"github.com/EternisAI/silo-activation/internal/auth"
	"github.com/EternisAI/silo-activation/internal/db"
	"github.com/EternisAI/silo-activation/internal/keys"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Silo Activation Server", "version", AppVersion)

	ctx := context.Background()

	if err := db.RunMigrations(config.DB.Url, config.DB.Schema); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	pool, err := db.InitDB(ctx, config.DB.Url, config.DB.Schema)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	keychain, err := actkey.New([]byte(config.Activation.Secret),
		actkey.WithValidity(config.Activation.Validity))
	if err != nil {
		slog.Error("Failed to initialize keychain", "error", err)
		os.Exit(1)
	}

	jwtConfig := auth.JWTConfig{
		Secret: config.JWT.Secret,
		TTL:    config.JWT.TTL,
	}

	services := &internalhttp.Services{
		Auth:        auth.NewService(auth.NewPGStore(pool), jwtConfig),
		Keys:        keys.NewService(keychain, keys.NewPGStore(pool)),
		JWT:         jwtConfig,
		AdminAPIKey: config.Http.AdminAPIKey,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: engine,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Shutdown complete")
}

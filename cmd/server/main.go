// Package main is the entry point for the Dossier Preview API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shimizu-Technology/dossier-preview/internal/config"
	"github.com/Shimizu-Technology/dossier-preview/internal/handlers"
	"github.com/Shimizu-Technology/dossier-preview/internal/router"
	"github.com/Shimizu-Technology/dossier-preview/internal/services/locator"
	"github.com/Shimizu-Technology/dossier-preview/internal/services/raster"
	"github.com/Shimizu-Technology/dossier-preview/internal/session"
	"github.com/Shimizu-Technology/dossier-preview/internal/viewer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Dossier Preview API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: port=%s, backend=%s, concurrency=%d, gin_mode=%s",
		cfg.Port, cfg.RasterBackend, cfg.RenderConcurrency, cfg.GinMode)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Create Services
	backend, err := raster.NewBackend(raster.Kind(cfg.RasterBackend), raster.Options{
		PdftoppmPath: cfg.PdftoppmPath,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create rasterizer: %v", err)
	}
	log.Printf("✅ Rasterizer ready (%s)", backend.Name())

	resolver := locator.New(cfg.FetchTimeout, cfg.MaxDocumentBytes)
	source := raster.NewSource(resolver, backend)

	mode, err := viewer.ParseMode(cfg.DefaultMode)
	if err != nil {
		log.Fatalf("❌ Invalid default mode: %v", err)
	}

	// Step 3: Create and Start the Session Registry
	sessions := session.NewManager(session.Config{
		Opener: source,
		Defaults: viewer.Options{
			Mode:              mode,
			PagePolicy:        viewer.PagePolicy(cfg.PagePolicy),
			RenderConcurrency: cfg.RenderConcurrency,
		},
		MaxSessions: cfg.MaxSessions,
		IdleTimeout: cfg.SessionIdleTimeout,
	})
	sessions.Start(time.Minute)
	defer sessions.Stop()

	if cfg.AuthDisabled {
		log.Println("⚠️  Authentication disabled (AUTH_DISABLED=true); every caller is anonymous")
	} else {
		log.Println("✅ JWT bearer verification enabled")
	}

	// Step 4: Setup HTTP Router
	h := handlers.NewHandler(sessions, backend.Name(), Version)
	r := router.Setup(h, router.Options{
		JWTSecret:      cfg.JWTSecret,
		AuthDisabled:   cfg.AuthDisabled,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
	})

	// Step 5: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 API docs: http://localhost:%s/api/docs", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 6: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fanova-be/internal/bootstrap"
	"fanova-be/internal/config"
	"fanova-be/internal/server"
	"fanova-be/internal/tracer"
	"fanova-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled, cfg.App.OtelEndpoint)

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction())
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	if err := container.Start(ctx); err != nil {
		log.Fatalf("Failed to start background services: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	container.Close()
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("Tracer shutdown error: %v", err)
	}
}

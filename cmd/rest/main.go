package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giving-ledger-be/internal/bootstrap"
	"giving-ledger-be/internal/config"
	"giving-ledger-be/internal/pkg/logger"
	"giving-ledger-be/internal/server"
	"giving-ledger-be/internal/tracer"
	"giving-ledger-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.App)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database
	pool := database.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.Database.MaxOpenConns
	pool.MaxIdleConns = cfg.Database.MaxIdleConns
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.Database.Debug, pool)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	// 5. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.ConsumerService.Consume(ctx); err != nil {
		container.Logger.Error(logger.ModuleEvents, "Receipt consumer failed to start", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// 6. Run Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			container.Logger.Error(logger.ModuleHTTP, "Server stopped", map[string]interface{}{
				"error": err.Error(),
			})
			stop()
		}
	}()

	<-ctx.Done()
	container.Logger.Info(logger.ModuleHTTP, "Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error(logger.ModuleHTTP, "Shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

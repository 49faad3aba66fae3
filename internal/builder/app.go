package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/futig/kbchat-backend/internal/integration/ingest"
	"github.com/futig/kbchat-backend/internal/pkg/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App represents the application with all its components
type App struct {
	server          *http.Server
	db              *pgxpool.Pool
	runner          *ingest.Runner
	telemetry       telemetry.ShutdownFunc
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// Run serves HTTP until a signal arrives or the server fails
func (a *App) Run() error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		a.logger.Error("Server error", zap.Error(err))
		a.closeResources(context.Background())
		return err
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	return a.shutdown()
}

// shutdown stops accepting requests, then cancels running ingestion jobs
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down server gracefully")

	serverErr := a.server.Shutdown(ctx)
	if serverErr != nil {
		a.logger.Error("Server shutdown error", zap.Error(serverErr))
	}

	a.closeResources(ctx)

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("Application stopped gracefully")
	return nil
}

func (a *App) closeResources(ctx context.Context) {
	a.logger.Info("Stopping ingestion runner")
	if err := a.runner.Close(ctx); err != nil {
		a.logger.Warn("Ingestion runner did not stop in time", zap.Error(err))
	}

	if a.db != nil {
		a.logger.Info("Closing database connections")
		a.db.Close()
	}

	if err := a.telemetry(ctx); err != nil {
		a.logger.Warn("Telemetry shutdown error", zap.Error(err))
	}

	_ = a.logger.Sync()
}

package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitforge/fitforge/config"
	"github.com/fitforge/fitforge/internal/kernel"
	grpcx "github.com/fitforge/fitforge/pkg/grpc"
	"github.com/fitforge/fitforge/pkg/logger"
)

const shutdownTimeout = 20 * time.Second

// Start boots the kernel and serves HTTP plus the gRPC health service until
// SIGINT or SIGTERM, then shuts both down gracefully.
func Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	k, err := kernel.Boot(ctx)
	if err != nil {
		return err
	}
	go k.Run(ctx)

	checks := make([]grpcx.Checker, 0)
	for _, c := range k.Checks() {
		checks = append(checks, grpcx.Checker(c))
	}
	grpcSrv, err := grpcx.Start(config.GRPCPort(), checks...)
	if err != nil {
		_ = k.Close(context.Background())
		return err
	}

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           k.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("FitForge API listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("http server crashed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("http shutdown", "error", serr)
	}
	grpcx.Stop(grpcSrv)
	if cerr := k.Close(shutdownCtx); cerr != nil {
		logger.Error("kernel close", "error", cerr)
	}
	logger.Info("stopped")
	return err
}

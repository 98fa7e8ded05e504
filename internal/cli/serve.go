package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/canopy"
	httpAdapter "github.com/aretw0/canopy/pkg/adapters/http"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// shutdownTimeout gives outstanding requests a deadline for completion.
const shutdownTimeout = 5 * time.Second

// Serve runs the entities like Execute while exposing the inspection API on addr.
func Serve(opts RunOptions, addr string) error {
	logger := createLogger(opts.LogLevel, opts.Debug)
	out := opts.output()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	backend, err := setupStore(opts, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	engine, err := createEngine(opts, logger, backend,
		canopy.WithLogger(logger),
		canopy.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if err := populate(sigCtx, engine, opts, backend); err != nil {
		return err
	}

	server := httpAdapter.NewServer(engine,
		httpAdapter.WithGatherer(reg),
		httpAdapter.WithLogger(logger),
	)
	engine.OnTick(server.Publish)

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(out, "Serving %q on %s", engine.Name, srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	runErrors := make(chan error, 1)
	go func() {
		runErrors <- engine.Run(sigCtx)
	}()

	select {
	case err := <-serverErrors:
		sigCtx.Cancel()
		<-runErrors
		return fmt.Errorf("server error: %w", err)
	case err := <-runErrors:
		if err != nil {
			logger.Error("runner failed", "error", err)
		}
	}

	// Keep serving inspection after a finite run until interrupted.
	<-sigCtx.Done()
	if sig := sigCtx.Signal(); sig != nil {
		printSystemMessage(out, "Start shutdown... Signal: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
		if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	if err := release(engine, opts, backend, logger); err != nil {
		return err
	}
	printSystemMessage(out, "Canopy server stopped gracefully")
	return nil
}

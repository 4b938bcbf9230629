package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/TomasB/ipcountry/internal/config"
	"github.com/TomasB/ipcountry/internal/data"
	grpchandler "github.com/TomasB/ipcountry/internal/handler/grpc"
	"github.com/TomasB/ipcountry/internal/handler/health"
	"github.com/TomasB/ipcountry/internal/handler/lookup"
	"github.com/TomasB/ipcountry/internal/metrics"
	"github.com/TomasB/ipcountry/internal/reload"
	"github.com/TomasB/ipcountry/internal/resolver"
	"github.com/TomasB/ipcountry/internal/store"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
)

func main() {
	os.Exit(run())
}

// run starts the service and blocks until it stops. It returns the process
// exit code so that deferred cleanup always runs.
func run() int {
	// Log through a default JSON logger until the configured level is known
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	// Initialize structured logging
	logLevel := getLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("service starting", "log_level", logLevel.String())

	// Set Gin mode based on log level
	if logLevel == slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Load MaxMind MMDB
	db, err := data.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open MMDB", "path", cfg.DatabasePath, "error", err)
		return 1
	}

	if err := selfCheck(db, cfg.ProbeIP); err != nil {
		slog.Error("database self-check failed", "path", cfg.DatabasePath, "error", err)
		db.Close()
		return 1
	}

	md := db.Metadata()
	metrics.DatabaseBuildTimestamp.Set(float64(md.BuildTime.Unix()))
	metrics.LastReloadTimestamp.SetToCurrentTime()
	slog.Info("MMDB loaded", "path", cfg.DatabasePath, "database_type", md.DatabaseType, "build_time", md.BuildTime)

	handle := store.New(db)
	defer handle.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the reload loop. It must stop before the handle is closed.
	loop := reload.New(handle, data.Open, cfg.DatabasePath, cfg.ReloadInterval)
	if cfg.WatchDatabase {
		if err := reload.Watch(ctx, loop); err != nil {
			slog.Error("failed to watch database file", "path", cfg.DatabasePath, "error", err)
			return 1
		}
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		loop.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		triggerOnHangup(ctx, loop)
	}()
	defer wg.Wait()
	defer stop()
	slog.Info("reload loop started", "interval", cfg.ReloadInterval.String(), "watch", cfg.WatchDatabase)

	// Create HTTP server
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: newRouter(logger, handle),
	}

	serveErr := make(chan error, 2)

	// Start server in a goroutine
	go func() {
		slog.Info("service started", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcSrv *grpc.Server
	if addr := cfg.GRPCAddr(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			slog.Error("failed to listen for gRPC", "addr", addr, "error", err)
			return 1
		}
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(grpchandler.LoggingInterceptor(logger)))
		grpchandler.RegisterCountryServiceServer(grpcSrv, grpchandler.NewHandler(handle))

		go func() {
			slog.Info("gRPC service started", "addr", addr)
			if err := grpcSrv.Serve(lis); err != nil {
				serveErr <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	code := 0

	// Wait for interrupt signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		slog.Error("server failed", "error", err)
		code = 1
	}

	slog.Info("service shutting down")

	// Graceful shutdown with 30s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		code = 1
	}

	slog.Info("service stopped")
	return code
}

// selfCheck resolves probeIP against db and fails unless a country comes back.
func selfCheck(db data.Database, probeIP string) error {
	country, err := resolver.Resolve(probeIP, db)
	if err != nil {
		return fmt.Errorf("country for IP %q not found: %w", probeIP, err)
	}
	slog.Info("database self-check passed", "ip", probeIP, "country", country)
	return nil
}

// triggerOnHangup reloads the database on SIGHUP.
func triggerOnHangup(ctx context.Context, loop *reload.Loop) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			slog.Info("SIGHUP received")
			loop.Trigger()
		}
	}
}

// newRouter wires the HTTP endpoints.
func newRouter(logger *slog.Logger, handle *store.Handle) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(ginLogger(logger))
	router.Use(gin.Recovery())

	healthHandler := health.NewHandler(handle.Ready)
	router.GET("/", healthHandler.Index)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	lookupHandler := lookup.NewHandler(handle)
	router.GET("/:ip", lookupHandler.Lookup)

	return router
}

// getLogLevel converts string log level to slog.Level
func getLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ginLogger creates a Gin middleware that logs using slog
func ginLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		// Log request
		duration := time.Since(start)
		statusCode := c.Writer.Status()

		attrs := []any{
			"method", method,
			"path", path,
			"status", statusCode,
			"duration_ms", duration.Milliseconds(),
		}

		if len(c.Errors) > 0 {
			logger.Error("request completed with errors", append(attrs, "errors", c.Errors.String())...)
		} else if statusCode >= 500 {
			logger.Error("request completed", attrs...)
		} else if statusCode >= 400 {
			logger.Warn("request completed", attrs...)
		} else {
			logger.Info("request completed", attrs...)
		}
	}
}

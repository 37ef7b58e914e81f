package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/person-registry/internal/api"
	"github.com/ignite/person-registry/internal/cache"
	"github.com/ignite/person-registry/internal/config"
	"github.com/ignite/person-registry/internal/pkg/logger"
	"github.com/ignite/person-registry/internal/pkg/metrics"
	"github.com/ignite/person-registry/internal/repository/postgres"
	"github.com/ignite/person-registry/internal/service/registration"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %w", port, addr, err)
	}
	ln.Close()
	return nil
}

// extractHost returns the host part of a URL-style DSN so it can be logged
// without credentials.
func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if end := strings.IndexAny(rest, "/?"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactEnabled())

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		logger.Error("pre-flight check failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Error("database unavailable", "host", extractHost(cfg.Database.URL), "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected", "host", extractHost(cfg.Database.URL))

	if cfg.Schema.ProvisionOnStartup {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			logger.Error("schema provisioning failed", "error", err)
			os.Exit(1)
		}
		logger.Info("schema provisioned", "table", postgres.TableName)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	opts := []registration.Option{registration.WithMetrics(m)}
	deps := api.Deps{
		DB:             db,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		AllowedOrigins: cfg.Frontend.AllowedOrigins,
	}

	if redisClient := connectRedis(ctx, cfg.Redis); redisClient != nil {
		defer redisClient.Close()
		listCache := cache.NewRegistrationList(redisClient, cfg.Redis.KeyPrefix, cfg.Redis.ListTTL())
		opts = append(opts, registration.WithListCache(listCache))
		deps.Cache = api.RedisPinger{Client: redisClient}
	}

	repo := postgres.NewRegistrationRepo(db)
	deps.Registrations = registration.NewService(repo, opts...)
	server := api.NewServer(cfg.Server, deps)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		addr := cfg.Server.Addr()
		logger.Info("starting server", "addr", addr, "origins", strings.Join(cfg.Frontend.AllowedOrigins, ","))
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-done:
		logger.Info("shutting down")
	case err := <-serveErr:
		logger.Error("server error", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// connectRedis returns nil when Redis is not configured or not reachable;
// the list cache is then disabled and reads go straight to the database.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		logger.Info("redis not configured, list cache disabled")
		return nil
	}
	client := cache.NewRedisClient(cfg)
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed, list cache disabled", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected, list cache enabled", "ttl", cfg.ListTTL().String())
	return client
}

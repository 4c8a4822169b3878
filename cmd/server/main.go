package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/enrich"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/handler"
	adbkmetrics "github.com/infinex-exchange/wallet.addressbook/internal/addressbook/metrics"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/rpc"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/service"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/store"
	"github.com/infinex-exchange/wallet.addressbook/internal/auth/revocation"
	"github.com/infinex-exchange/wallet.addressbook/internal/jwttoken"
	"github.com/infinex-exchange/wallet.addressbook/internal/network"
	"github.com/infinex-exchange/wallet.addressbook/internal/platform/config"
	"github.com/infinex-exchange/wallet.addressbook/internal/platform/events"
	"github.com/infinex-exchange/wallet.addressbook/internal/platform/httpserver"
	"github.com/infinex-exchange/wallet.addressbook/internal/platform/logger"
	"github.com/infinex-exchange/wallet.addressbook/internal/platform/metrics"
	platformredis "github.com/infinex-exchange/wallet.addressbook/internal/platform/redis"
	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/tx"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}

	st := store.NewPostgres(db)
	if err := st.EnsureSchema(ctx); err != nil {
		log.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	var trl revocation.TokenRevocationList
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
		log.Info("token revocation list backed by redis")
	} else {
		trl = revocation.NewMemoryTRL()
		log.Warn("REDIS_URL not set, using in-process token revocation list")
	}
	defer trl.Close()

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(adbkmetrics.New()),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewPublisher(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		svcOpts = append(svcOpts, service.WithAuditPublisher(publisher))
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events disabled")
	}

	svc := service.New(st, tx.NewSQLRunner(db), svcOpts...)
	coordinator := enrich.New(network.NewClient(cfg.NetworkServiceURL))
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "wallet", "wallet-api")
	httpMetrics := metrics.New()

	router := chi.NewRouter()
	handler.New(svc, coordinator, log, httpMetrics, jwtService, trl).Register(router)
	rpc.New(svc, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting wallet.addressbook", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

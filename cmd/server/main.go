// Command server wires the scan resolution engine: configuration, stores,
// the resolution pipeline, the analytics worker, and the HTTP surfaces.
// Business logic lives in the internal packages; main only assembles them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"qrflow/internal/analytics"
	"qrflow/internal/platform/config"
	"qrflow/internal/platform/httpserver"
	"qrflow/internal/platform/logger"
	"qrflow/internal/platform/postgres"
	platformredis "qrflow/internal/platform/redis"
	qrhandler "qrflow/internal/qrcode/handler"
	"qrflow/internal/qrcode/ports"
	qrservice "qrflow/internal/qrcode/service"
	deliverystore "qrflow/internal/qrcode/store/delivery"
	qrstore "qrflow/internal/qrcode/store/qrcode"
	rulestore "qrflow/internal/qrcode/store/rule"
	versionstore "qrflow/internal/qrcode/store/version"
	"qrflow/internal/scan/cache"
	scanhandler "qrflow/internal/scan/handler"
	scanmetrics "qrflow/internal/scan/metrics"
	scanservice "qrflow/internal/scan/service"
	"qrflow/internal/tier"
	"qrflow/pkg/platform/middleware/auth"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	} else {
		log.Warn("no postgres configured, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		qrcodes  ports.QRCodeStore
		versions ports.VersionStore
		rules    ports.RuleStore
		delivery ports.DeliveryStore
	)
	var eventStore analytics.Store
	if db != nil {
		qrcodes = qrstore.NewPostgres(db)
		versions = versionstore.NewPostgres(db)
		rules = rulestore.NewPostgres(db)
		delivery = deliverystore.NewPostgres(db)
		eventStore = analytics.NewPostgresStore(db)
	} else {
		qrcodes = qrstore.NewMemory()
		versions = versionstore.NewMemory()
		rules = rulestore.NewMemory()
		delivery = deliverystore.NewMemory()
		eventStore = analytics.NewInMemoryStore()
	}

	m := scanmetrics.New()

	recorder, err := analytics.NewRecorder(cfg.AnalyticsBuf,
		analytics.WithLogger(log),
		analytics.WithDropHook(m.IncrementAnalyticsDropped),
	)
	if err != nil {
		log.Error("analytics recorder setup failed", "error", err)
		os.Exit(1)
	}
	worker := analytics.NewWorker(eventStore, recorder.Inbox(), analytics.WithWorkerLogger(log))

	source, err := scanservice.NewStoreSource(qrcodes, versions, rules, delivery)
	if err != nil {
		log.Error("config source setup failed", "error", err)
		os.Exit(1)
	}
	configSource := scanservice.ConfigSource(source)
	if redisClient != nil {
		cached, err := cache.New(source, redisClient, cfg.ResolveTTL, cache.WithLogger(log))
		if err != nil {
			log.Error("resolution cache setup failed", "error", err)
			os.Exit(1)
		}
		configSource = cached
	}

	coordinator, err := scanservice.New(configSource, qrcodes,
		scanservice.WithLogger(log),
		scanservice.WithRecorder(recorder),
		scanservice.WithMetrics(m),
	)
	if err != nil {
		log.Error("coordinator setup failed", "error", err)
		os.Exit(1)
	}

	management, err := qrservice.New(qrcodes, versions, rules, delivery, tier.DefaultLimits(), qrservice.WithLogger(log))
	if err != nil {
		log.Error("management service setup failed", "error", err)
		os.Exit(1)
	}

	validator, err := auth.NewHMACValidator(cfg.JWTSigningKey)
	if err != nil {
		log.Error("token validator setup failed", "error", err)
		os.Exit(1)
	}

	scanH, err := scanhandler.New(coordinator, log)
	if err != nil {
		log.Error("scan handler setup failed", "error", err)
		os.Exit(1)
	}
	mgmtH, err := qrhandler.New(management, validator, log)
	if err != nil {
		log.Error("management handler setup failed", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mgmtH.Register(router)
	scanH.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting qrflow", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	log.Info("qrflow stopped")
}

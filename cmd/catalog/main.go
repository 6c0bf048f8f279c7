package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"StoreCatalog/internal/auth"
	"StoreCatalog/internal/catalog"
	"StoreCatalog/internal/config"
	"StoreCatalog/pkg/kit"
)

const storeOpenTimeout = 15 * time.Second

func main() {
	service := "catalog"

	cfg, err := config.Load()
	if err != nil {
		kit.NewLogger(service, "info").Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if cfg.SecretIsFallback {
		log.Warn("JWT_SECRET is not set; signing tokens with the built-in fallback secret")
	} else {
		log.Info("jwt signing secret configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	store, err := catalog.OpenStore(ctx, catalog.StoreConfigFrom(cfg), log)
	cancel()
	if err != nil {
		log.Fatal("open product store failed", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close product store", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tokens := auth.NewTokenMaker(cfg.JWTSecret)
	a := auth.NewServer(auth.NewIssuer(auth.DefaultCredential, tokens), log, auth.NewMetrics(reg))
	s := catalog.NewServer(store, log)

	h, err := catalog.NewHandler(s, a, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
		CORSOrigins:    cfg.CORSOrigins,
		DocsEnabled:    cfg.DocsEnabled,
	})
	if err != nil {
		log.Fatal("init catalog handler failed", zap.Error(err))
	}

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log, kit.ServerOptions{
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.ShutdownTimeout,
	}); err != nil {
		log.Error("http server stopped", zap.Error(err))
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wesigned/wesigned/internal/agent"
	"github.com/wesigned/wesigned/internal/agent/cache"
	"github.com/wesigned/wesigned/internal/client/api"
	"github.com/wesigned/wesigned/internal/client/config"
	"github.com/wesigned/wesigned/internal/client/monitor"
	"github.com/wesigned/wesigned/internal/client/queue"
	"github.com/wesigned/wesigned/internal/client/store"
	syncer "github.com/wesigned/wesigned/internal/client/sync"
	"github.com/wesigned/wesigned/internal/logging"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewDefault()

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	var responseCache cache.Cache
	if sc, err := cache.OpenSQLite(ctx, cfg.CachePath); err != nil {
		logger.Warn(ctx, "response cache unavailable, falling back to memory", "error", err)
		responseCache = cache.NewMemoryCache()
	} else {
		defer sc.Close()
		responseCache = sc
	}

	fallback := cfg.AssetBaseURL + cfg.OfflineAsset
	transport := agent.NewCachingTransport(http.DefaultTransport, responseCache, fallback, logger)

	client := api.NewHTTPClient(cfg.APIBaseURL, &http.Client{Transport: transport},
		func(ctx context.Context) (string, error) {
			return os.Getenv("WESIGNED_TOKEN"), nil
		}, logger)

	mon := monitor.New(client, cfg.OnlineCheckInterval, logger)
	q := queue.New(st)
	reconciler := syncer.New(q, client, logger)

	a := agent.New(reconciler, mon, transport, logger, agent.Options{
		SyncInterval: cfg.SyncInterval,
		AssetBaseURL: cfg.AssetBaseURL,
		WarmAssets:   cfg.WarmAssets,
	})

	if err := a.Install(ctx); err != nil {
		return err
	}

	go mon.Run(ctx)

	return a.Run(ctx)
}

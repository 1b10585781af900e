package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	adminhttp "kcvstore/internal/http"
	"kcvstore/pkg/backend"
	"kcvstore/pkg/backend/fake"
	"kcvstore/pkg/discovery"
	"kcvstore/pkg/kcv"
	"kcvstore/pkg/metrics"
	"kcvstore/pkg/pool"
)

type fakeConn struct {
	client backend.Client
}

func (c *fakeConn) Client() backend.Client { return c.client }
func (c *fakeConn) Close() error           { return nil }

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := initConfig(*configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	initLogger(&cfg)

	registry := metrics.NewRegistry()
	defer registry.Close()

	// Every connection shares the same in-memory backend, which stands
	// in for the real cluster client stub; deployments link their own
	// backend.Client through this dial hook.
	shared := fake.New()
	dial := func(addr string) (pool.Connection, error) {
		slog.Info("opening backend connection", "addr", addr)
		return &fakeConn{client: metrics.Instrument(shared, registry)}, nil
	}

	connPool := pool.NewFixed(cfg.Pool.Hosts, cfg.Pool.Size, cfg.Pool.LeaseWarnAfter, dial)
	defer connPool.Close()

	if len(cfg.ZooKeeper.Servers) > 0 {
		watcher, err := discovery.NewWatcher(cfg.ZooKeeper.Servers, cfg.ZooKeeper.RootPath, connPool)
		if err != nil {
			slog.Error("zookeeper connect failed", "err", err)
			os.Exit(1)
		}
		defer watcher.Close()
		watcher.Run(ctx)
	}

	store, err := kcv.New(cfg.Store.Keyspace, cfg.Store.ColumnFamily, connPool)
	if err != nil {
		slog.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("store ready", "keyspace", cfg.Store.Keyspace, "column_family", cfg.Store.ColumnFamily)

	server := adminhttp.NewServer(strconv.Itoa(cfg.Server.Port), connPool, registry)
	if err := server.Start(ctx); err != nil {
		slog.Error("admin server failed", "err", err)
		os.Exit(1)
	}
}

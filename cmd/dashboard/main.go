package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-food-court/internal/config"
	"github.com/ariefcatur/go-food-court/internal/dashboard"
	"github.com/ariefcatur/go-food-court/internal/httpx"
	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(config.DefaultDashboardAddr)
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-dashboard")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// store dipakai untuk statistik authoritative saja
	st, err := store.Open(cfg.DBFilePath, store.WithLockTimeout(cfg.StoreLockTimeout), store.WithLogger(log))
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer st.Close()

	stream := dashboard.NewBroadcaster[dashboard.Update]("dashboard", 0, log)
	defer stream.Close()

	cons, err := dashboard.NewConsumer(cfg.KafkaBrokers, cfg.DashboardGroup, dashboard.Callbacks{
		OnStatsUpdate: stream.Publish,
	}, log)
	if err != nil {
		log.Fatal("dashboard consumer", zap.Error(err))
	}

	router := httpx.NewRouter(log)
	dh := &httpx.DashboardHandler{Store: st, Live: cons.Live(), Stream: stream}
	dh.Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cons.Run(gctx) })
	g.Go(func() error { return httpx.Serve(gctx, srv, log) })

	log.Info("dashboard consumer started", zap.String("group", cfg.DashboardGroup))
	if err := g.Wait(); err != nil {
		log.Error("dashboard stopped", zap.Error(err))
	}
	log.Info("shutting down...")
}

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
	"github.com/ariefcatur/go-food-court/internal/httpx"
	kafkax "github.com/ariefcatur/go-food-court/internal/kafka"
	"github.com/ariefcatur/go-food-court/internal/kitchen"
	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/producer"
	"github.com/ariefcatur/go-food-court/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(config.DefaultKitchenAddr)
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-kitchen").
		With(zap.String("kitchen_id", cfg.KitchenID))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DBFilePath, store.WithLockTimeout(cfg.StoreLockTimeout), store.WithLogger(log))
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer st.Close()

	client, err := kafkax.NewClient(cfg.KafkaBrokers, kafkax.WithLogger(log))
	if err != nil {
		log.Fatal("kafka client", zap.Error(err))
	}
	defer client.Close()

	svc := &kitchen.Service{
		KitchenID: cfg.KitchenID,
		Store:     st,
		Producer:  &producer.OrderProducer{Client: client, Store: st, Log: log},
		Tracker:   kitchen.NewTracker(cfg.KitchenID),
		Log:       log,
	}

	cons, err := kitchen.NewConsumer(cfg.KitchenID, cfg.KafkaBrokers, kitchen.Callbacks{
		OnOrder: svc.HandleOrder,
		OnRebalance: func(partitions []int) {
			log.Info("rebalance", zap.Ints("partitions", partitions))
		},
		OnError: func(err error) {
			log.Warn("malformed order skipped", zap.Error(err))
		},
	}, log)
	if err != nil {
		log.Fatal("kitchen consumer", zap.Error(err))
	}

	router := httpx.NewRouter(log)
	kh := &httpx.KitchenHandler{
		KitchenID:  cfg.KitchenID,
		Partitions: cons.Partitions,
		Service:    svc,
		Orders:     st,
	}
	kh.Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cons.Run(gctx) })
	g.Go(func() error { return svc.ReportMetrics(gctx, client, cfg.MetricsInterval) })
	g.Go(func() error { return httpx.Serve(gctx, srv, log) })

	log.Info("kitchen consumer started")
	if err := g.Wait(); err != nil {
		log.Error("kitchen stopped", zap.Error(err))
	}
	log.Info("shutting down consumer...")
}

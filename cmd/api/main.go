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
	kafkax "github.com/ariefcatur/go-food-court/internal/kafka"
	"github.com/ariefcatur/go-food-court/internal/logger"
	"github.com/ariefcatur/go-food-court/internal/orders"
	"github.com/ariefcatur/go-food-court/internal/producer"
	"github.com/ariefcatur/go-food-court/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load(config.DefaultAPIAddr)
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-api")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	st, err := store.Open(cfg.DBFilePath, store.WithLockTimeout(cfg.StoreLockTimeout), store.WithLogger(log))
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer st.Close()

	// Kafka client, satu untuk semua producer
	client, err := kafkax.NewClient(cfg.KafkaBrokers, kafkax.WithLogger(log))
	if err != nil {
		log.Fatal("kafka client", zap.Error(err))
	}
	defer client.Close()

	statuses := dashboard.NewBroadcaster[orders.OrderStatusUpdate]("client-status", 0, log)
	defer statuses.Close()
	cons, err := dashboard.NewStatusConsumer(cfg.KafkaBrokers, cfg.ClientStatusGroup, statuses.Publish, log)
	if err != nil {
		log.Fatal("status consumer", zap.Error(err))
	}

	router := httpx.NewRouter(log)
	oh := &httpx.OrdersHandler{
		Store:        st,
		Orders:       &producer.OrderProducer{Client: client, Store: st, Log: log},
		Reactions:    &producer.ReactionProducer{Client: client, Store: st, Log: log},
		Statuses:     statuses,
		SecureCookie: cfg.SessionCookieSecure,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cons.Run(gctx) })
	g.Go(func() error { return httpx.Serve(gctx, srv, log) })

	log.Info("api started", zap.String("addr", cfg.HTTPAddr), zap.String("status_group", cfg.ClientStatusGroup))
	if err := g.Wait(); err != nil {
		log.Error("api stopped", zap.Error(err))
	}
	log.Info("shutting down...")
}

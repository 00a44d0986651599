package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventstage/config"
	"eventstage/internal/cache"
	"eventstage/internal/database"
	"eventstage/internal/handler"
	"eventstage/internal/notify"
	"eventstage/internal/queue"
	"eventstage/internal/redeem"
	"eventstage/internal/repository"
	"eventstage/internal/repository/memory"
	"eventstage/internal/service"
	"eventstage/internal/worker"
	"eventstage/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type repositories struct {
	events    repository.EventRepository
	tiers     repository.TicketTierRepository
	purchases repository.PurchaseRepository
	ledger    repository.TicketLedger
	users     repository.UserRepository
	groups    repository.GroupRepository
}

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	addr := pflag.String("addr", "", "listen address, overrides HTTP_ADDR")
	logLevel := pflag.String("log-level", "info", "log level")
	pflag.Parse()

	if err := logger.SetLevel(*logLevel); err != nil {
		logger.L.Fatal("Invalid log level", zap.Error(err))
	}
	log := logger.WithComponent("server")
	defer logger.L.Sync()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	var rdb *redis.Client
	if cfg.Gate.Enabled || cfg.Notify.Queue == config.NotifyQueueRedis {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	var gate cache.TicketInventoryGate
	if cfg.Gate.Enabled {
		gate = cache.NewTicketInventoryGate(rdb, cfg.Gate.TTL)
	}

	var notifications queue.NotificationQueue
	if cfg.Notify.Queue == config.NotifyQueueRedis {
		notifications, err = queue.NewRedisStreamNotificationQueue(ctx, rdb, "", queue.StreamOptions{MaxLen: 100_000})
		if err != nil {
			log.Fatal("Failed to initialize notification stream", zap.Error(err))
		}
	} else {
		notifications = queue.NewNotificationQueue(cfg.Notify.BufferSize, 5)
	}

	dispatcher := notify.NewLogDispatcher()
	if cfg.Notify.PubNubPublishKey != "" {
		dispatcher = notify.NewPubNubDispatcher(notify.NewPubNubClient(cfg.Notify))
	}
	done, err := worker.NewNotificationWorker(dispatcher, notifications).Start(ctx)
	if err != nil {
		log.Fatal("Failed to start notification worker", zap.Error(err))
	}

	codec, err := redeem.NewCodec(cfg.RedeemKey)
	if err != nil {
		log.Fatal("Failed to initialize redemption codec", zap.Error(err))
	}
	sink := notify.NewQueueSink(notifications, 2*time.Second)

	tickets := service.NewTicketService(repos.events, repos.tiers, gate)
	services := handler.Services{
		Events:     service.NewEventService(repos.events, repos.tiers, repos.purchases, repos.users, repos.groups, tickets, sink),
		Tickets:    tickets,
		Purchases:  service.NewPurchaseService(repos.events, repos.tiers, repos.purchases, repos.ledger, repos.users, gate, codec, sink),
		StagePosts: service.NewStagePostService(repos.events),
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(services, cfg.JWTSecret),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
			zap.Bool("gate", gate != nil),
			zap.String("notify_queue", cfg.Notify.Queue),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// 等待 worker 處理完畢
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("Notification worker did not stop in time")
	}
}

// openStore returns the repositories for the configured driver and a close func.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*repositories, func()) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		store := memory.NewStore()
		return &repositories{
			events:    store.Events(),
			tiers:     store.Tiers(),
			purchases: store.Purchases(),
			ledger:    store.Ledger(),
			users:     store.Users(),
			groups:    store.Groups(),
		}, func() {}
	}

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	client, db, err := database.InitMongo(&cfg.Mongo)
	if err != nil {
		pool.Close()
		log.Fatal("Failed to initialize mongo", zap.Error(err))
	}

	return &repositories{
			events:    repository.NewEventRepository(db),
			tiers:     repository.NewTicketTierRepository(pool),
			purchases: repository.NewPurchaseRepository(pool),
			ledger:    repository.NewTicketLedger(pool),
			users:     repository.NewUserRepository(db),
			groups:    repository.NewGroupRepository(db),
		}, func() {
			pool.Close()
			_ = client.Disconnect(context.Background())
		}
}

package bootstrap

import (
	"context"
	"log"
	"time"

	"giving-ledger-be/internal/config"
	"giving-ledger-be/internal/controller"
	"giving-ledger-be/internal/pkg/logger"
	"giving-ledger-be/internal/pkg/mailer"
	"giving-ledger-be/internal/repository/cache"
	"giving-ledger-be/internal/repository/contract"
	"giving-ledger-be/internal/repository/memory"
	"giving-ledger-be/internal/repository/unitofwork"
	"giving-ledger-be/internal/service"
	"giving-ledger-be/pkg/clock"
	"giving-ledger-be/pkg/ledgerevents"
	pktNats "giving-ledger-be/pkg/nats"
	stripeProcessor "giving-ledger-be/pkg/processor/stripe"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const receiptTopic = "ledger.receipts"

type Container struct {
	// Controllers
	WebhookController controller.IWebhookController
	GivingController  controller.IGivingController
	AdminController   controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db, unitofwork.WithMaxAttempts(cfg.Ledger.TxRetryAttempts))
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	clk := clock.NewSystemClock()

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = pub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	marker := newDeliveryMarker(cfg, c)

	// 4. Services
	publisherService := service.NewPublisherService(pubSub, receiptTopic)
	c.ConsumerService = service.NewConsumerService(pubSub, receiptTopic, emailService, sysLogger)

	events := ledgerevents.NewNatsPublisher(natsPub, publisherService, sysLogger)
	gateway := stripeProcessor.NewGateway(cfg.Stripe.SecretKey)

	claimer := service.NewTransactionClaimer()
	resolver := service.NewTransactionResolver()

	pledgeService := service.NewPledgeService(uowFactory, gateway, claimer, resolver, events, clk, cfg.Stripe, sysLogger)
	webhookService := service.NewWebhookService(uowFactory, pledgeService, claimer, resolver, gateway, events, clk, sysLogger)
	dispatcher := service.NewWebhookDispatcher(uowFactory, webhookService, marker, clk, sysLogger)
	givingService := service.NewGivingService(uowFactory)

	// 5. Controllers
	c.WebhookController = controller.NewWebhookController(dispatcher, cfg.Stripe.WebhookSecret, cfg.Ledger.WebhookMaxBodyBytes, sysLogger)
	c.GivingController = controller.NewGivingController(pledgeService, givingService)
	c.AdminController = controller.NewAdminController(pledgeService)

	return c
}

// newDeliveryMarker prefers Redis and falls back to an in-process cache.
func newDeliveryMarker(cfg *config.Config, c *Container) contract.DeliveryMarker {
	ttl := time.Duration(cfg.Ledger.WebhookDedupTTLMinutes) * time.Minute
	if cfg.App.RedisURL == "" {
		return memory.NewDeliveryMarker(ttl)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory delivery marker", err)
		_ = rdb.Close()
		return memory.NewDeliveryMarker(ttl)
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })
	return cache.NewRedisDeliveryMarker(rdb, ttl)
}

// Close releases broker connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

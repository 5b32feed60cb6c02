package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentcar/internal/app/handlers/notifications"
	"rentcar/internal/app/middleware"
	appoutbox "rentcar/internal/app/outbox"
	"rentcar/internal/app/policies"
	"rentcar/internal/app/uow"
	domainuser "rentcar/internal/domain/user"
	"rentcar/internal/infra/broker/kafka"
	"rentcar/internal/infra/config"
	"rentcar/internal/infra/inbox"
	mongodb "rentcar/internal/infra/db/mongo"
	"rentcar/internal/infra/notify"
	"rentcar/internal/infra/obs"
	outboxrelay "rentcar/internal/infra/outbox"
	"rentcar/internal/infra/storage/memory"
	"rentcar/internal/infra/storage/s3"
)

// backend is the storage and messaging side of one process, memory or Mongo+Kafka.
type backend struct {
	factory     uow.UoWFactory
	users       domainuser.Repository
	idempotency middleware.IdempotencyStore
	locker      middleware.KeyedLocker
	outbox      appoutbox.Outbox
	background  []func(ctx context.Context) error
	checks      []obs.Check
	closers     []func(ctx context.Context) error
}

func (b *backend) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.StorageMode {
	case config.StorageMongo:
		return openMongoBackend(ctx, cfg, logger)
	default:
		return openMemoryBackend(cfg, logger), nil
	}
}

func notificationHandler(factory uow.UoWFactory, logger *slog.Logger) *notifications.BookingEventHandler {
	return &notifications.BookingEventHandler{
		UoWFactory: factory,
		Notifier:   notify.LogNotifier{Logger: logger},
		Logger:     logger,
	}
}

func openMemoryBackend(cfg config.Config, logger *slog.Logger) *backend {
	store := memory.NewStore()
	factory := store.Factory()
	box := memory.NewOutbox(notificationHandler(factory, logger), logger, 256)
	logger.Warn("running with in-memory storage, data is lost on restart")
	return &backend{
		factory:     factory,
		users:       store.Users,
		idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		locker:      memory.NewKeyedLocker(),
		outbox:      box,
		background:  []func(ctx context.Context) error{box.Run},
	}
}

func openMongoBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	b := &backend{closers: []func(ctx context.Context) error{client.Close}}
	fail := func(err error) (*backend, error) {
		b.close(logger)
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return fail(fmt.Errorf("ping mongo: %w", err))
	}
	if err := client.EnsureIndexes(pingCtx); err != nil {
		return fail(fmt.Errorf("ensure indexes: %w", err))
	}

	factory := mongodb.NewFactory(client.DB)
	store := outboxrelay.NewStore(client.DB)

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, "rentcar", nil)
	if err != nil {
		return fail(fmt.Errorf("kafka producer: %w", err))
	}
	b.closers = append(b.closers, func(context.Context) error { return producer.Close() })

	dedup, err := inbox.NewStore(pingCtx, client.DB, cfg.KafkaNotifyGroup, 0)
	if err != nil {
		return fail(fmt.Errorf("inbox: %w", err))
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaNotifyGroup, nil,
		kafka.EventHandler{Dispatcher: notificationHandler(factory, logger), Inbox: dedup}, logger)
	if err != nil {
		return fail(fmt.Errorf("kafka consumer: %w", err))
	}
	b.closers = append(b.closers, func(context.Context) error { return consumer.Close() })

	worker := &outboxrelay.Worker{
		Store:       store,
		Producer:    producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "app://rentcar",
		Backoff:     cfg.RetryBackoff,
	}
	topics := []string{outboxrelay.TopicFor(cfg.KafkaTopicPrefix, "booking.created")}

	b.factory = factory
	b.users = factory.UsersRepo
	b.idempotency = mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
	b.locker = mongodb.NewKeyedLocker(client.DB, cfg.LockLease)
	b.outbox = store
	b.background = []func(ctx context.Context) error{
		worker.Run,
		func(ctx context.Context) error { return consumer.Run(ctx, topics) },
	}
	b.checks = []obs.Check{{Name: "mongo", Probe: client.Ping}}
	return b, nil
}

// openBlobStorage returns nil storage when S3 is not configured; uploads then fail with
// STORAGE_UNAVAILABLE.
func openBlobStorage(cfg config.Config, logger *slog.Logger) (policies.BlobStorage, *obs.Check, error) {
	if !cfg.S3Enabled() {
		logger.Info("blob storage disabled")
		return nil, nil, nil
	}
	client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, &obs.Check{Name: "s3", Probe: client.Ready}, nil
}

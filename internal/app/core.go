package app

import (
	"context"

	"github.com/gmc453/workshop-booker/internal/cache"
	"github.com/gmc453/workshop-booker/internal/config"
	"github.com/gmc453/workshop-booker/internal/mq"
	"github.com/gmc453/workshop-booker/internal/notify"
	"github.com/gmc453/workshop-booker/internal/repository"
	"github.com/gmc453/workshop-booker/internal/scheduler"
	"github.com/gmc453/workshop-booker/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Core wires the reservation subsystem. Controller layers (REST, bots,
// admin UI) construct a Core and call the services on it; this package owns
// only the wiring, not any transport.
type Core struct {
	Reservations *service.ReservationService
	Availability *service.AvailabilityService
	Dispatcher   *notify.Dispatcher
	Jobs         *scheduler.Scheduler

	publisher *mq.Publisher
}

// NewCore assembles the reservation core on top of the database pool.
// The broker and Redis are optional: without AMQP_URL notifications go to
// the log, without REDIS_ADDR the availability cache is a no-op.
func NewCore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (*Core, error) {
	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	serviceRepo := repository.NewServiceRepository(pool)

	jobs := scheduler.New(logger)

	var publisher *mq.Publisher
	var events service.EventPublisher
	var messenger notify.Messenger
	var texter notify.Texter

	if cfg.AmqpURL != "" {
		p, err := mq.NewPublisher(cfg.AmqpURL, cfg.AmqpExchange)
		if err != nil {
			return nil, err
		}
		publisher = p
		events = p
		messenger = notify.NewAmqpMessenger(p)
		texter = notify.NewAmqpTexter(p, cfg.SMSCountryCode)
	} else {
		logger.Warn("AMQP_URL not set, notifications go to the log only")
		messenger = notify.NewConsoleMessenger(logger)
		texter = notify.NewConsoleTexter(logger, cfg.SMSCountryCode)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, availability cache disabled", zap.Error(err))
			redisClient = nil
		}
	}
	calendar := cache.NewAvailabilityCache(redisClient)

	dispatcher := notify.NewDispatcher(messenger, texter, jobs, logger, cfg.NotifyTimeout)

	return &Core{
		Reservations: service.NewReservationService(
			pool, slotRepo, serviceRepo, bookingRepo, dispatcher, jobs, events, logger,
		),
		Availability: service.NewAvailabilityService(slotRepo, serviceRepo, calendar, logger),
		Dispatcher:   dispatcher,
		Jobs:         jobs,
		publisher:    publisher,
	}, nil
}

// Close releases the broker connection. The database pool belongs to the
// caller.
func (c *Core) Close() {
	if c.publisher != nil {
		_ = c.publisher.Close()
	}
}

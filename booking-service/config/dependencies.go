package config

import (
	"context"
	"fmt"
	"time"

	"github.com/draftea/booking-system/booking-service/application"
	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/draftea/booking-system/booking-service/handlers"
	"github.com/draftea/booking-system/booking-service/infrastructure"
	"github.com/draftea/booking-system/shared/events"
	sharedinfra "github.com/draftea/booking-system/shared/infrastructure"
	"github.com/draftea/booking-system/shared/saga"
	"github.com/draftea/booking-system/shared/telemetry"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const memoryBusBuffer = 1024

type Dependencies struct {
	Logger *zap.Logger

	// Database
	DB *sqlx.DB

	// Repositories
	BookingRepository *infrastructure.SQLBookingRepository

	// Saga collaborators
	SagaDispatcher domain.SagaDispatcher
	Notifier       domain.Notifier

	// Use Cases
	CreateBooking        *application.CreateBooking
	GetBooking           *application.GetBooking
	ProcessBookingSaga   *application.ProcessBookingSaga
	SweepPendingBookings *application.SweepPendingBookings

	// HTTP Handlers
	BookingHandlers *handlers.BookingHandlers
	HealthCheckers  []handlers.HealthChecker

	// Event Handlers
	BookingEventHandlers *handlers.BookingEventHandlers
	EventRouter          *saga.EventRouter
	SweepScheduler       *handlers.SweepScheduler

	// Infrastructure
	EventPublisher  events.Publisher
	EventSubscriber events.Subscriber

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func BuildDependencies(ctx context.Context, config *Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger}

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.BookingServiceConfig.
			WithOTLPEndpoint(config.Telemetry.OTLPEndpoint).
			WithVersion(config.Telemetry.ServiceVersion)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			// Continue without telemetry rather than failing
			logger.Warn("failed to initialize telemetry", zap.Error(err))
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	// Initialize database
	db, err := infrastructure.OpenDatabase(ctx, config.Database.Driver, config.GetDatabaseURL())
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.DB = db
	deps.addCloser("database", db.Close)

	// Initialize repositories
	deps.BookingRepository = infrastructure.NewSQLBookingRepository(db)
	deps.HealthCheckers = append(deps.HealthCheckers,
		handlers.NewHealthCheckFunc("database", deps.BookingRepository.Ping))

	// Initialize broker
	if err := deps.buildPublisher(ctx, config); err != nil {
		deps.Close()
		return nil, err
	}
	deps.SagaDispatcher = infrastructure.NewEventSagaDispatcher(deps.EventPublisher)

	notifiers := infrastructure.MultiNotifier{infrastructure.NewLogNotifier(logger)}
	if config.Saga.PublishOutcomes {
		if config.Broker.Driver == BrokerAsynq {
			// asynq fails tasks nobody has a handler for
			logger.Warn("saga.publish_outcomes is ignored with the asynq broker")
		} else {
			notifiers = append(notifiers, infrastructure.NewEventNotifier(deps.EventPublisher))
		}
	}
	deps.Notifier = notifiers

	decide, err := domain.NewDecider(config.Saga.Decision)
	if err != nil {
		deps.Close()
		return nil, err
	}

	retry := application.RetryPolicy{
		MaxTries:        config.Saga.StoreRetry.MaxTries,
		InitialInterval: config.Saga.StoreRetry.InitialInterval,
		MaxInterval:     config.Saga.StoreRetry.MaxInterval,
	}

	// Initialize use cases
	deps.CreateBooking = application.NewCreateBooking(deps.BookingRepository, deps.SagaDispatcher)
	deps.GetBooking = application.NewGetBooking(deps.BookingRepository)
	deps.ProcessBookingSaga = application.NewProcessBookingSaga(deps.BookingRepository, decide, deps.Notifier, retry)
	deps.SweepPendingBookings = application.NewSweepPendingBookings(deps.BookingRepository, deps.SagaDispatcher, application.SweepOptions{
		StalenessThreshold: config.Sweep.StalenessThreshold,
		Concurrency:        config.Sweep.Concurrency,
		Retry:              retry,
	})

	// Initialize handlers
	deps.BookingHandlers = handlers.NewBookingHandlers(deps.CreateBooking, deps.GetBooking, deps.SweepPendingBookings, logger)
	deps.BookingEventHandlers = handlers.NewBookingEventHandlers(deps.ProcessBookingSaga)
	deps.EventRouter = saga.NewEventRouter(logger)
	deps.BookingEventHandlers.Register(deps.EventRouter)

	if err := deps.buildSubscriber(ctx, config); err != nil {
		deps.Close()
		return nil, err
	}

	if config.Sweep.Schedule != "" {
		scheduler, err := handlers.NewSweepScheduler(config.Sweep.Schedule, deps.SweepPendingBookings, logger)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.SweepScheduler = scheduler
	}

	return deps, nil
}

func (d *Dependencies) buildPublisher(ctx context.Context, config *Config) error {
	switch config.Broker.Driver {
	case BrokerSQS:
		publisher, err := sharedinfra.NewSNSPublisher(ctx, sharedinfra.AWSOptions{
			Region:   config.AWS.Region,
			Endpoint: config.AWS.EndpointSNS,
		}, config.AWS.SNSTopicArn, d.Logger)
		if err != nil {
			return errors.Wrap(err, "failed to create SNS publisher")
		}
		d.EventPublisher = publisher

	case BrokerAsynq:
		publisher := sharedinfra.NewAsynqEventPublisher(redisConnOpt(config), sharedinfra.AsynqPublisherOptions{
			Queue:     config.Broker.Queue,
			MaxRetry:  config.Broker.MaxRetries,
			DedupeTTL: config.Broker.DedupeTTL,
		}, d.Logger)
		d.EventPublisher = publisher
		d.addCloser("asynq publisher", publisher.Close)

		redisHealth := sharedinfra.NewRedisHealthChecker(config.Broker.RedisAddr, config.Broker.RedisPassword, config.Broker.RedisDB)
		d.HealthCheckers = append(d.HealthCheckers, redisHealth)
		d.addCloser("redis health checker", redisHealth.Close)

	case BrokerMemory:
		// max_retries counts redeliveries, the bus counts attempts
		bus := sharedinfra.NewMemoryEventBus(config.Broker.Workers, config.Broker.MaxRetries+1, memoryBusBuffer, d.Logger)
		d.EventPublisher = bus
		d.EventSubscriber = bus
		d.HealthCheckers = append(d.HealthCheckers, bus)

	default:
		return errors.Errorf("unsupported broker driver %q", config.Broker.Driver)
	}

	return nil
}

func (d *Dependencies) buildSubscriber(ctx context.Context, config *Config) error {
	switch config.Broker.Driver {
	case BrokerSQS:
		opts := []sharedinfra.SQSSubscriberOption{
			sharedinfra.WithWorkers(int32(config.Broker.Workers)),
			sharedinfra.WithMaxReceiveCount(config.Broker.MaxRetries + 1),
		}
		if timeout := int32(config.Broker.VisibilityTimeout / time.Second); timeout > 0 {
			opts = append(opts, sharedinfra.WithVisibilityTimeout(timeout))
		}

		subscriber, err := sharedinfra.NewSQSSubscriber(ctx, sharedinfra.AWSOptions{
			Region:   config.AWS.Region,
			Endpoint: config.AWS.EndpointSQS,
		}, config.AWS.SQSQueueURL, d.Logger, opts...)
		if err != nil {
			return errors.Wrap(err, "failed to create SQS subscriber")
		}
		d.EventSubscriber = subscriber
		d.HealthCheckers = append(d.HealthCheckers, subscriber)

	case BrokerAsynq:
		d.EventSubscriber = sharedinfra.NewAsynqEventSubscriber(redisConnOpt(config), sharedinfra.AsynqSubscriberOptions{
			Queue:       config.Broker.Queue,
			Concurrency: config.Broker.Workers,
			Topics:      d.BookingEventHandlers.Topics(),
		}, d.Logger)
	}

	if d.EventSubscriber != nil {
		d.addCloser("event subscriber", d.EventSubscriber.Close)
	}
	return nil
}

func redisConnOpt(config *Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.Broker.RedisAddr,
		Password: config.Broker.RedisPassword,
		DB:       config.Broker.RedisDB,
	}
}

func (d *Dependencies) addCloser(name string, fn func() error) {
	d.closers = append(d.closers, namedCloser{name: name, close: fn})
}

// Close closes all dependencies in reverse order of creation
func (d *Dependencies) Close() error {
	var errs []error

	if d.SweepScheduler != nil {
		d.SweepScheduler.Stop()
	}
	if d.BookingHandlers != nil {
		d.BookingHandlers.WaitForSweeps()
	}

	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "failed to close %s", d.closers[i].name))
		}
	}
	d.closers = nil

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
		d.TelemetryShutdown = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}

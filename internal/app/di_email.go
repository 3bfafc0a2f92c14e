package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/allisson/mailqueue/internal/broker"
	"github.com/allisson/mailqueue/internal/config"
	"github.com/allisson/mailqueue/internal/database"
	emailHTTP "github.com/allisson/mailqueue/internal/email/http"
	emailRepository "github.com/allisson/mailqueue/internal/email/repository"
	"github.com/allisson/mailqueue/internal/email/service"
	emailUseCase "github.com/allisson/mailqueue/internal/email/usecase"
	"github.com/allisson/mailqueue/internal/http"
	"github.com/allisson/mailqueue/internal/retry"
)

type emailComponents struct {
	contentRepo emailUseCase.ContentRepository
	requestRepo emailUseCase.RequestRepository
	resultRepo  emailUseCase.ResultRepository

	publisher     broker.Publisher
	trackingLinks *service.TrackingLinks
	openRecorder  *emailUseCase.AsyncOpenRecorder

	messageUseCase   emailUseCase.MessageUseCase
	dispatchUseCase  emailUseCase.DispatchUseCase
	reclaimUseCase   emailUseCase.ReclaimUseCase
	ingestionUseCase emailUseCase.IngestionUseCase
	trackingUseCase  emailUseCase.TrackingUseCase
	statsUseCase     emailUseCase.StatsUseCase

	reposInit            sync.Once
	publisherInit        sync.Once
	trackingLinksInit    sync.Once
	openRecorderInit     sync.Once
	messageUseCaseInit   sync.Once
	dispatchUseCaseInit  sync.Once
	reclaimUseCaseInit   sync.Once
	ingestionUseCaseInit sync.Once
	trackingUseCaseInit  sync.Once
	statsUseCaseInit     sync.Once
}

// RequestRepository returns the request repository for the configured driver.
func (c *Container) RequestRepository() (emailUseCase.RequestRepository, error) {
	err := c.initRepositories()
	return c.email.requestRepo, err
}

// ResultRepository returns the result repository for the configured driver.
func (c *Container) ResultRepository() (emailUseCase.ResultRepository, error) {
	err := c.initRepositories()
	return c.email.resultRepo, err
}

// ContentRepository returns the content repository for the configured driver.
func (c *Container) ContentRepository() (emailUseCase.ContentRepository, error) {
	err := c.initRepositories()
	return c.email.contentRepo, err
}

func (c *Container) initRepositories() error {
	return c.load(&c.email.reposInit, "emailRepositories", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for repositories: %w", err)
		}

		switch c.config.DBDriver {
		case database.DriverPostgres:
			c.email.contentRepo = emailRepository.NewPostgreSQLContentRepository(db)
			c.email.requestRepo = emailRepository.NewPostgreSQLRequestRepository(db)
			c.email.resultRepo = emailRepository.NewPostgreSQLResultRepository(db)
		case database.DriverMySQL:
			txManager, err := c.TxManager()
			if err != nil {
				return err
			}
			c.email.contentRepo = emailRepository.NewMySQLContentRepository(db)
			c.email.requestRepo = emailRepository.NewMySQLRequestRepository(db, txManager)
			c.email.resultRepo = emailRepository.NewMySQLResultRepository(db)
		default:
			return fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
		return nil
	})
}

// Publisher returns the broker publisher.
func (c *Container) Publisher(ctx context.Context) (broker.Publisher, error) {
	err := c.load(&c.email.publisherInit, "publisher", func() error {
		publisher, err := broker.New(ctx, brokerConfig(c.config), c.Logger())
		if err != nil {
			return fmt.Errorf("failed to create %s publisher: %w", c.config.BrokerDriver, err)
		}
		c.email.publisher = publisher
		return nil
	})
	return c.email.publisher, err
}

func brokerConfig(cfg *config.Config) broker.Config {
	return broker.Config{
		Driver:         cfg.BrokerDriver,
		URL:            cfg.BrokerURL,
		Addresses:      cfg.BrokerAddresses(),
		Stream:         cfg.BrokerStream,
		Subject:        cfg.BrokerSubject,
		Encoding:       cfg.BrokerEncoding,
		PublishTimeout: cfg.BrokerPublishTimeout,

		BreakerFailures:    cfg.BrokerBreakerFailures,
		BreakerOpenTimeout: cfg.BrokerBreakerOpenTimeout,
	}
}

// TrackingLinks returns the tracking pixel link signer.
func (c *Container) TrackingLinks() (*service.TrackingLinks, error) {
	err := c.load(&c.email.trackingLinksInit, "trackingLinks", func() error {
		links, err := service.NewTrackingLinks(c.config.PublicBaseURL, c.config.TrackingSecret)
		if err != nil {
			return fmt.Errorf("failed to create tracking links: %w", err)
		}
		if !links.Signed() {
			c.Logger().Warn("TRACKING_SECRET is empty, tracking links are unsigned")
		}
		c.email.trackingLinks = links
		return nil
	})
	return c.email.trackingLinks, err
}

func (c *Container) storeRetry() retry.Policy {
	return retry.DefaultPolicy(c.config.StoreRetryMaxAttempts)
}

// MessageUseCase returns the message ingress use case.
func (c *Container) MessageUseCase() (emailUseCase.MessageUseCase, error) {
	err := c.load(&c.email.messageUseCaseInit, "messageUseCase", func() error {
		txManager, err := c.TxManager()
		if err != nil {
			return err
		}
		contentRepo, err := c.ContentRepository()
		if err != nil {
			return err
		}
		requestRepo, err := c.RequestRepository()
		if err != nil {
			return err
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return err
		}

		useCase := emailUseCase.NewMessageUseCase(txManager, contentRepo, requestRepo)
		c.email.messageUseCase = emailUseCase.NewMessageUseCaseWithMetrics(useCase, businessMetrics)
		return nil
	})
	return c.email.messageUseCase, err
}

// DispatchUseCase returns the dispatch scheduler use case. It connects to the broker.
func (c *Container) DispatchUseCase(ctx context.Context) (emailUseCase.DispatchUseCase, error) {
	err := c.load(&c.email.dispatchUseCaseInit, "dispatchUseCase", func() error {
		txManager, err := c.TxManager()
		if err != nil {
			return err
		}
		requestRepo, err := c.RequestRepository()
		if err != nil {
			return err
		}
		publisher, err := c.Publisher(ctx)
		if err != nil {
			return err
		}
		links, err := c.TrackingLinks()
		if err != nil {
			return err
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return err
		}

		useCase := emailUseCase.NewDispatchUseCase(emailUseCase.DispatchConfig{
			BatchSize:    c.config.DispatchBatchSize,
			Concurrency:  c.config.DispatchConcurrency,
			TickTimeout:  c.config.DispatchTickTimeout,
			PublishRetry: retry.DefaultPolicy(c.config.PublishMaxRetries),
			StoreRetry:   c.storeRetry(),
		}, txManager, requestRepo, publisher, links, c.Logger())
		c.email.dispatchUseCase = emailUseCase.NewDispatchUseCaseWithMetrics(useCase, businessMetrics)
		return nil
	})
	return c.email.dispatchUseCase, err
}

// ReclaimUseCase returns the stuck request reclaimer use case.
func (c *Container) ReclaimUseCase() (emailUseCase.ReclaimUseCase, error) {
	err := c.load(&c.email.reclaimUseCaseInit, "reclaimUseCase", func() error {
		txManager, err := c.TxManager()
		if err != nil {
			return err
		}
		requestRepo, err := c.RequestRepository()
		if err != nil {
			return err
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return err
		}

		useCase := emailUseCase.NewReclaimUseCase(emailUseCase.ReclaimConfig{
			ProcessingTimeout: c.config.ReclaimProcessingTimeout,
			BatchSize:         c.config.ReclaimBatchSize,
			StoreRetry:        c.storeRetry(),
		}, txManager, requestRepo, c.Logger())
		c.email.reclaimUseCase = emailUseCase.NewReclaimUseCaseWithMetrics(useCase, businessMetrics)
		return nil
	})
	return c.email.reclaimUseCase, err
}

// IngestionUseCase returns the result ingestion use case.
func (c *Container) IngestionUseCase() (emailUseCase.IngestionUseCase, error) {
	err := c.load(&c.email.ingestionUseCaseInit, "ingestionUseCase", func() error {
		txManager, err := c.TxManager()
		if err != nil {
			return err
		}
		requestRepo, err := c.RequestRepository()
		if err != nil {
			return err
		}
		resultRepo, err := c.ResultRepository()
		if err != nil {
			return err
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return err
		}

		useCase := emailUseCase.NewIngestionUseCase(emailUseCase.IngestionConfig{
			DedupAll:   c.config.ResultDedupPolicy == config.DedupPolicyAll,
			StoreRetry: c.storeRetry(),
		}, txManager, requestRepo, resultRepo, c.Logger())
		c.email.ingestionUseCase = emailUseCase.NewIngestionUseCaseWithMetrics(useCase, businessMetrics)
		return nil
	})
	return c.email.ingestionUseCase, err
}

// TrackingUseCase returns the open tracking use case.
func (c *Container) TrackingUseCase() (emailUseCase.TrackingUseCase, error) {
	err := c.load(&c.email.trackingUseCaseInit, "trackingUseCase", func() error {
		resultRepo, err := c.ResultRepository()
		if err != nil {
			return err
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return err
		}

		c.email.trackingUseCase = emailUseCase.NewTrackingUseCaseWithMetrics(
			emailUseCase.NewTrackingUseCase(resultRepo),
			businessMetrics,
		)
		return nil
	})
	return c.email.trackingUseCase, err
}

// OpenRecorder returns the recorder that writes opens off the request path.
func (c *Container) OpenRecorder() (*emailUseCase.AsyncOpenRecorder, error) {
	err := c.load(&c.email.openRecorderInit, "openRecorder", func() error {
		tracking, err := c.TrackingUseCase()
		if err != nil {
			return err
		}
		c.email.openRecorder = emailUseCase.NewAsyncOpenRecorder(
			tracking,
			c.config.TrackingWriteTimeout,
			c.config.TrackingMaxInflight,
			c.Logger(),
		)
		return nil
	})
	return c.email.openRecorder, err
}

// StatsUseCase returns the analytics use case.
func (c *Container) StatsUseCase() (emailUseCase.StatsUseCase, error) {
	err := c.load(&c.email.statsUseCaseInit, "statsUseCase", func() error {
		requestRepo, err := c.RequestRepository()
		if err != nil {
			return err
		}
		resultRepo, err := c.ResultRepository()
		if err != nil {
			return err
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return err
		}

		c.email.statsUseCase = emailUseCase.NewStatsUseCaseWithMetrics(
			emailUseCase.NewStatsUseCase(requestRepo, resultRepo),
			businessMetrics,
		)
		return nil
	})
	return c.email.statsUseCase, err
}

// DispatchLoop returns the periodic dispatch scheduler.
func (c *Container) DispatchLoop(ctx context.Context) (*emailUseCase.Loop, error) {
	dispatch, err := c.DispatchUseCase(ctx)
	if err != nil {
		return nil, err
	}
	return emailUseCase.NewLoop("dispatch", c.config.DispatchInterval, func(ctx context.Context) error {
		_, err := dispatch.RunOnce(ctx)
		return err
	}, c.Logger()), nil
}

// ReclaimLoop returns the periodic stuck request reclaimer.
func (c *Container) ReclaimLoop() (*emailUseCase.Loop, error) {
	reclaim, err := c.ReclaimUseCase()
	if err != nil {
		return nil, err
	}
	return emailUseCase.NewLoop("reclaim", c.config.ReclaimInterval, func(ctx context.Context) error {
		_, err := reclaim.RunOnce(ctx)
		return err
	}, c.Logger()), nil
}

func (c *Container) routeHandlers() (http.RouteHandlers, error) {
	logger := c.Logger()

	messageUseCase, err := c.MessageUseCase()
	if err != nil {
		return http.RouteHandlers{}, err
	}
	statsUseCase, err := c.StatsUseCase()
	if err != nil {
		return http.RouteHandlers{}, err
	}
	ingestionUseCase, err := c.IngestionUseCase()
	if err != nil {
		return http.RouteHandlers{}, err
	}
	recorder, err := c.OpenRecorder()
	if err != nil {
		return http.RouteHandlers{}, err
	}
	links, err := c.TrackingLinks()
	if err != nil {
		return http.RouteHandlers{}, err
	}

	location, err := time.LoadLocation(c.config.ScheduleDefaultTimezone)
	if err != nil {
		return http.RouteHandlers{}, fmt.Errorf("invalid schedule time zone: %w", err)
	}

	var confirmer emailHTTP.SubscriptionConfirmer
	if c.config.SNSAutoConfirm {
		confirmer = service.NewSubscriptionConfirmer(logger)
		logger.Info("SNS subscriptions are confirmed automatically", slog.Bool("sns_auto_confirm", true))
	}

	return http.RouteHandlers{
		Message: emailHTTP.NewMessageHandler(messageUseCase, location, logger),
		Stats:   emailHTTP.NewStatsHandler(statsUseCase, logger),
		Event:   emailHTTP.NewEventHandler(ingestionUseCase, recorder, links, confirmer, logger),
	}, nil
}

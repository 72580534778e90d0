package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	openbo "github.com/NewYaroslav/open-bo-api"
	"github.com/NewYaroslav/open-bo-api/daemon"
	"github.com/NewYaroslav/open-bo-api/logrus"
	"github.com/NewYaroslav/open-bo-api/metrics"
	"github.com/NewYaroslav/open-bo-api/paper"
	"github.com/NewYaroslav/open-bo-api/postgres"
	"github.com/NewYaroslav/open-bo-api/pubsub"
	"github.com/NewYaroslav/open-bo-api/sqlite"
	"github.com/NewYaroslav/open-bo-api/uuid"
)

func main() {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	config, err := readConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "could not read config: [%v]", err)
		os.Exit(1)
	}

	var fileConfig *logrus.FileConfig
	if len(config.Logging.File) > 0 {
		fileConfig = &logrus.FileConfig{
			Path:       config.Logging.File,
			MaxSizeMB:  config.Logging.MaxSizeMB,
			MaxBackups: config.Logging.MaxBackups,
		}
	}

	logger := logrus.ConfigureStandardLogger(
		config.Logging.Format,
		config.Logging.Level,
		fileConfig,
	)

	repository, err := connectStorage(ctx, logger, &config.Database)
	if err != nil {
		logger.Fatalf("could not connect storage: [%v]", err)
	}

	ledger, err := openbo.RunLedger(ctx, repository, logger)
	if err != nil {
		logger.Fatalf("could not run ledger: [%v]", err)
	}

	var eventService openbo.EventService
	if config.PubSub.Enabled {
		pubsubClient, err := pubsub.NewClient(
			ctx,
			config.PubSub.ProjectID,
			config.PubSub.Topic,
		)
		if err != nil {
			logger.Fatalf("could not create pubsub client: [%v]", err)
		}

		eventService = pubsub.NewEventService(pubsubClient, logger)
	}

	metrics.Serve(ctx, logger, config.Metrics.Address)

	venues := make([]openbo.VenueService, 0, len(config.Venues))
	for _, venueConfig := range config.Venues {
		venues = append(venues, paper.NewVenue(logger, &paper.Config{
			Name:          venueConfig.Name,
			WindowSeconds: venueConfig.WindowSeconds,
			Payout:        venueConfig.Payout,
			MinAmount:     venueConfig.MinAmount,
			Balance:       venueConfig.Balance,
			WinChance:     venueConfig.WinChance,
		}))
	}

	selector := openbo.NewSelector(logger, venues...)

	signalGenerator := &fixedSignalGenerator{
		signal: &openbo.Signal{
			Symbol:      config.Trading.Symbol,
			Direction:   openbo.ParseDirection(config.Trading.Direction),
			Strategy:    config.Trading.Strategy,
			Winrate:     config.Trading.Winrate,
			Attenuation: config.Trading.Attenuation,
		},
	}

	worker := daemon.RunWorker(
		ctx,
		logger,
		&daemon.Config{
			Demo:            config.Trading.Demo,
			AccountCurrency: config.Trading.AccountCurrency,
			Duration:        config.Trading.Duration,
			Precision:       config.Trading.Precision,
		},
		ledger,
		selector,
		signalGenerator,
		&uuid.IDService{},
		eventService,
	)

	interruptChan := make(chan os.Signal, 1)
	signal.Notify(interruptChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-interruptChan:
		logger.Infof("received shutdown signal")
	case err := <-worker.ErrChan():
		logger.Errorf("trading worker terminated: [%v]", err)
	case <-ctx.Done():
	}

	cancelCtx()

	if err := ledger.Close(); err != nil {
		logger.Errorf("could not close ledger: [%v]", err)
	}
}

func connectStorage(
	ctx context.Context,
	logger openbo.Logger,
	config *Database,
) (openbo.AccountRepository, error) {
	switch config.Driver {
	case "postgres":
		postgresConfig := &postgres.Config{
			Address:      config.Address,
			User:         config.User,
			Password:     config.Password,
			Name:         config.Name,
			SSLMode:      config.SSLMode,
			MigrationDir: config.MigrationDir,
		}

		if err := postgres.RunMigration(logger, postgresConfig); err != nil {
			return nil, fmt.Errorf(
				"could not run postgres migration: [%v]",
				err,
			)
		}

		client, err := postgres.NewClient(ctx, postgresConfig)
		if err != nil {
			return nil, fmt.Errorf(
				"could not create postgres client: [%v]",
				err,
			)
		}

		return postgres.NewAccountRepository(client)
	default:
		client, err := sqlite.NewClient(ctx, &sqlite.Config{
			File: config.File,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"could not create sqlite client: [%v]",
				err,
			)
		}

		return sqlite.NewAccountRepository(client)
	}
}

// fixedSignalGenerator emits the configured trade request every tick.
// Strategy engines plug in behind openbo.SignalGenerator.
type fixedSignalGenerator struct {
	signal *openbo.Signal
}

func (fsg *fixedSignalGenerator) Poll() (*openbo.Signal, bool) {
	return fsg.signal, true
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/backstage/services/orders/config"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to ingest webhook batches from Azure Service Bus and optionally run the scheduled day-close`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	d, err := initDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Start the webhook batch processor
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.WebhookQueue).Msg("Starting Azure Service Bus processor")
		return d.bus.ProcessMessages(ctx, cfg.Azure.WebhookQueue, d.services.Webhook.HandleMessage)
	})

	// Start the scheduled day-close when enabled; the default trigger is the
	// operations API.
	if cfg.DayClose.Scheduled {
		g.Go(func() error {
			log.Info().Int("hour", cfg.DayClose.ScheduleHour).Msg("Starting scheduled day-close job")

			scheduler, err := gocron.NewScheduler()
			if err != nil {
				return err
			}

			_, err = scheduler.NewJob(
				gocron.DailyJob(1, gocron.NewAtTimes(
					gocron.NewAtTime(uint(cfg.DayClose.ScheduleHour), 0, 0),
				)),
				gocron.NewTask(func() {
					result, err := d.services.DayClose.ProcessDay(ctx)
					if err != nil {
						log.Error().Err(err).Msg("Scheduled day-close failed")
						return
					}
					log.Info().Int("orders_processed", result.OrdersProcessed).Msg("Scheduled day-close finished")
				}),
			)
			if err != nil {
				return err
			}

			scheduler.Start()

			<-ctx.Done()

			return scheduler.Shutdown()
		})
	}

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

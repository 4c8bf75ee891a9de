package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction_watch/internal/app"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	dryRun    bool
	sheetName string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:           "auction_watch",
	Short:         "Scrape tracked auction listings into the sheet and alert on closing auctions",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	},
}

func init() {
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "scrape and log results without writing to the sheet or sending mail")
	rootCmd.Flags().StringVar(&sheetName, "sheet", "", "sheet tab to read (overrides SHEET_NAME)")
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "env file to load instead of .env")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app.SetupEnvironment(envFile)
	log.Debug().Msg("Starting application")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runtime, err := app.InitializeClients(ctx, cfg, dryRun)
	if err != nil {
		return err
	}
	defer runtime.Close()

	log.Info().
		Str("sheet", cfg.Layout.Sheet).
		Bool("dry_run", dryRun).
		Msg("Starting auction watch run")

	_, runErr := runtime.Pipeline.Run(ctx)

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runtime.Metrics.Push(pushCtx, cfg.PushgatewayURL); err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics")
	}

	return runErr
}

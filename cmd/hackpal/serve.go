package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/hackpal/internal/config"
	httptransport "github.com/sandevgo/hackpal/internal/transport/http"
	"github.com/sandevgo/hackpal/internal/transport/telegram"
	"github.com/sandevgo/hackpal/pkg/log"
	"github.com/sandevgo/hackpal/pkg/srv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and chat transports",
	Long:  `Starts the HackPal HTTP API and, when enabled, the Telegram bot. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting hackpal")

		app := NewApp(ctx)
		services := app.Services

		if app.AppCfg.EnableHTTP {
			api := httptransport.NewAPI(app.Orchestrator, app.AppCfg.MaxUploadBytes)
			services = append(services, httptransport.NewServer(ctx, app.AppCfg, api))
		}

		if app.AppCfg.IsTelegramSelected() {
			bot, err := telegram.NewBot(ctx, config.NewTelegramConfig(ctx), app.Orchestrator, app.Commands, app.AppCfg.MaxUploadBytes)
			if err != nil {
				return err
			}
			services = append(services, bot)
		}

		// Start services
		srv.StartServices(ctx, services)

		// Wait for shutdown signal
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("hackpal has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/sandevgo/hackpal/internal/transport/cli"
	"github.com/sandevgo/hackpal/pkg/log"
	"github.com/sandevgo/hackpal/pkg/srv"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with HackPal in the terminal",
	Long:  `Opens an interactive session. Use /upload <path> [message] to attach a document and /help for session commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		app := NewApp(ctx)
		rl, err := cli.NewReadLine(app.Orchestrator, app.Commands, app.AppCfg)
		if err != nil {
			return err
		}
		services := append(app.Services, rl)

		srv.StartServices(ctx, app.Services)

		err = rl.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.FromCtx(ctx).Error().Err(err).Msg("chat stopped")
		}

		stop()
		srv.ShutdownServices(ctx, services)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

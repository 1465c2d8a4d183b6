package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rexolve-ai/rexolve/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runChat starts the interactive chat mode.
func runChat(cmd *cobra.Command) error {
	rt, err := openEnv()
	if err != nil {
		return err
	}
	defer rt.Close()

	mgr, backend, err := rt.newManager()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.log.Info("chat started",
		zap.String("backend", backend),
		zap.String("storage", rt.cfg.Storage.Driver),
		zap.Int("sessions", rt.repo.Len()),
		zap.Bool("tui", useTUI),
	)

	app := tui.NewApp(rt.repo, mgr, backend, rt.log)
	if useTUI {
		return tui.Run(ctx, app)
	}
	return tui.NewPlain(app, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
}

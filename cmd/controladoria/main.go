package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"controladoria/internal/config"
	"controladoria/internal/contracts"
	"controladoria/internal/logging"
	"controladoria/internal/storage"
)

type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func (a *app) openDB() (*storage.DB, error) {
	if err := a.cfg.Require("DB_PATH", a.cfg.DBPath); err != nil {
		return nil, err
	}
	return storage.Open(a.cfg.DBPath)
}

func (a *app) summarizer() *contracts.Summarizer {
	return contracts.NewSummarizer(a.cfg.Location(), contracts.WithLogger(a.logger))
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "controladoria",
		Short:         "Contract import, normalisation and reporting for the controladoria workbook",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.AddCommand(
		newImportCmd(a),
		newProcessCmd(a),
		newExportCmd(a),
		newRunCmd(a),
		newWatchCmd(a),
		newInspectCmd(a),
		newDateDisplayCmd(),
		newDateISOCmd(),
		newDateEarliestCmd(a),
		newMoneySumCmd(a),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	must(err)
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

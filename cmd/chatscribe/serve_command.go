package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chatscribe/internal/coordinator"
	"chatscribe/internal/httpapi"
	"chatscribe/internal/ledger"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: "Serve starts the batch submission API and keeps it running until the\n" +
			"process receives an interrupt. Batches submitted over the API run through\n" +
			"the same pipeline as the process command.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lock, err := acquireLock(cfg)
			if err != nil {
				return err
			}
			defer lock.Unlock()

			logger, err := newLogger(cfg, "stdout")
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}

			return ctx.withLedger(func(store *ledger.Store) error {
				coord := coordinator.New(cfg, buildStages(cfg, logger), logger, coordinator.WithLedger(store))
				server := httpapi.New(cfg, coord, store, logger)

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if err := server.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "API listening on %s\n", server.Addr())

				<-runCtx.Done()
				server.Stop()
				return nil
			})
		},
	}
}

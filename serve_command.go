package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"YellowbellPOS/app/database"

	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the POS backend with the live kitchen feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app := NewApp(cfg)
			if err := app.startup(runCtx); err != nil {
				app.shutdown()
				return err
			}
			defer app.shutdown()
			defer app.LoggerService.RecoverPanic()

			errCh := make(chan error, 1)
			go func() {
				errCh <- app.WSServer.Start()
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "%s serving on port %d (store %s)\n",
				cfg.Business.Name, cfg.Server.Port, app.Store.Path())

			select {
			case <-runCtx.Done():
				app.LoggerService.LogInfo("Shutdown requested")
				return nil
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server stopped: %w", err)
				}
				return nil
			}
		},
	}
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the default catalog and packaging rules into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := database.Open(cfg.Store.DBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SeedCatalog(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog ready in %s\n", store.Path())
			return nil
		},
	}
}

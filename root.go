package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"YellowbellPOS/app/config"
	"YellowbellPOS/app/database"
	"YellowbellPOS/app/services"

	"github.com/spf13/cobra"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.AppConfig
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// withBackend opens the store for one command and closes it afterwards
func (c *commandContext) withBackend(fn func(*services.Backend) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	store, err := database.Open(cfg.Store.DBPath())
	if errors.Is(err, database.ErrStoreLocked) {
		return fmt.Errorf("%w: stop the running server or use its REST API", err)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(services.NewBackend(store))
}

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "yellowbell",
		Short:         "Yellowbell Roast Co. point of sale",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (.json, .toml or .yaml)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newSeedCommand(ctx))
	rootCmd.AddCommand(newStockCommand(ctx))
	rootCmd.AddCommand(newKitchenCommand(ctx))
	rootCmd.AddCommand(newOrdersCommand(ctx))
	rootCmd.AddCommand(newPreparedCommand(ctx))
	rootCmd.AddCommand(newSlipCommand(ctx))

	return rootCmd
}

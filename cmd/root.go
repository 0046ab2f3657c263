package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-sim/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "retail-sim",
	Short: "Synthetic retail catalog and sales simulator",
	Long:  "Generates seeded product catalogs and sales funnels, applies treatment effects, and records potential outcomes for causal-inference experiments.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

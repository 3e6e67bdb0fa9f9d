package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"blogdiscover/internal/app"
	"blogdiscover/internal/config"
	"blogdiscover/internal/logging"
)

var (
	flagSeeds      string
	flagCheckpoint string
	flagStrategy   string
	flagTarget     int
	flagFresh      bool
)

var rootCmd = &cobra.Command{
	Use:   "blogdiscover",
	Short: "Recursively discover blogs by following links in their posts",
	Long: `Discover blogs recursively: start from a seed list, confirm each site
through a working RSS/Atom feed, then mine its posts for links to further
blogs until the target count is reached.

Progress is checkpointed to JSON and runs resume automatically from the
default checkpoint.

Examples:
  blogdiscover                              # Resume from checkpoint
  blogdiscover --fresh                      # Archive old results and start over
  blogdiscover --strategy breadth_first     # Seeds first, then level by level
  blogdiscover --strategy depth_first       # Follow new discoveries deeply
  blogdiscover --target 50 --seeds my.txt   # Small run from a custom seed list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if flagSeeds != "" {
			cfg.Paths.SeedFile = flagSeeds
		}
		if flagStrategy != "" {
			cfg.Crawl.QueueStrategy = flagStrategy
		}
		if flagTarget > 0 {
			cfg.Crawl.MaxBlogs = flagTarget
		}

		logger := logging.New(cfg.Logging.Level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application := app.New(cfg, app.Options{
			CheckpointPath: flagCheckpoint,
			Fresh:          flagFresh,
		}, logger)

		if err := application.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("discovery interrupted, state checkpointed")
				return nil
			}
			return err
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagSeeds, "seeds", "", "seed blog list file (overrides config)")
	rootCmd.Flags().StringVar(&flagCheckpoint, "checkpoint", "", "resume from a specific checkpoint file")
	rootCmd.Flags().StringVar(&flagStrategy, "strategy", "", "queue strategy: breadth_first, depth_first, random, or mixed")
	rootCmd.Flags().IntVar(&flagTarget, "target", 0, "stop after discovering this many blogs (overrides config)")
	rootCmd.Flags().BoolVar(&flagFresh, "fresh", false, "archive old results and start fresh")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

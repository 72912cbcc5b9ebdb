// Package main is docpipe's command-line entry point (SPEC_FULL §10.3): a
// cobra root command with worker/submit/status subcommands, wiring the
// Document Store, Queue, Event Bus, Model Gateway, Tools, Extractors,
// Processor, and Worker Pool the way cli/root.go composes its own
// dependencies, but with no module-level mutable service state.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docpipe/docpipe/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "docpipe",
	Short: "Document ingestion and enrichment pipeline",
	Long: `docpipe runs the distributed document-processing pipeline: a Redis-backed
work queue, a bounded worker pool, format-specific extractors, and a Model
Gateway for AI-assisted enrichment, with lifecycle events fanned out over
a publish/subscribe Event Bus.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("queue-backend", "", "queue backend: redis|memory")
	rootCmd.PersistentFlags().String("queue-redis-url", "", "redis connection URL for the queue")
	rootCmd.PersistentFlags().String("store-type", "", "document store backend: filesystem|redis")
	rootCmd.PersistentFlags().String("store-url", "", "document store location (file path or redis URL)")
	rootCmd.PersistentFlags().String("gateway-strategy", "", "provider selection strategy: cost|quality|latency|balanced|manual")
	rootCmd.PersistentFlags().String("providers-file", "", "YAML file listing Model Gateway providers")

	rootCmd.AddCommand(workerCmd, submitCmd, statusCmd)
}

// loadConfig composes the viper layer (flags > env > file > default) with
// the typed env-prefixed config package, per SPEC_FULL §10.3. Flags are
// bound directly onto the *viper.Viper instance config.NewViper returns
// rather than through viper's package-level singleton, so nothing here
// depends on global mutable state.
func loadConfig(cmd *cobra.Command) (config.AllConfig, *appFlags, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return config.AllConfig{}, nil, err
	}

	bind := func(key, flag string) { v.BindPFlag(key, cmd.Flags().Lookup(flag)) }
	bind("queue.backend", "queue-backend")
	bind("queue.redis_url", "queue-redis-url")
	bind("store.type", "store-type")
	bind("store.url", "store-url")
	bind("gateway.selection_strategy", "gateway-strategy")
	bind("providers_file", "providers-file")

	all, err := config.Load("DOCPIPE")
	if err != nil {
		return config.AllConfig{}, nil, err
	}
	if backend := v.GetString("queue.backend"); backend != "" {
		all.Queue.Backend = backend
	}
	if url := v.GetString("queue.redis_url"); url != "" {
		all.Queue.RedisURL = url
	}
	if typ := v.GetString("store.type"); typ != "" {
		all.Store.Type = typ
	}
	if url := v.GetString("store.url"); url != "" {
		all.Store.URL = url
	}
	if strat := v.GetString("gateway.selection_strategy"); strat != "" {
		all.Gateway.SelectionStrategy = strat
	}
	return all, &appFlags{providersFile: v.GetString("providers_file")}, nil
}

// appFlags carries the viper-resolved values wiring.go needs beyond
// config.AllConfig's typed fields.
type appFlags struct {
	providersFile string
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

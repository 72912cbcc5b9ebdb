package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docpipe/docpipe/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the worker pool, draining the queue until interrupted",
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().Int("max-concurrent-workers", 0, "override Queue.max_concurrent_workers")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, flags, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := buildApp(flags, cfg)
	if err != nil {
		return err
	}

	poolCfg := cfg.Queue.WorkerPoolConfig()
	if n, _ := cmd.Flags().GetInt("max-concurrent-workers"); n > 0 {
		poolCfg.MaxConcurrentWorkers = n
	}

	pool := worker.New(poolCfg, a.queue, a.store, a.processor, nil, a.log)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	pool.Start(ctx)

	a.log.Infof("worker pool started with %d workers", poolCfg.MaxConcurrentWorkers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Infof("shutting down worker pool")
	pool.Stop()
	return nil
}

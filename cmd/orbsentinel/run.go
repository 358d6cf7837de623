package main

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ORBSentinel/internal/metrics"
)

func runScheduler(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("ORBSentinel starting")
	a.scheduler.NotifyStartup(ctx)

	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.scheduler.Stop()

	srv := metrics.NewServer(cfg.HTTP.ListenAddr, a.metrics, func() interface{} { return a.scheduler.Status() })
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("http server")
		}
	}()

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, a.scheduler.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if runNow {
		log.Info().Msg("run-now enabled, executing a cycle")
		go func() {
			if _, err := a.scheduler.RunCycle(ctx); err != nil {
				log.Error().Err(err).Msg("initial cycle failed")
			}
		}()
	}

	log.Info().Msg("ORBSentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !dryRun {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a, err := newApp(cfg, dryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, cycleErr := a.scheduler.RunCycle(cmd.Context())
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return errors.Join(cycleErr, err)
	}
	return cycleErr
}

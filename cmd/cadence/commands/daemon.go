package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/daemon"
	"github.com/cadencehq/cadence/logger"
	"github.com/cadencehq/cadence/store"
)

// DaemonCmd runs the projector daemon in the foreground
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the projector daemon",
	Long: `Run the projector daemon in foreground mode.

The daemon evaluates every enabled job on each tick and records the next
decided runs. It does not execute runs; an execution layer consumes the
recorded runs and advances their state.

Runs until interrupted (Ctrl+C) with graceful shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		daemonCfg := daemon.DefaultConfig()
		daemonCfg.Interval = cfg.TickInterval()
		daemonCfg.DefaultTimezone = cfg.Schedule.DefaultTimezone

		d := daemon.NewWithContext(ctx, st, daemonCfg, logger.Logger)
		d.Start()

		fmt.Printf("cadence daemon started\n")
		fmt.Printf("  database:      %s\n", cfg.Database.Path)
		fmt.Printf("  tick interval: %v\n", daemonCfg.Interval)
		fmt.Printf("\nPress Ctrl+C for graceful shutdown\n\n")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		fmt.Printf("\nShutting down...\n")
		d.Stop()
		return nil
	},
}

package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

// rootCmd runs the scheduler when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "orbsentinel",
	Short: "Opening range breakout signal bot",
	Long: `ORBSentinel polls 5-minute bars during the US session, evaluates the
opening range breakout setup with a volatility, risk appetite and momentum
regime filter, and pushes at most one trade signal per day.`,
	SilenceUsage: true,
	RunE:         runScheduler,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler, HTTP endpoint and Telegram command polling",
	RunE:  runScheduler,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Evaluate the current session once and print the outcome",
	Long: `Fetch data, evaluate today's session and print the cycle summary as JSON.
Notifications are sent unless --dry-run is given. Exits non-zero when the
cycle fails.`,
	RunE: runOnce,
}

var (
	runNow bool
	dryRun bool
)

func init() {
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	// rootCmd runs the scheduler too, so it takes the same flag.
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().BoolVar(&runNow, "run-now", os.Getenv("RUN_ON_START") == "true", "Run one cycle immediately, ignoring the window")
	}
	onceCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not send notifications")

	rootCmd.AddCommand(runCmd, onceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

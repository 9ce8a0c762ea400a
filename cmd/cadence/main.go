package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence/cmd/cadence/commands"
	"github.com/cadencehq/cadence/logger"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Cadence - temporal decision core for job scheduling",
	Long: `Cadence decides when jobs should next run from human-readable
schedule expressions and run history. It never executes work itself.

Available commands:
  validate - Check a schedule expression against the grammar
  next     - Print the upcoming run instants for an expression
  jobs     - Manage job definitions
  daemon   - Run the projector daemon
  version  - Show build information

Examples:
  cadence validate "every monday,wednesday at 09:00"
  cadence next "1st,15th of month" --count 4
  cadence jobs add --name backup --schedule "every day 03:30"
  cadence daemon`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON log output")

	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.NextCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.DaemonCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence/internal/version"
)

// VersionCmd shows build information
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.Get().String())
		return nil
	},
}

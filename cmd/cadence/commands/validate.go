package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence/schedule"
)

// ValidateCmd checks a schedule expression against the grammar
var ValidateCmd = &cobra.Command{
	Use:   "validate <expression>",
	Short: "Check a schedule expression against the grammar",
	Long: `Parse a schedule expression and report the resolved specification.

Accepted forms:
  constant                          rerun immediately upon completion
  interval:<duration>               rerun a fixed duration after now (e.g. interval:5m)
  [every|ordinals] [days] [of months] [at HH:MM]
                                    calendar expression, e.g.
                                    "every monday,wednesday at 09:00"
                                    "1st,15th of month 03:30"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sched, err := schedule.NewFromExpression(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ok: %s\n", sched.String())

		if groc, ok := sched.(*schedule.GrocScheduler); ok {
			spec := groc.Spec()
			printSet := func(label string, set []int) {
				if set == nil {
					fmt.Printf("  %-10s (unrestricted)\n", label)
				} else {
					fmt.Printf("  %-10s %v\n", label, set)
				}
			}
			printSet("weekdays", spec.Weekdays)
			printSet("ordinals", spec.Ordinals)
			printSet("monthdays", spec.Monthdays)
			printSet("months", spec.Months)
			fmt.Printf("  %-10s %s\n", "time", spec.TimeOfDay)
			tz := spec.Timezone
			if tz == "" {
				tz = "UTC"
			}
			fmt.Printf("  %-10s %s\n", "timezone", tz)
		}
		return nil
	},
}

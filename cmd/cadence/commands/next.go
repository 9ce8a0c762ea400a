package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence/errors"
	"github.com/cadencehq/cadence/schedule"
	"github.com/cadencehq/cadence/timespec"
)

var (
	nextFrom  string
	nextCount int
)

// NextCmd prints the upcoming run instants for a schedule expression
var NextCmd = &cobra.Command{
	Use:   "next <expression>",
	Short: "Print the upcoming run instants for an expression",
	Long: `Compute the next run instants a schedule expression selects.

Examples:
  cadence next "every day 09:00"
  cadence next "1st,15th of month" --count 4
  cadence next "interval:30m" --from 2024-01-01T00:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from := time.Now().UTC()
		if nextFrom != "" {
			parsed, err := time.Parse(time.RFC3339, nextFrom)
			if err != nil {
				return errors.Wrapf(err, "malformed --from instant %q", nextFrom)
			}
			from = parsed
		}

		sched, err := schedule.NewFromExpression(args[0])
		if err != nil {
			return err
		}

		switch s := sched.(type) {
		case *schedule.ConstantScheduler:
			fmt.Println("constant: reruns immediately upon completion of the prior run")
			return nil

		case *schedule.IntervalScheduler:
			for i := 1; i <= nextCount; i++ {
				fmt.Println(from.Add(time.Duration(i) * s.Interval).Format(time.RFC3339))
			}
			return nil

		case *schedule.GrocScheduler:
			spec := s.Spec()
			matcher, err := timespec.New(timespec.Config{
				Ordinals:  spec.Ordinals,
				Weekdays:  spec.Weekdays,
				Months:    spec.Months,
				Monthdays: spec.Monthdays,
				Hour:      spec.TimeOfDay.Hour,
				Minute:    spec.TimeOfDay.Minute,
				Second:    spec.TimeOfDay.Second,
				Timezone:  spec.Timezone,
			})
			if err != nil {
				return err
			}
			ref := from
			for i := 0; i < nextCount; i++ {
				match, err := matcher.NextMatch(ref)
				if err != nil {
					return err
				}
				fmt.Println(match.Format(time.RFC3339))
				ref = match.Add(time.Second)
			}
			return nil

		default:
			return errors.AssertionFailedf("unhandled scheduler type %T", sched)
		}
	},
}

func init() {
	NextCmd.Flags().StringVar(&nextFrom, "from", "", "reference instant (RFC3339, default now)")
	NextCmd.Flags().IntVar(&nextCount, "count", 3, "number of instants to print")
}

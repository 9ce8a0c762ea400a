package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/store"
)

// JobsCmd manages job definitions
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage job definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var (
	jobName     string
	jobSchedule string
	jobActions  []string
	jobDisabled bool
)

var jobsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a job definition",
	Long: `Add a job definition. The schedule expression is validated before
the job is saved; a job with an unparsable schedule is rejected here rather
than admitted and never run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		job := &store.Job{
			Name:     jobName,
			Schedule: jobSchedule,
			Actions:  jobActions,
			Enabled:  !jobDisabled,
		}
		if err := st.CreateJob(job); err != nil {
			return err
		}
		fmt.Printf("added job %s (%s)\n", job.Name, job.ID)
		return nil
	},
}

var jobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List job definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		jobs, err := st.ListJobs(false)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSCHEDULE\tENABLED\tQUEUEING\tID")
		for _, job := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%s\n",
				job.Name, job.Schedule, job.Enabled, job.Queueing, job.ID)
		}
		return w.Flush()
	},
}

var jobsRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a job definition and its runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		job, err := st.GetJobByName(args[0])
		if err != nil {
			return err
		}
		if err := st.DeleteJob(job.ID); err != nil {
			return err
		}
		fmt.Printf("removed job %s\n", job.Name)
		return nil
	},
}

func newEnableCmd(enable bool) *cobra.Command {
	use, verb := "enable <name>", "enabled"
	if !enable {
		use, verb = "disable <name>", "disabled"
	}
	return &cobra.Command{
		Use:  use,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			job, err := st.GetJobByName(args[0])
			if err != nil {
				return err
			}
			if err := st.SetJobEnabled(job.ID, enable); err != nil {
				return err
			}
			fmt.Printf("job %s %s\n", job.Name, verb)
			return nil
		},
	}
}

func openStore() (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Database.Path)
}

func init() {
	jobsAddCmd.Flags().StringVar(&jobName, "name", "", "job name (required)")
	jobsAddCmd.Flags().StringVar(&jobSchedule, "schedule", "", "schedule expression (required)")
	jobsAddCmd.Flags().StringSliceVar(&jobActions, "action", nil, "job action, repeatable")
	jobsAddCmd.Flags().BoolVar(&jobDisabled, "disabled", false, "create the job disabled")
	_ = jobsAddCmd.MarkFlagRequired("name")
	_ = jobsAddCmd.MarkFlagRequired("schedule")

	enableCmd := newEnableCmd(true)
	enableCmd.Short = "Enable a job"
	disableCmd := newEnableCmd(false)
	disableCmd.Short = "Disable a job"

	JobsCmd.AddCommand(jobsAddCmd)
	JobsCmd.AddCommand(jobsLsCmd)
	JobsCmd.AddCommand(jobsRmCmd)
	JobsCmd.AddCommand(enableCmd)
	JobsCmd.AddCommand(disableCmd)
}

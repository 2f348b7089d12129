package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/langquest/langquest-core/internal/bootstrap"
	"github.com/langquest/langquest-core/internal/infrastructure/scheduler"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and run the worker's background jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the jobs the worker schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		sched, closeAll, err := buildScheduler(cmd)
		if err != nil {
			return err
		}
		defer closeAll()

		return printJobs(cmd.OutOrStdout(), sched.ListJobs())
	},
}

var jobsRunCmd = &cobra.Command{
	Use:     "run <job>",
	Short:   "Run one job now, outside its schedule",
	Example: "  langquestctl jobs run prune_payment_events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sched, closeAll, err := buildScheduler(cmd)
		if err != nil {
			return err
		}
		defer closeAll()

		result, err := sched.RunNow(cmd.Context(), args[0])
		if result != nil {
			printResult(cmd.OutOrStdout(), result)
		}
		return err
	},
}

func init() {
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsRunCmd)
}

// buildScheduler wires the same jobs as the worker without starting them.
func buildScheduler(cmd *cobra.Command) (*scheduler.Scheduler, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log := bootstrap.Logger(cfg).Named("ctl")

	conn, err := bootstrap.Postgres(cmd.Context(), cfg.Database, false, log)
	if err != nil {
		return nil, nil, err
	}
	cache := bootstrap.Redis(cfg.Redis, log)
	closeAll := func() {
		if cache != nil {
			_ = cache.Close()
		}
		conn.Close()
	}

	sched, err := bootstrap.Scheduler(conn, bootstrap.NewCaches(cache, cfg.Redis, log), cfg, log)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return sched, closeAll, nil
}

func printJobs(out io.Writer, jobs []scheduler.JobInfo) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEVERY\tDESCRIPTION")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", j.Name, j.Every, j.Description)
	}
	return w.Flush()
}

func printResult(out io.Writer, r *scheduler.JobResult) {
	status := "ok"
	if !r.Success {
		status = "failed"
	}
	fmt.Fprintf(out, "%s %s in %s\n", r.JobName, status, r.Duration.Round(time.Millisecond))
}

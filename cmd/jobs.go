package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retail-sim/internal/artifact"
	"github.com/sells-group/retail-sim/internal/model"
	"github.com/sells-group/retail-sim/internal/monitoring"
	"github.com/sells-group/retail-sim/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect simulation jobs",
	Long:  "Commands for listing, viewing, and summarizing simulation jobs.",
}

// -- jobs list --

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List simulation jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("jobs"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		if status != "" && !model.JobStatus(status).Valid() {
			return eris.Errorf("jobs list: unknown status %q", status)
		}

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			Status: model.JobStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "jobs list")
		}

		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		formatJobsList(cmd.OutOrStdout(), jobs)
		return nil
	},
}

// -- jobs show --

// jobDetail is the JSON shape printed by jobs show.
type jobDetail struct {
	*model.Job
	Artifacts []string `json:"artifacts"`
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show full details of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("jobs"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show")
		}

		detail := jobDetail{Job: job, Artifacts: []string{}}
		if cfg.Storage.Path != "" {
			dir, err := artifact.Open(cfg.Storage.Path, job.ID)
			if err != nil {
				return err
			}
			if detail.Artifacts, err = dir.Names(); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	},
}

// -- jobs stats --

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job counts by status and raise failure-rate alerts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("jobs"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st).Collect(ctx)
		if err != nil {
			return eris.Wrap(err, "jobs stats")
		}

		metrics := monitoring.NewMetrics()
		metrics.SetJobCounts(snap)
		writeTextfile(metrics)

		alerter := monitoring.NewAlerter(cfg.Metrics)
		alerts := alerter.Evaluate(snap)
		alerter.SendAlerts(ctx, alerts)

		formatJobStats(cmd.OutOrStdout(), snap, alerts)
		return nil
	},
}

func init() {
	jobsListCmd.Flags().String("status", "", "filter by job status (created, simulated, enriched, failed)")
	jobsListCmd.Flags().Int("limit", 50, "max number of jobs to display")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}

// formatJobsList writes a tabular list of jobs to w.
func formatJobsList(out io.Writer, jobs []model.Job) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tFUNCTION\tCREATED\tAGE\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t--------\t-------\t---\t-----")

	for _, j := range jobs {
		age := j.UpdatedAt.Sub(j.CreatedAt).Round(time.Second).String()

		errMsg := j.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(j.ID),
			j.Status,
			treatmentFunction(j),
			j.CreatedAt.Format("2006-01-02 15:04"),
			age,
			errMsg,
		)
	}
	_ = w.Flush()
}

// treatmentFunction returns the last applied treatment's function name.
func treatmentFunction(j model.Job) string {
	t, ok := j.Metadata["treatment"].(map[string]any)
	if !ok {
		return ""
	}
	fn, _ := t["function"].(string)
	return fn
}

// formatJobStats writes aggregate stats and any alerts to w.
func formatJobStats(out io.Writer, s *monitoring.JobSnapshot, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total jobs:\t%d\n", s.Total)
	for _, status := range model.JobStatuses {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", status, s.Counts[status])
	}
	if s.Finished() > 0 {
		_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", s.FailRate*100)
	}
	for _, a := range alerts {
		_, _ = fmt.Fprintf(w, "ALERT [%s]:\t%s\n", a.Severity, a.Message)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

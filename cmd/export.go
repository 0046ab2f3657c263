package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-sim/internal/artifact"
	"github.com/sells-group/retail-sim/internal/store"
	"github.com/sells-group/retail-sim/internal/table"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a job's artifacts to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("jobs"); err != nil {
			return err
		}

		jobID, _ := cmd.Flags().GetString("job")
		out, _ := cmd.Flags().GetString("out")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := runExport(ctx, st, cfg.Storage.Path, jobID, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d sheets to %s\n", n, out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("job", "", "job ID to export (required)")
	exportCmd.Flags().String("out", "", "output .xlsx path (required)")
	_ = exportCmd.MarkFlagRequired("job")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

// runExport writes one worksheet per stored artifact and returns the sheet count.
func runExport(ctx context.Context, st store.Store, storagePath, jobID, out string) (int, error) {
	job, err := st.GetJob(ctx, jobID)
	if err != nil {
		return 0, err
	}

	dir, err := artifact.Open(storagePath, job.ID)
	if err != nil {
		return 0, err
	}
	names, err := dir.Names()
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, eris.Errorf("export: job %s has no artifacts", job.ID)
	}

	sheets := make([]table.Sheet, 0, len(names))
	for _, name := range names {
		t, err := dir.LoadTable(ctx, name)
		if err != nil {
			return 0, err
		}
		sheets = append(sheets, table.Sheet{Name: name, Table: t})
	}
	if err := table.WriteXLSX(out, sheets); err != nil {
		return 0, eris.Wrapf(err, "export: job %s", job.ID)
	}

	zap.L().Info("export: workbook written",
		zap.String("job_id", job.ID),
		zap.String("path", out),
		zap.Int("sheets", len(sheets)),
	)
	return len(sheets), nil
}

package main

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-sim/internal/artifact"
	"github.com/sells-group/retail-sim/internal/config"
	"github.com/sells-group/retail-sim/internal/details"
	"github.com/sells-group/retail-sim/internal/enrich"
	"github.com/sells-group/retail-sim/internal/model"
	"github.com/sells-group/retail-sim/internal/monitoring"
	"github.com/sells-group/retail-sim/internal/store"
	"github.com/sells-group/retail-sim/internal/table"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Apply a treatment to a simulated job",
	Long:  "Applies the treatment file's IMPACT function to the job's sales, writing the enriched table and, with --outcomes, the Y0/Y1 potential outcomes.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		jobID, _ := cmd.Flags().GetString("job")
		treatmentPath, _ := cmd.Flags().GetString("treatment")
		outcomes, _ := cmd.Flags().GetBool("outcomes")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		metrics := monitoring.NewMetrics()
		enricher := enrich.NewEnricher(nil, enrich.WithBackends(backendFactory(cfg.Details)))

		res, err := runEnrich(ctx, st, enricher, metrics, enrichJob{
			StoragePath: cfg.Storage.Path,
			JobID:       jobID,
			Treatment:   treatmentPath,
			Outcomes:    outcomes,
		})
		writeTextfile(metrics)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s applied to %d rows, %d products treated\n",
			jobID, res.Function, res.Rows, res.Treated)
		return nil
	},
}

func init() {
	enrichCmd.Flags().String("job", "", "job ID to enrich (required)")
	enrichCmd.Flags().String("treatment", "", "treatment YAML or JSON file with an IMPACT block (required)")
	enrichCmd.Flags().Bool("outcomes", false, "also write the Y0/Y1 potential-outcomes table")
	_ = enrichCmd.MarkFlagRequired("job")
	_ = enrichCmd.MarkFlagRequired("treatment")
	rootCmd.AddCommand(enrichCmd)
}

// backendFactory wraps every resolved detail backend with retry and pacing
// from the details config.
func backendFactory(dc config.DetailsConfig) details.Factory {
	base := details.NewFactory(dc.Seed)
	rc := details.RetryConfig{
		MaxAttempts:    dc.RetryAttempts,
		InitialBackoff: time.Duration(dc.RetryBackoffMS) * time.Millisecond,
		JitterFraction: 0.2,
		CallTimeout:    time.Duration(dc.TimeoutSecs) * time.Second,
		RatePerSecond:  dc.RatePerSecond,
	}
	return func(key string) (details.Backend, error) {
		b, err := base(key)
		if err != nil {
			return nil, err
		}
		return details.WithRetry(b, rc), nil
	}
}

type enrichJob struct {
	StoragePath string
	JobID       string
	Treatment   string
	Outcomes    bool
}

// runEnrich applies a treatment file to a job's sales artifact and stores
// the results next to it. Any failure after the job is found marks it failed.
func runEnrich(ctx context.Context, st store.Store, enricher *enrich.Enricher, metrics *monitoring.Metrics, req enrichJob) (*enrich.Result, error) {
	job, err := st.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("job_id", job.ID))

	fail := func(err error) error {
		if failErr := st.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			log.Error("enrich: record job failure", zap.Error(failErr))
		}
		return err
	}

	treatment, err := enrich.LoadTreatmentFile(req.Treatment)
	if err != nil {
		return nil, fail(err)
	}

	dir, err := artifact.Open(req.StoragePath, job.ID)
	if err != nil {
		return nil, fail(err)
	}
	sales, err := dir.LoadTable(ctx, artifact.Sales)
	if err != nil {
		return nil, fail(err)
	}
	if sales == nil {
		return nil, fail(eris.Wrapf(enrich.ErrInput, "job %s has no sales artifact; run simulate first", job.ID))
	}
	products, err := dir.LoadTable(ctx, artifact.Products)
	if err != nil {
		return nil, fail(err)
	}

	start := time.Now()
	res, err := enricher.Enrich(ctx, enrich.Request{
		Treatment:    treatment,
		Observations: sales,
		Products:     products,
		Outcomes:     req.Outcomes,
	})
	if res != nil {
		metrics.ObserveEnrich(treatment.Function, res.Rows, res.Treated, time.Since(start), nil)
	} else {
		metrics.ObserveEnrich(treatment.Function, 0, 0, time.Since(start), err)
	}
	if err != nil {
		return nil, fail(err)
	}

	if err := dir.ReplaceTables(ctx, artifact.EnrichOutputs, map[string]*table.Table{
		artifact.Enriched:               res.Enriched,
		artifact.PotentialOutcomes:      res.Outcomes,
		artifact.ProductDetailsOriginal: res.ProductsOriginal,
		artifact.ProductDetailsEnriched: res.ProductsEnriched,
	}); err != nil {
		return nil, fail(err)
	}

	meta := maps.Clone(job.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["treatment"] = map[string]any{
		"function": treatment.Function,
		"params":   treatment.Params,
	}
	meta["enrichment"] = map[string]any{
		"rows":     res.Rows,
		"treated":  res.Treated,
		"outcomes": req.Outcomes,
	}
	if err := st.SaveMetadata(ctx, job.ID, meta); err != nil {
		return nil, err
	}
	if err := st.UpdateJobStatus(ctx, job.ID, model.JobStatusEnriched); err != nil {
		return nil, err
	}
	return res, nil
}

// writeTextfile exports metrics when metrics.textfile is configured.
func writeTextfile(m *monitoring.Metrics) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		zap.L().Warn("metrics: textfile export failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-sim/internal/artifact"
	"github.com/sells-group/retail-sim/internal/config"
	"github.com/sells-group/retail-sim/internal/details"
	"github.com/sells-group/retail-sim/internal/model"
	"github.com/sells-group/retail-sim/internal/simulate"
	"github.com/sells-group/retail-sim/internal/store"
	"github.com/sells-group/retail-sim/internal/table"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate a catalog and sales metrics in a new job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applySimulateFlags(cmd, &cfg.Simulate)

		if err := cfg.Validate("simulate"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		job, err := runSimulate(ctx, st, cfg.Storage.Path, cfg.Simulate, cfg.Details.Seed)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), job.ID)
		return nil
	},
}

func init() {
	f := simulateCmd.Flags()
	f.Int("products", 0, "number of products (overrides simulate.num_products)")
	f.Int64("seed", 0, "random seed (overrides simulate.seed)")
	f.String("start", "", "first date YYYY-MM-DD (overrides simulate.date_start)")
	f.String("end", "", "last date YYYY-MM-DD (overrides simulate.date_end)")
	f.String("granularity", "", "daily or weekly (overrides simulate.granularity)")
	rootCmd.AddCommand(simulateCmd)
}

// applySimulateFlags copies explicitly set flags over the loaded config.
func applySimulateFlags(cmd *cobra.Command, sc *config.SimulateConfig) {
	f := cmd.Flags()
	if f.Changed("products") {
		sc.NumProducts, _ = f.GetInt("products")
	}
	if f.Changed("seed") {
		sc.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("start") {
		sc.DateStart, _ = f.GetString("start")
	}
	if f.Changed("end") {
		sc.DateEnd, _ = f.GetString("end")
	}
	if f.Changed("granularity") {
		sc.Granularity, _ = f.GetString("granularity")
	}
}

// runSimulate creates a job, generates its catalog and metrics, and stores
// them as the products and sales artifacts. A generation failure marks the
// job failed.
func runSimulate(ctx context.Context, st store.Store, storagePath string, sc config.SimulateConfig, detailSeed int64) (*model.Job, error) {
	jobCfg := map[string]any{}
	if err := mapstructure.Decode(sc, &jobCfg); err != nil {
		return nil, eris.Wrap(err, "simulate: encode job config")
	}

	job, err := st.CreateJob(ctx, jobCfg)
	if err != nil {
		return nil, eris.Wrap(err, "simulate: create job")
	}
	log := zap.L().With(zap.String("job_id", job.ID))

	products, sales, err := generate(ctx, sc, detailSeed)
	if err == nil {
		err = saveArtifacts(ctx, storagePath, job.ID, map[string]*table.Table{
			artifact.Products: products,
			artifact.Sales:    sales,
		})
	}
	if err != nil {
		if failErr := st.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			log.Error("simulate: record job failure", zap.Error(failErr))
		}
		return nil, err
	}

	meta := map[string]any{
		"products": products.Len(),
		"rows":     sales.Len(),
	}
	if err := st.SaveMetadata(ctx, job.ID, meta); err != nil {
		return nil, err
	}
	if err := st.UpdateJobStatus(ctx, job.ID, model.JobStatusSimulated); err != nil {
		return nil, err
	}
	job.Status = model.JobStatusSimulated
	job.Metadata = meta

	log.Info("simulate: job complete",
		zap.Int("products", products.Len()),
		zap.Int("rows", sales.Len()),
		zap.String("granularity", sc.Granularity),
	)
	return job, nil
}

func generate(ctx context.Context, sc config.SimulateConfig, detailSeed int64) (products, sales *table.Table, err error) {
	catalog, err := simulate.Products(simulate.ProductParams{
		NumProducts: sc.NumProducts,
		Seed:        sc.Seed,
	})
	if err != nil {
		return nil, nil, err
	}

	products, err = simulate.Describe(ctx, catalog, details.NewMockBackend(detailSeed))
	if err != nil {
		return nil, nil, err
	}

	sales, err = simulate.Metrics(ctx, catalog, simulate.MetricsParams{
		DateStart:             sc.DateStart,
		DateEnd:               sc.DateEnd,
		SaleProb:              sc.SaleProb,
		Seed:                  sc.Seed,
		Granularity:           sc.Granularity,
		ImpressionToVisitRate: sc.ImpressionToVisitRate,
		VisitToCartRate:       sc.VisitToCartRate,
		CartToOrderRate:       sc.CartToOrderRate,
		MinImpressions:        sc.MinImpressions,
		MaxImpressions:        sc.MaxImpressions,
	})
	if err != nil {
		return nil, nil, err
	}
	return products, sales, nil
}

func saveArtifacts(ctx context.Context, storagePath, jobID string, tables map[string]*table.Table) error {
	dir, err := artifact.Open(storagePath, jobID)
	if err != nil {
		return err
	}
	return dir.SaveTables(ctx, tables)
}

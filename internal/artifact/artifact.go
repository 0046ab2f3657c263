// Package artifact stores the tables produced by a job as CSV files in the
// job's own directory under the configured storage path.
package artifact

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/retail-sim/internal/table"
)

// Artifact names written by the simulate and enrich commands.
const (
	Products               = "products"
	Sales                  = "sales"
	Enriched               = "enriched"
	PotentialOutcomes      = "potential_outcomes"
	ProductDetailsOriginal = "product_details_original"
	ProductDetailsEnriched = "product_details_enriched"
)

const (
	ext             = ".csv"
	saveConcurrency = 4
)

// Dir is the artifact directory of a single job.
type Dir struct {
	path string
}

// Open returns the directory for jobID under base, creating it if needed.
func Open(base, jobID string) (*Dir, error) {
	if err := checkName(jobID); err != nil {
		return nil, eris.Wrap(err, "artifact: job id")
	}
	path := filepath.Join(base, jobID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, eris.Wrapf(err, "artifact: create %s", path)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory on disk.
func (d *Dir) Path() string { return d.path }

// EnrichOutputs are the artifacts a single enrich run owns. A later run
// replaces the whole group.
var EnrichOutputs = []string{Enriched, PotentialOutcomes, ProductDetailsOriginal, ProductDetailsEnriched}

// SaveTable writes t as name.csv, replacing any previous artifact of that name.
func (d *Dir) SaveTable(ctx context.Context, name string, t *table.Table) error {
	if t == nil {
		return eris.Errorf("artifact: nil table for %s", name)
	}
	return d.ReplaceTables(ctx, nil, map[string]*table.Table{name: t})
}

// SaveTables writes every table as a unit. Nil tables are skipped.
func (d *Dir) SaveTables(ctx context.Context, tables map[string]*table.Table) error {
	return d.ReplaceTables(ctx, nil, tables)
}

// ReplaceTables writes the non-nil tables into a staging directory
// concurrently and moves them into place only after every write succeeded.
// Artifacts named in group but absent from tables are removed, so the group
// holds exactly the tables of this call. On a write error nothing in the job
// directory changes.
func (d *Dir) ReplaceTables(ctx context.Context, group []string, tables map[string]*table.Table) error {
	for name := range tables {
		if err := checkName(name); err != nil {
			return err
		}
	}
	for _, name := range group {
		if err := checkName(name); err != nil {
			return err
		}
	}

	stage, err := os.MkdirTemp(d.path, ".stage-*")
	if err != nil {
		return eris.Wrapf(err, "artifact: create staging dir in %s", d.path)
	}
	defer os.RemoveAll(stage) //nolint:errcheck

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(saveConcurrency)
	for name, t := range tables {
		if t == nil {
			continue
		}
		g.Go(func() error {
			return writeTable(gctx, filepath.Join(stage, name+ext), name, t)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, name := range group {
		if tables[name] != nil {
			continue
		}
		if err := os.Remove(d.file(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return eris.Wrapf(err, "artifact: remove stale %s", name)
		}
	}
	for name, t := range tables {
		if t == nil {
			continue
		}
		if err := os.Rename(filepath.Join(stage, name+ext), d.file(name)); err != nil {
			return eris.Wrapf(err, "artifact: rename %s", name)
		}
		zap.L().Debug("artifact: saved table",
			zap.String("dir", d.path),
			zap.String("name", name),
			zap.Int("rows", t.Len()),
		)
	}
	return nil
}

func writeTable(ctx context.Context, path, name string, t *table.Table) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrapf(err, "artifact: save %s", name)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "artifact: create %s", name)
	}
	if err := table.WriteCSV(f, t); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "artifact: write %s", name)
	}
	return eris.Wrapf(f.Close(), "artifact: close %s", name)
}

// LoadTable reads name.csv. It returns nil, nil when the artifact does not exist.
func (d *Dir) LoadTable(ctx context.Context, name string) (*table.Table, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(d.file(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: open %s", name)
	}
	defer f.Close() //nolint:errcheck

	t, err := table.ReadCSV(ctx, f)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read %s", name)
	}
	return t, nil
}

// Names lists the stored artifacts in lexical order.
func (d *Dir) Names() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: list %s", d.path)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	slices.Sort(names)
	return names, nil
}

func (d *Dir) file(name string) string {
	return filepath.Join(d.path, name+ext)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return eris.Errorf("artifact: invalid name %q", name)
	}
	return nil
}

package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retail-sim/internal/table"
)

func sampleTable(ids ...string) *table.Table {
	t := table.New("product_identifier", "ordered_units")
	for i, id := range ids {
		t.Append(table.Row{"product_identifier": id, "ordered_units": int64(i + 1)})
	}
	return t
}

func TestOpen_CreatesDirectory(t *testing.T) {
	base := t.TempDir()

	d, err := Open(base, "job-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "job-1"), d.Path())

	info, err := os.Stat(d.Path())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpen_InvalidJobID(t *testing.T) {
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		_, err := Open(t.TempDir(), id)
		assert.Error(t, err, id)
	}
}

func TestSaveAndLoadTable(t *testing.T) {
	d, err := Open(t.TempDir(), "job-1")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.SaveTable(ctx, Sales, sampleTable("A", "B")))

	got, err := d.LoadTable(ctx, Sales)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"product_identifier", "ordered_units"}, got.Columns)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "B", got.Rows[1]["product_identifier"])
	assert.Equal(t, int64(2), got.Rows[1]["ordered_units"])
}

func TestSaveTable_Overwrites(t *testing.T) {
	d, err := Open(t.TempDir(), "job-1")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.SaveTable(ctx, Sales, sampleTable("A", "B", "C")))
	require.NoError(t, d.SaveTable(ctx, Sales, sampleTable("Z")))

	got, err := d.LoadTable(ctx, Sales)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "Z", got.Rows[0]["product_identifier"])

	names, err := d.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{Sales}, names)
}

func TestSaveTable_Errors(t *testing.T) {
	d, err := Open(t.TempDir(), "job-1")
	require.NoError(t, err)

	assert.Error(t, d.SaveTable(context.Background(), "../escape", sampleTable("A")))
	assert.Error(t, d.SaveTable(context.Background(), Sales, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, d.SaveTable(ctx, Sales, sampleTable("A")))
}

func TestLoadTable_Missing(t *testing.T) {
	d, err := Open(t.TempDir(), "job-1")
	require.NoError(t, err)

	got, err := d.LoadTable(context.Background(), PotentialOutcomes)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveTables(t *testing.T) {
	d, err := Open(t.TempDir(), "job-1")
	require.NoError(t, err)
	ctx := context.Background()

	err = d.SaveTables(ctx, map[string]*table.Table{
		Enriched:               sampleTable("A"),
		PotentialOutcomes:      sampleTable("A", "B"),
		ProductDetailsOriginal: sampleTable("A", "B", "C"),
		ProductDetailsEnriched: nil,
	})
	require.NoError(t, err)

	names, err := d.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{Enriched, PotentialOutcomes, ProductDetailsOriginal}, names)

	got, err := d.LoadTable(ctx, ProductDetailsOriginal)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
}

func TestReplaceTables_RemovesStaleGroupMembers(t *testing.T) {
	d, err := Open(t.TempDir(), "job-1")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.SaveTable(ctx, Sales, sampleTable("A", "B")))
	require.NoError(t, d.ReplaceTables(ctx, EnrichOutputs, map[string]*table.Table{
		Enriched:               sampleTable("A", "B"),
		PotentialOutcomes:      sampleTable("A", "B"),
		ProductDetailsOriginal: sampleTable("A"),
		ProductDetailsEnriched: sampleTable("A"),
	}))

	require.NoError(t, d.ReplaceTables(ctx, EnrichOutputs, map[string]*table.Table{
		Enriched:          sampleTable("B"),
		PotentialOutcomes: nil,
	}))

	names, err := d.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{Enriched, Sales}, names)

	got, err := d.LoadTable(ctx, Enriched)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "B", got.Rows[0]["product_identifier"])
}

func TestReplaceTables_FailedWriteLeavesDirectoryUntouched(t *testing.T) {
	d, err := Open(t.TempDir(), "job-1")
	require.NoError(t, err)

	require.NoError(t, d.ReplaceTables(context.Background(), EnrichOutputs, map[string]*table.Table{
		Enriched:          sampleTable("A", "B"),
		PotentialOutcomes: sampleTable("A", "B"),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = d.ReplaceTables(ctx, EnrichOutputs, map[string]*table.Table{
		Enriched: sampleTable("C"),
	})
	require.Error(t, err)

	names, err := d.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{Enriched, PotentialOutcomes}, names)

	got, err := d.LoadTable(context.Background(), Enriched)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	entries, err := os.ReadDir(d.Path())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, e.IsDir(), "staging dir %s left behind", e.Name())
	}
}

func TestReplaceTables_InvalidGroupName(t *testing.T) {
	d, err := Open(t.TempDir(), "job-1")
	require.NoError(t, err)

	err = d.ReplaceTables(context.Background(), []string{"../sales"}, nil)
	assert.Error(t, err)
}

func TestNames_IgnoresOtherFiles(t *testing.T) {
	d, err := Open(t.TempDir(), "job-1")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(d.Path(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(d.Path(), "sub.csv"), 0o755))
	require.NoError(t, d.SaveTable(context.Background(), Products, sampleTable("A")))

	names, err := d.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{Products}, names)
}

package table

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_InfersTypes(t *testing.T) {
	t.Parallel()

	in := "product_identifier,date,ordered_units,price,enriched\n" +
		"B001,2024-11-15,2,19.99,true\n" +
		"B002,2024-11-16,0,5,false\n"

	tbl, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	assert.Equal(t, []string{"product_identifier", "date", "ordered_units", "price", "enriched"}, tbl.Columns)
	assert.Equal(t, "B001", tbl.Rows[0]["product_identifier"])
	assert.Equal(t, "2024-11-15", tbl.Rows[0]["date"])
	assert.Equal(t, int64(2), tbl.Rows[0]["ordered_units"])
	assert.Equal(t, 19.99, tbl.Rows[0]["price"])
	assert.Equal(t, 5.0, tbl.Rows[1]["price"])
	assert.Equal(t, true, tbl.Rows[0]["enriched"])
	assert.Equal(t, false, tbl.Rows[1]["enriched"])
}

func TestReadCSV_MissingHeader(t *testing.T) {
	t.Parallel()

	_, err := ReadCSV(context.Background(), strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing header")
}

func TestReadCSV_TooManyFields(t *testing.T) {
	t.Parallel()

	_, err := ReadCSV(context.Background(), strings.NewReader("a,b\n1,2,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 3 fields")
}

func TestReadCSV_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCSV(ctx, strings.NewReader("a,b\n1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	t.Parallel()

	tbl := New("product_identifier", "date", "ordered_units", "revenue", "features")
	tbl.Append(Row{
		"product_identifier": "B001",
		"date":               "2024-11-15",
		"ordered_units":      int64(3),
		"revenue":            59.97,
		"features":           []string{"Fast charging", "LCD display"},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t,
		"product_identifier,date,ordered_units,revenue,features\nB001,2024-11-15,3,59.97,Fast charging|LCD display\n",
		buf.String())

	back, err := ReadCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(3), back.Rows[0]["ordered_units"])
	assert.Equal(t, []string{"Fast charging", "LCD display"}, SplitList(back.Rows[0]["features"].(string)))
}

func TestReadCSV_IdentifiersKeepLeadingZeros(t *testing.T) {
	t.Parallel()

	in := "asin,date,ordered_units,price\n" +
		"0006479065,2024-11-15,2,12.5\n" +
		"0007123456,2024-11-15,1,8\n"

	tbl, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "0006479065", tbl.Rows[0]["asin"])
	assert.Equal(t, "0007123456", tbl.Rows[1]["asin"])
	assert.Equal(t, int64(2), tbl.Rows[0]["ordered_units"])

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, in, buf.String())
}

func TestReadCSV_ExtraTextColumns(t *testing.T) {
	t.Parallel()

	in := "sku,units\n00042,3\n"

	inferred, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, int64(42), inferred.Rows[0]["sku"])

	kept, err := ReadCSV(context.Background(), strings.NewReader(in), "sku")
	require.NoError(t, err)
	assert.Equal(t, "00042", kept.Rows[0]["sku"])
	assert.Equal(t, int64(3), kept.Rows[0]["units"])
}

func TestTable_AppendRegistersColumnsSorted(t *testing.T) {
	t.Parallel()

	tbl := New("a")
	tbl.Append(Row{"a": 1, "z": 2, "m": 3})
	assert.Equal(t, []string{"a", "m", "z"}, tbl.Columns)
}

func TestTable_CloneIsDeep(t *testing.T) {
	t.Parallel()

	tbl := New("a")
	tbl.Append(Row{"a": int64(1)})

	c := tbl.Clone()
	c.Rows[0]["a"] = int64(2)
	c.AppendColumn("b")

	assert.Equal(t, int64(1), tbl.Rows[0]["a"])
	assert.False(t, tbl.HasColumn("b"))
	assert.True(t, c.HasColumn("b"))
}

func TestNumericAccessors(t *testing.T) {
	t.Parallel()

	n, ok := Int(int64(4))
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)

	n, ok = Int(4.0)
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)

	_, ok = Int(4.5)
	assert.False(t, ok)

	f, ok := Float(int64(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = Float("abc")
	assert.False(t, ok)
}

func TestXLSX_RoundTrip(t *testing.T) {
	t.Parallel()

	tbl := New("product_identifier", "ordered_units", "enriched")
	tbl.Append(Row{"product_identifier": "B001", "ordered_units": int64(3), "enriched": true})
	tbl.Append(Row{"product_identifier": "B002", "ordered_units": int64(0), "enriched": false})

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, []Sheet{{Name: "enriched", Table: tbl}}))

	back, err := ReadXLSX(path, "enriched")
	require.NoError(t, err)
	require.Equal(t, 2, back.Len())
	assert.Equal(t, tbl.Columns, back.Columns)
	assert.Equal(t, "B001", back.Rows[0]["product_identifier"])
	assert.Equal(t, int64(3), back.Rows[0]["ordered_units"])
	assert.Equal(t, true, back.Rows[0]["enriched"])
	assert.Equal(t, false, back.Rows[1]["enriched"])
}

func TestReadXLSX_SheetNotFound(t *testing.T) {
	t.Parallel()

	tbl := New("a")
	tbl.Append(Row{"a": "x"})
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, []Sheet{{Name: "first", Table: tbl}}))

	_, err := ReadXLSX(path, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestWriteXLSX_NoSheets(t *testing.T) {
	t.Parallel()

	err := WriteXLSX(filepath.Join(t.TempDir(), "x.xlsx"), nil)
	require.Error(t, err)
}

package table

import (
	"context"
	"encoding/csv"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// listSep joins list values (product features) inside a single CSV cell.
const listSep = "|"

// textColumns are always read as strings, whatever their cells look like.
// Identifiers such as 10-digit ASINs keep their leading zeros.
var textColumns = []string{
	"product_identifier",
	"product_id",
	"asin",
	"date",
	"category",
	"title",
	"description",
	"brand",
	"features",
}

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads CSV records and sends them to a channel, header included.
// Caller must consume the returned row channel. Errors are sent on the error
// channel. Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV loads a whole CSV document into a Table. The first record is the
// header. Column types are inferred from the data, except for identifier and
// text columns and any extra names in text, which stay strings.
func ReadCSV(ctx context.Context, r io.Reader, text ...string) (*Table, error) {
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{TrimSpace: true})

	var header []string
	var records [][]string
	for rec := range rowCh {
		if header == nil {
			header = rec
			continue
		}
		records = append(records, rec)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if header == nil {
		return nil, eris.New("csv: missing header row")
	}
	return fromStrings(header, records, text)
}

// WriteCSV writes t as CSV with a header row in column order.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	rec := make([]string, len(t.Columns))
	for i, r := range t.Rows {
		for j, c := range t.Columns {
			rec[j] = String(r[c])
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "csv: write row %d", i)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// fromStrings builds a typed Table from raw string cells.
func fromStrings(header []string, records [][]string, text []string) (*Table, error) {
	kinds := make([]kind, len(header))
	for j, name := range header {
		if slices.Contains(textColumns, name) || slices.Contains(text, name) {
			kinds[j] = kindString
			continue
		}
		kinds[j] = inferKind(records, j)
	}

	t := New(header...)
	t.Rows = make([]Row, 0, len(records))
	for i, rec := range records {
		if len(rec) > len(header) {
			return nil, eris.Errorf("table: row %d has %d fields, header has %d", i+1, len(rec), len(header))
		}
		row := make(Row, len(header))
		for j, name := range header {
			cell := ""
			if j < len(rec) {
				cell = rec[j]
			}
			row[name] = kinds[j].parse(cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

type kind int

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindBool
)

// inferKind picks the narrowest type every non-empty cell in column j fits.
func inferKind(records [][]string, j int) kind {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, rec := range records {
		if j >= len(rec) || rec[j] == "" {
			continue
		}
		seen = true
		cell := rec[j]
		if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			isFloat = false
		}
		if cell != "true" && cell != "false" && cell != "True" && cell != "False" {
			isBool = false
		}
	}
	switch {
	case !seen:
		return kindString
	case isInt:
		return kindInt
	case isFloat:
		return kindFloat
	case isBool:
		return kindBool
	default:
		return kindString
	}
}

func (k kind) parse(cell string) any {
	switch k {
	case kindInt:
		if cell == "" {
			return int64(0)
		}
		n, _ := strconv.ParseInt(cell, 10, 64)
		return n
	case kindFloat:
		if cell == "" {
			return float64(0)
		}
		f, _ := strconv.ParseFloat(cell, 64)
		return f
	case kindBool:
		return strings.EqualFold(cell, "true")
	default:
		return cell
	}
}

func joinList(items []string) string {
	return strings.Join(items, listSep)
}

// SplitList reverses the cell encoding used for list values.
func SplitList(cell string) []string {
	if cell == "" {
		return nil
	}
	return strings.Split(cell, listSep)
}

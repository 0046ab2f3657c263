package table

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet pairs a worksheet name with the table written to it.
type Sheet struct {
	Name  string
	Table *Table
}

// WriteXLSX saves each sheet as a worksheet in a new workbook at path.
// Numbers keep numeric cell types; booleans are written as true/false text
// so they read back as booleans.
func WriteXLSX(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return eris.New("xlsx: no sheets to write")
	}
	f := xlsx.NewFile()
	for _, s := range sheets {
		sheet, err := f.AddSheet(s.Name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %s", s.Name)
		}
		header := sheet.AddRow()
		for _, c := range s.Table.Columns {
			header.AddCell().SetString(c)
		}
		for _, r := range s.Table.Rows {
			row := sheet.AddRow()
			for _, c := range s.Table.Columns {
				setCell(row.AddCell(), r[c])
			}
		}
	}
	return eris.Wrap(f.Save(path), "xlsx: save")
}

// ReadXLSX loads one worksheet (by name, or the first when name is empty)
// into a Table. The first row is the header.
func ReadXLSX(path, name string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, name)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("xlsx: sheet %q is empty", sheet.Name)
	}

	header := rowToStrings(sheet.Rows[0])
	records := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		records = append(records, rowToStrings(row))
	}
	return fromStrings(header, records, nil)
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func setCell(cell *xlsx.Cell, v any) {
	switch x := v.(type) {
	case int64:
		cell.SetInt64(x)
	case int:
		cell.SetInt(x)
	case float64:
		cell.SetFloat(x)
	default:
		cell.SetString(String(v))
	}
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// NewWorkbook builds a workbook with one sheet per table, in order.
func NewWorkbook(sheets []Sheet) (*xlsx.File, error) {
	f := xlsx.NewFile()
	for _, s := range sheets {
		sheet, err := f.AddSheet(s.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: add sheet %q", s.Name)
		}
		addRow(sheet, s.Header)
		for _, r := range s.Rows {
			addRow(sheet, r)
		}
	}
	return f, nil
}

// SaveXLSX writes sheets to a workbook at path.
func SaveXLSX(path string, sheets []Sheet) error {
	f, err := NewWorkbook(sheets)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// WriteXLSX streams the workbook to w.
func WriteXLSX(w io.Writer, sheets []Sheet) error {
	f, err := NewWorkbook(sheets)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write")
	}
	return nil
}

// ReadXLSX reads every sheet of a workbook as string rows, keyed by sheet name.
func ReadXLSX(path string) (map[string][][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	out := make(map[string][][]string, len(f.Sheets))
	for _, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			rows = append(rows, rowToStrings(row))
		}
		out[sheet.Name] = rows
	}
	return out, nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

package export

import (
	"context"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXEncoder writes one sheet through the stream writer, one row at a
// time: styled frozen header with an auto-filter, bordered data rows
// with a conditional fill keyed on the status column, landscape
// fit-to-width print layout. The zip container itself only reaches the
// sink at the terminal Write.
type XLSXEncoder struct{}

func (e *XLSXEncoder) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (e *XLSXEncoder) FileExt() string { return "xlsx" }

func (e *XLSXEncoder) Encode(ctx context.Context, w io.Writer, tbl Table, rows [][]string) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := tbl.Name
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return 0, failed(FormatXLSX, 0, err)
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"404040"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center", Vertical: "center", WrapText: true,
		},
		Border: border,
	})
	if err != nil {
		return 0, failed(FormatXLSX, 0, err)
	}
	rowStyle, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return 0, failed(FormatXLSX, 0, err)
	}
	flaggedStyle, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FDE9D9"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return 0, failed(FormatXLSX, 0, err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return 0, failed(FormatXLSX, 0, err)
	}

	for i, c := range tbl.Columns {
		if err := sw.SetColWidth(i+1, i+1, c.Width*0.55); err != nil {
			return 0, failed(FormatXLSX, 0, err)
		}
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return 0, failed(FormatXLSX, 0, err)
	}

	header := make([]interface{}, len(tbl.Columns))
	for i, c := range tbl.Columns {
		header[i] = excelize.Cell{StyleID: headStyle, Value: c.Title}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, failed(FormatXLSX, 0, err)
	}

	n := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return n, failed(FormatXLSX, n, err)
		}

		style := rowStyle
		if tbl.StatusCol >= 0 && tbl.StatusCol < len(row) && strings.EqualFold(row[tbl.StatusCol], "inactive") {
			style = flaggedStyle
		}

		rec := make([]interface{}, len(tbl.Columns))
		for i := range tbl.Columns {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			rec[i] = excelize.Cell{StyleID: style, Value: cell(v)}
		}

		start, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return n, failed(FormatXLSX, n, err)
		}
		if err := sw.SetRow(start, rec); err != nil {
			return n, failed(FormatXLSX, n, err)
		}
		n++
	}

	if err := sw.Flush(); err != nil {
		return n, failed(FormatXLSX, n, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(tbl.Columns))
	if err != nil {
		return n, failed(FormatXLSX, n, err)
	}
	if err := f.AutoFilter(sheet, "A1:"+lastCol+"1", nil); err != nil {
		return n, failed(FormatXLSX, n, err)
	}

	orientation := "landscape"
	fitToWidth := 1
	if err := f.SetPageLayout(sheet, &excelize.PageLayoutOptions{
		Orientation: &orientation,
		FitToWidth:  &fitToWidth,
	}); err != nil {
		return n, failed(FormatXLSX, n, err)
	}

	if err := f.Write(w); err != nil {
		return n, failed(FormatXLSX, n, err)
	}
	return n, nil
}

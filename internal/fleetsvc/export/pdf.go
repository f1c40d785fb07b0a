package export

import (
	"context"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDFEncoder lays the rows out as a fixed-width table on landscape A4
// pages. Row height follows the tallest wrapped cell; when the cursor
// would pass the printable height a new page starts with the header
// redrawn at the top margin.
type PDFEncoder struct{}

func (e *PDFEncoder) ContentType() string { return "application/pdf" }
func (e *PDFEncoder) FileExt() string     { return "pdf" }

const (
	pdfLineHt  = 4.5
	pdfCellPad = 1.2
	pdfHeadHt  = 8.0
)

func (e *PDFEncoder) Encode(ctx context.Context, w io.Writer, tbl Table, rows [][]string) (int, error) {
	doc := gofpdf.New("L", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 8)
	doc.SetAutoPageBreak(false, 10)

	_, pageH := doc.GetPageSize()
	left, _, _, bottom := doc.GetMargins()
	maxY := pageH - bottom

	doc.AddPage()
	e.drawHeader(doc, tbl, left)

	n := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return n, failed(FormatPDF, n, err)
		}

		rowH := e.rowHeight(doc, tbl, row)
		if doc.GetY()+rowH > maxY {
			doc.AddPage()
			e.drawHeader(doc, tbl, left)
		}

		x, y := left, doc.GetY()
		for i, c := range tbl.Columns {
			doc.Rect(x, y, c.Width, rowH, "D")
			doc.SetXY(x+pdfCellPad, y+pdfCellPad)
			doc.MultiCell(c.Width-2*pdfCellPad, pdfLineHt, cell(at(row, i)), "", "L", false)
			x += c.Width
		}
		doc.SetXY(left, y+rowH)
		n++
	}

	if doc.Err() {
		return n, failed(FormatPDF, n, doc.Error())
	}
	if err := doc.Output(w); err != nil {
		return n, failed(FormatPDF, n, err)
	}
	return n, nil
}

func (e *PDFEncoder) drawHeader(doc *gofpdf.Fpdf, tbl Table, left float64) {
	y := doc.GetY()
	doc.SetFont("Helvetica", "B", 8)
	doc.SetFillColor(64, 64, 64)
	doc.SetTextColor(255, 255, 255)

	width := 0.0
	for _, c := range tbl.Columns {
		doc.CellFormat(c.Width, pdfHeadHt, c.Title, "1", 0, "CM", true, 0, "")
		width += c.Width
	}

	doc.SetFont("Helvetica", "", 8)
	doc.SetTextColor(0, 0, 0)
	doc.SetDrawColor(0, 0, 0)

	// separating rule beneath the header
	doc.Line(left, y+pdfHeadHt, left+width, y+pdfHeadHt)
	doc.SetXY(left, y+pdfHeadHt)
}

func (e *PDFEncoder) rowHeight(doc *gofpdf.Fpdf, tbl Table, row []string) float64 {
	maxLines := 1
	for i, c := range tbl.Columns {
		lines := doc.SplitLines([]byte(cell(at(row, i))), c.Width-2*pdfCellPad)
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	return float64(maxLines)*pdfLineHt + 2*pdfCellPad
}

func at(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

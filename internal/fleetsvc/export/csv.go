package export

import (
	"context"
	"encoding/csv"
	"io"
)

// CSVEncoder writes one header record and one record per row, quoting
// per RFC 4180 and substituting the placeholder for absent values.
type CSVEncoder struct{}

func (e *CSVEncoder) ContentType() string { return "text/csv" }
func (e *CSVEncoder) FileExt() string     { return "csv" }

func (e *CSVEncoder) Encode(ctx context.Context, w io.Writer, tbl Table, rows [][]string) (int, error) {
	cw := csv.NewWriter(w)

	header := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		header[i] = c.Title
	}
	if err := cw.Write(header); err != nil {
		return 0, failed(FormatCSV, 0, err)
	}

	n := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return n, failed(FormatCSV, n, err)
		}
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = cell(v)
		}
		if err := cw.Write(rec); err != nil {
			return n, failed(FormatCSV, n, err)
		}
		n++
		// push each record out instead of holding the whole document
		cw.Flush()
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, failed(FormatCSV, n, err)
	}
	return n, nil
}

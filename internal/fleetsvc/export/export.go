package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Placeholder stands in for absent values in every output format.
const Placeholder = "N/A"

var (
	// ErrExportFailed wraps encoder failures that happen before any bytes
	// reached the sink. Once output is flushed there is no rollback;
	// later failures are logged by the caller instead.
	ErrExportFailed = errors.New("export failed")

	ErrUnknownFormat = errors.New("unknown export format")
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates the format parameter before any resolution work
// starts.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatXLSX, FormatPDF:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Encoder streams a denormalized row set into one output encoding. Rows
// are written to the sink in input order; an empty cell renders as the
// placeholder. Encode reports the number of data rows processed.
type Encoder interface {
	ContentType() string
	FileExt() string
	Encode(ctx context.Context, w io.Writer, tbl Table, rows [][]string) (int, error)
}

func NewEncoder(f Format) Encoder {
	switch f {
	case FormatXLSX:
		return &XLSXEncoder{}
	case FormatPDF:
		return &PDFEncoder{}
	default:
		return &CSVEncoder{}
	}
}

// Filename suggests a download name like devices_20060102T150405.csv.
func Filename(entity string, f Format) string {
	return fmt.Sprintf("%s_%s.%s", entity, time.Now().Format("20060102T150405"), f)
}

func cell(v string) string {
	if v == "" {
		return Placeholder
	}
	return v
}

func failed(f Format, rows int, err error) error {
	return fmt.Errorf("%w: %s after %d rows: %v", ErrExportFailed, f, rows, err)
}

// CountingWriter tells the caller whether any bytes already reached the
// sink when an encoder fails mid-stream. OnFirst, when set, runs right
// before the first byte goes out; HTTP handlers hang the download
// headers on it so a clean pre-byte failure can still change the
// response.
type CountingWriter struct {
	W       io.Writer
	N       int64
	OnFirst func()
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	if c.N == 0 && len(p) > 0 && c.OnFirst != nil {
		c.OnFirst()
	}
	n, err := c.W.Write(p)
	c.N += int64(n)
	return n, err
}

func (c *CountingWriter) Written() int64 { return c.N }

package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// page objects in the generated document; the page tree root counts one
// "/Type /Pages" that must be excluded.
func pdfPageCount(out []byte) int {
	return bytes.Count(out, []byte("/Type /Page")) - bytes.Count(out, []byte("/Type /Pages"))
}

func TestPDFSinglePage(t *testing.T) {
	var buf bytes.Buffer
	enc := &PDFEncoder{}

	n, err := enc.Encode(context.Background(), &buf, testTable(), [][]string{
		{"IMEI-001", "active", "Sam"},
		{"IMEI-002", "inactive", ""},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	require.Equal(t, 1, pdfPageCount(buf.Bytes()))
}

func TestPDFOverflowStartsNewPage(t *testing.T) {
	// enough tall rows to blow past one printable page height
	long := strings.Repeat("wrapped content ", 12)
	rows := make([][]string, 60)
	for i := range rows {
		rows[i] = []string{"IMEI-001", "active", long}
	}

	var buf bytes.Buffer
	enc := &PDFEncoder{}
	n, err := enc.Encode(context.Background(), &buf, testTable(), rows)
	require.NoError(t, err)
	require.Equal(t, 60, n)
	require.Greater(t, pdfPageCount(buf.Bytes()), 1)
}

func TestPDFZeroRows(t *testing.T) {
	var buf bytes.Buffer
	enc := &PDFEncoder{}

	n, err := enc.Encode(context.Background(), &buf, testTable(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 1, pdfPageCount(buf.Bytes()))
}

func TestPDFCancelledContextReportsExportFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	enc := &PDFEncoder{}
	_, err := enc.Encode(ctx, &buf, testTable(), [][]string{
		{"IMEI-001", "active", "Sam"},
	})
	require.True(t, errors.Is(err, ErrExportFailed))
	// nothing committed to the sink before the failure
	require.Zero(t, buf.Len())
}

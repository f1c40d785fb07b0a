package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageWindow(t *testing.T) {
	tests := []struct {
		name  string
		page  Page
		skip  int64
		limit int64
	}{
		{"first page", Page{Number: 1, Size: 20}, 0, 20},
		{"third page", Page{Number: 3, Size: 10}, 20, 10},
		{"page below one clamps", Page{Number: 0, Size: 10}, 0, 10},
		{"negative page clamps", Page{Number: -5, Size: 10}, 0, 10},
		{"zero size yields zero limit", Page{Number: 4, Size: 0}, 0, 0},
		{"negative size yields zero limit", Page{Number: 1, Size: -1}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, limit := tt.page.Window()
			require.Equal(t, tt.skip, skip)
			require.Equal(t, tt.limit, limit)
		})
	}
}

package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		limit  int
		want   Window
	}{
		{"defaults apply when unset", 0, 0, Window{Offset: 0, Limit: 50}},
		{"explicit values pass through", 20, 100, Window{Offset: 20, Limit: 100}},
		{"limit clamped to ceiling", 0, 10000, Window{Offset: 0, Limit: 500}},
		{"negative offset collapses to zero", -5, 10, Window{Offset: 0, Limit: 10}},
		{"negative limit falls back to default", 0, -1, Window{Offset: 0, Limit: 50}},
		{"ceiling itself is allowed", 0, 500, Window{Offset: 0, Limit: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewWindow(tt.offset, tt.limit))
		})
	}
}

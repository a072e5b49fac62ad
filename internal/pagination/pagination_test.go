package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_ResolvesPageNumber(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		raw      string
		expected int
	}{
		{"absent defaults to first", 25, "", 1},
		{"non numeric falls back to first", 25, "abc", 1},
		{"zero clamps to last", 25, "0", 3},
		{"negative clamps to last", 25, "-3", 3},
		{"zero on a single page", 4, "0", 1},
		{"valid page", 25, "2", 2},
		{"last page", 25, "3", 3},
		{"past the end clamps to last", 25, "99", 3},
		{"empty collection has one page", 0, "5", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.total, 10, tt.raw)
			assert.Equal(t, tt.expected, p.Number)
		})
	}
}

func TestNew_PageCount(t *testing.T) {
	assert.Equal(t, 1, New(0, 10, "").NumPages)
	assert.Equal(t, 1, New(10, 10, "").NumPages)
	assert.Equal(t, 2, New(11, 10, "").NumPages)
	assert.Equal(t, 13, New(13, 1, "").NumPages)
}

func TestPaginator_Navigation(t *testing.T) {
	first := New(25, 10, "1")
	assert.False(t, first.HasPrevious())
	assert.True(t, first.HasNext())
	assert.Equal(t, 2, first.NextNumber())
	assert.Equal(t, 0, first.Offset())
	assert.Equal(t, 10, first.Limit())

	last := New(25, 10, "3")
	assert.True(t, last.HasPrevious())
	assert.False(t, last.HasNext())
	assert.Equal(t, 2, last.PreviousNumber())
	assert.Equal(t, 20, last.Offset())
	assert.Equal(t, []int{1, 2, 3}, last.PageRange())

	single := New(3, 10, "")
	assert.False(t, single.HasOtherPages())
}

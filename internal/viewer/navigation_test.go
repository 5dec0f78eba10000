package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigator_NextStopsAtLastPage(t *testing.T) {
	n := NewNavigator(Paged)
	n.Bind(10)
	require.Equal(t, 1, n.Current())

	for i := 0; i < 9; i++ {
		n.Next()
	}
	assert.Equal(t, 10, n.Current())
	assert.False(t, n.Next())
	assert.Equal(t, 10, n.Current())
}

func TestNavigator_PreviousStopsAtFirstPage(t *testing.T) {
	n := NewNavigator(Paged)
	n.Bind(3)
	assert.False(t, n.Previous())
	assert.Equal(t, 1, n.Current())

	n.Next()
	assert.True(t, n.Previous())
	assert.Equal(t, 1, n.Current())
}

func TestNavigator_UnboundIsNoOp(t *testing.T) {
	n := NewNavigator(Paged)
	assert.False(t, n.Next())
	assert.False(t, n.Previous())
	assert.False(t, n.GoTo(1))
	assert.Equal(t, 0, n.Current())
	assert.Nil(t, n.Materialized())
}

func TestNavigator_GoTo(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		moved   bool
		current int
	}{
		{"inside range", 4, true, 4},
		{"zero", 0, false, 1},
		{"past end", 6, false, 1},
		{"last page", 5, true, 5},
		{"same page", 1, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNavigator(Paged)
			n.Bind(5)
			assert.Equal(t, tt.moved, n.GoTo(tt.page))
			assert.Equal(t, tt.current, n.Current())
		})
	}
}

func TestNavigator_Materialized(t *testing.T) {
	n := NewNavigator(Continuous)
	n.Bind(4)
	assert.Equal(t, []int{1, 2, 3, 4}, n.Materialized())

	n.Next()
	n.SetMode(Paged)
	assert.Equal(t, []int{2}, n.Materialized())

	n.Reset()
	assert.False(t, n.Bound())
	assert.Nil(t, n.Materialized())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("paged")
	require.NoError(t, err)
	assert.Equal(t, Paged, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Continuous, m)

	_, err = ParseMode("spread")
	assert.Error(t, err)
}

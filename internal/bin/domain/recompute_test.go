package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecompute(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want State
	}{
		{"no lines", Snapshot{}, StateClear},
		{"line disposing", Snapshot{Line: &LineState{Disquantity: 2}}, StateFlagged},
		{"line cleared, no others", Snapshot{Line: &LineState{Disquantity: 0}}, StateClear},
		{"line cleared, others disposing", Snapshot{OtherDisposing: 1, Line: &LineState{}}, StateFlagged},
		{"line deleted, others disposing", Snapshot{OtherDisposing: 3}, StateFlagged},
		{"line deleted, none left", Snapshot{OtherDisposing: 0, Line: nil}, StateClear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recompute(tt.snap))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "flagged", StateFlagged.String())
	assert.Equal(t, "clear", StateClear.String())
}

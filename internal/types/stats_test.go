package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatsMerge(t *testing.T) {
	a := NewRunStats()
	a.Fetched = 10
	a.Imported = 8
	a.AddError("call-1", "transform", errors.New("bad row"))

	b := NewRunStats()
	b.Analyzed = 5
	b.Skipped = 3
	b.AddError("call-2", "analyze", errors.New("gateway down"))

	a.Merge(b)
	assert.Equal(t, 10, a.Fetched)
	assert.Equal(t, 8, a.Imported)
	assert.Equal(t, 5, a.Analyzed)
	assert.Equal(t, 3, a.Skipped)
	require.Len(t, a.Errors, 2)
	assert.Equal(t, "fetched=10 imported=8 analyzed=5 skipped=3 errors=2", a.Summary())
}

func TestRunStatsFirstErrors(t *testing.T) {
	s := NewRunStats()
	for i := 0; i < 8; i++ {
		s.AddError("call", "import", errors.New("boom"))
	}

	msgs := s.FirstErrors(5)
	require.Len(t, msgs, 5)
	assert.Equal(t, "call [import]: boom", msgs[0])

	assert.Empty(t, RunStats{}.FirstErrors(5))
}

func TestNewRunStatsAssignsRunID(t *testing.T) {
	a := NewRunStats()
	b := NewRunStats()
	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
}

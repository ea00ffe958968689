package console

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/tracectl/pkg/types"
)

func TestTurnSequencerAdvancesOnlyOnSuccess(t *testing.T) {
	seq := NewTurnSequencer(3)
	assert.Equal(t, 3, seq.Next())

	seq.Advance(seq.Next())
	assert.Equal(t, 4, seq.Next())

	// A failed submission never calls Advance.
	assert.Equal(t, 4, seq.Next())

	seq.Advance(3)
	assert.Equal(t, 4, seq.Next(), "advancing a past turn is ignored")
}

func TestTurnSequencerReset(t *testing.T) {
	seq := NewTurnSequencer(0)
	assert.Equal(t, 1, seq.Next())

	seq.Advance(1)
	seq.Reset(7)
	assert.Equal(t, 7, seq.Next())
}

func TestTurnSequencerResume(t *testing.T) {
	seq := NewTurnSequencer(5)
	seq.Resume(nil)
	assert.Equal(t, 5, seq.Next())

	seq.Resume([]types.ReplayRecord{
		{TurnNumber: 5, Status: types.StatusSuccess},
		{TurnNumber: 6, Status: types.StatusError},
	})
	assert.Equal(t, 6, seq.Next())

	seq.Resume([]types.ReplayRecord{
		{TurnNumber: 5, Status: types.StatusSuccess},
		{TurnNumber: 6, Status: types.StatusError},
		{TurnNumber: 6, Status: types.StatusSuccess},
	})
	assert.Equal(t, 7, seq.Next())

	seq.Resume([]types.ReplayRecord{{TurnNumber: 2, Status: types.StatusSuccess}})
	assert.Equal(t, 5, seq.Next(), "never below the start turn")
}

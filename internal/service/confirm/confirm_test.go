package confirm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswersReplayInOrder(t *testing.T) {
	a := NewAnswers(true, false)
	assert.True(t, a.Confirm("first"))
	assert.False(t, a.Confirm("second"))
	assert.False(t, a.Confirm("third"), "missing answers decline")
	assert.Equal(t, []string{"first", "second", "third"}, a.Asked())
}

func TestAlways(t *testing.T) {
	assert.True(t, Always(true).Confirm(DeleteRecordPrompt))
	assert.False(t, Always(false).Confirm(ClearAllPrompt))
}

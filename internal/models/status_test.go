package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOrder(t *testing.T) {
	ordered := []Status{
		StatusUploaded,
		StatusOcrDone,
		StatusChunked,
		StatusEmbedded,
		StatusRagDone,
		StatusEvaluated,
	}
	for i := 1; i < len(ordered); i++ {
		assert.True(t, ordered[i].After(ordered[i-1]),
			"%s should come after %s", ordered[i], ordered[i-1])
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusChunked.Valid())
	assert.False(t, Status("mystery").Valid())
	assert.Equal(t, -1, Status("mystery").Rank())
}

package dedup_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ryafar/soil-moisture-server/pkg/dedup"
)

func TestFirstSuppressesRepeats(t *testing.T) {
	d := dedup.New(time.Minute, 100)

	assert.True(t, d.First("a"))
	assert.False(t, d.First("a"))
	assert.True(t, d.First("b"))
}

func TestEmptyKeyNeverDeduplicated(t *testing.T) {
	d := dedup.New(time.Minute, 100)

	assert.True(t, d.First(""))
	assert.True(t, d.First(""))
}

func TestExpiredKeySeenAgain(t *testing.T) {
	d := dedup.New(time.Millisecond, 100)

	assert.True(t, d.First("a"))
	time.Sleep(5 * time.Millisecond)
	assert.True(t, d.First("a"))
}

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())

	c.Advance(-time.Hour)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())
}

func TestFakeClockSet(t *testing.T) {
	c := NewFakeClock(time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC))
	jakarta := time.FixedZone("WIB", 7*3600)
	c.Set(time.Date(2024, 5, 2, 7, 0, 0, 0, jakarta))
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), c.Now())
}

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystemClock().Now().Location())
}

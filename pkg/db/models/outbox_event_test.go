package models

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestOutboxEventState(t *testing.T) {
	now := time.Now()
	var row OutboxEvent
	assert.True(t, row.Pending())
	assert.False(t, row.Parked())

	row.FailedAt = &now
	assert.False(t, row.Pending())
	assert.True(t, row.Parked())

	row.PublishedAt = &now
	assert.False(t, row.Parked())
}

func TestParksOnFailure(t *testing.T) {
	row := OutboxEvent{AttemptCount: 8}
	assert.False(t, row.ParksOnFailure(10))
	row.AttemptCount = 9
	assert.True(t, row.ParksOnFailure(10))
	assert.True(t, OutboxEvent{}.ParksOnFailure(1))
	assert.False(t, row.ParksOnFailure(0))
}

func TestOutboxErrorText(t *testing.T) {
	assert.Empty(t, OutboxErrorText(nil))
	assert.Equal(t, "boom", OutboxErrorText(errors.New("boom")))

	long := strings.Repeat("a", MaxOutboxErrorLen-1) + "é" + "tail"
	got := OutboxErrorText(errors.New(long))
	assert.LessOrEqual(t, len(got), MaxOutboxErrorLen)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", MaxOutboxErrorLen-1), got)
}

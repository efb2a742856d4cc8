package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chatarchive/internal/features/archive/models"
)

func TestFeedWindowKeepsMostRecentOldestFirst(t *testing.T) {
	w := NewFeedWindow(5, models.OldestFirst)
	w.Append(monthMessages(2023, time.January, 1, 3)...)
	w.Append(monthMessages(2023, time.February, 4, 4)...)

	assert.Equal(t, 5, w.Len())
	assert.Equal(t, []int64{3, 4, 5, 6, 7}, ids(w.Entries()))
}

func TestFeedWindowKeepsMostRecentNewestFirst(t *testing.T) {
	w := NewFeedWindow(5, models.NewestFirst)

	feb := monthMessages(2023, time.February, 4, 4)
	jan := monthMessages(2023, time.January, 1, 3)
	for i := len(feb) - 1; i >= 0; i-- {
		w.Append(feb[i])
	}
	for i := len(jan) - 1; i >= 0; i-- {
		w.Append(jan[i])
	}

	assert.Equal(t, 5, w.Len())
	assert.Equal(t, []int64{3, 4, 5, 6, 7}, ids(w.Entries()))
}

func TestFeedWindowPartialAndEmpty(t *testing.T) {
	w := NewFeedWindow(10, models.OldestFirst)
	assert.Nil(t, w.Entries())

	w.Append(monthMessages(2023, time.January, 1, 2)...)
	assert.Equal(t, []int64{1, 2}, ids(w.Entries()))

	zero := NewFeedWindow(0, models.OldestFirst)
	zero.Append(monthMessages(2023, time.January, 1, 2)...)
	assert.Equal(t, 0, zero.Len())
	assert.Equal(t, 0, zero.Cap())
}

package services

import (
	"sync"

	"chatarchive/internal/features/archive/models"
)

// FeedWindow keeps the most recent N messages seen during a build.
//
// Messages arrive in traversal order. Oldest-first traversal makes every
// arrival newer than what is held, so the oldest entry is overwritten;
// newest-first traversal makes every arrival older, so arrivals are
// dropped once the window is full. Either way the window ends up holding
// the N most recent messages.
type FeedWindow struct {
	mu    sync.Mutex
	order models.SortOrder
	buf   []models.Message
	head  int
	count int
}

// NewFeedWindow creates a window holding at most capacity messages
func NewFeedWindow(capacity int, order models.SortOrder) *FeedWindow {
	if capacity < 0 {
		capacity = 0
	}
	return &FeedWindow{
		order: order,
		buf:   make([]models.Message, capacity),
	}
}

// Append adds messages in traversal order
func (w *FeedWindow) Append(messages ...models.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()

	size := len(w.buf)
	if size == 0 {
		return
	}

	for _, m := range messages {
		if w.count == size && w.order == models.NewestFirst {
			return
		}
		w.buf[w.head] = m
		w.head = (w.head + 1) % size
		if w.count < size {
			w.count++
		}
	}
}

// Len returns the number of held messages
func (w *FeedWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Cap returns the window capacity
func (w *FeedWindow) Cap() int {
	return len(w.buf)
}

// Entries returns the held messages oldest first
func (w *FeedWindow) Entries() []models.Message {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.count == 0 {
		return nil
	}

	size := len(w.buf)
	result := make([]models.Message, w.count)
	if w.count < size {
		copy(result, w.buf[:w.count])
	} else {
		n := copy(result, w.buf[w.head:])
		copy(result[n:], w.buf[:w.head])
	}

	if w.order == models.NewestFirst {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	return result
}

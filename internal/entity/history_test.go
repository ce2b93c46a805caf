package entity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func entryNamed(task string) HistoryEntry {
	return HistoryEntry{Task: task, Action: Action{Kind: KindClick}}
}

func TestHistoryEviction(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)

	for i := 1; i <= 5; i++ {
		h.Append(entryNamed(fmt.Sprintf("task-%d", i)))
	}

	require.Equal(t, 3, h.Len())

	entries := h.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "task-3", entries[0].Task)
	assert.Equal(t, "task-5", entries[2].Task)
}

func TestHistoryRecent(t *testing.T) {
	t.Parallel()

	h := NewHistory(10)

	for i := 1; i <= 4; i++ {
		h.Append(entryNamed(fmt.Sprintf("task-%d", i)))
	}

	recent := h.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "task-3", recent[0].Task)
	assert.Equal(t, "task-4", recent[1].Task)

	assert.Len(t, h.Recent(100), 4)
	assert.Nil(t, h.Recent(0))
}

func TestHistoryDefaultCapacity(t *testing.T) {
	t.Parallel()

	h := NewHistory(0)

	for i := 0; i < 25; i++ {
		h.Append(entryNamed("x"))
	}

	assert.Equal(t, defaultHistoryCapacity, h.Len())
}

func TestHistoryEntriesAreCopies(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)
	h.Append(entryNamed("original"))

	entries := h.Entries()
	entries[0].Task = "mutated"

	assert.Equal(t, "original", h.Entries()[0].Task)
}

func TestHistoryNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 16).Draw(t, "capacity")
		count := rapid.IntRange(0, 64).Draw(t, "count")

		h := NewHistory(capacity)

		for i := 0; i < count; i++ {
			h.Append(entryNamed(fmt.Sprintf("task-%d", i)))
		}

		if h.Len() > capacity {
			t.Fatalf("len %d exceeds capacity %d", h.Len(), capacity)
		}

		if count > 0 {
			entries := h.Entries()

			want := fmt.Sprintf("task-%d", count-1)
			if got := entries[len(entries)-1].Task; got != want {
				t.Fatalf("latest entry lost: got %s, want %s", got, want)
			}
		}
	})
}

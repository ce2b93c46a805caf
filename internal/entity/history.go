package entity

import "time"

const defaultHistoryCapacity = 10

// HistoryEntry records one executed action and its outcome.
type HistoryEntry struct {
	TaskID    string
	Task      string
	Action    Action
	Result    ActionResult
	Timestamp time.Time
}

// History is a bounded ring buffer of the most recent action executions,
// oldest entries evicted first. It is short-term memory fed back into
// planning prompts. Only the task controller appends to it.
type History struct {
	capacity int
	entries  []HistoryEntry
}

// NewHistory returns a History keeping at most capacity entries. A
// non-positive capacity falls back to the default of 10.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}

	return &History{
		capacity: capacity,
		entries:  make([]HistoryEntry, 0, capacity),
	}
}

// Append records an entry, evicting the oldest once capacity is reached.
func (h *History) Append(entry HistoryEntry) {
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.capacity-1]
	}

	h.entries = append(h.entries, entry)
}

// Len reports the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of all retained entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)

	return out
}

// Recent returns a copy of the n most recent entries, oldest first.
func (h *History) Recent(n int) []HistoryEntry {
	if n <= 0 || len(h.entries) == 0 {
		return nil
	}

	if n > len(h.entries) {
		n = len(h.entries)
	}

	out := make([]HistoryEntry, n)
	copy(out, h.entries[len(h.entries)-n:])

	return out
}

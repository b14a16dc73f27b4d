package calllog

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Entry struct {
	ID        uuid.UUID   `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Level     Level       `json:"level"`
	Message   string      `json:"message"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Buffer is a fixed-capacity, thread-safe ring of the most recent callback
// diagnostics. Purely operational: nothing in the reconciliation path depends
// on it, and old entries are overwritten once capacity is reached.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 256
	}
	return &Buffer{entries: make([]Entry, capacity)}
}

func (b *Buffer) Record(level Level, message string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = Entry{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Payload:   payload,
	}

	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// List returns entries oldest-first.
func (b *Buffer) List() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.full {
		out := make([]Entry, b.next)
		copy(out, b.entries[:b.next])
		return out
	}

	out := make([]Entry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	out = append(out, b.entries[:b.next]...)
	return out
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.full {
		return len(b.entries)
	}
	return b.next
}

package calllog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferRecordAndList(t *testing.T) {
	b := NewBuffer(4)

	b.Record(LevelInfo, "first", nil)
	b.Record(LevelWarn, "second", map[string]string{"order": "000112148549"})

	assert.Equal(t, 2, b.Len())

	entries := b.List()
	assert.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
	assert.Equal(t, LevelWarn, entries[1].Level)
	assert.NotZero(t, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestBufferWrapsOldestFirst(t *testing.T) {
	b := NewBuffer(3)

	for i := 1; i <= 5; i++ {
		b.Record(LevelInfo, fmt.Sprintf("entry-%d", i), nil)
	}

	assert.Equal(t, 3, b.Len())

	entries := b.List()
	assert.Len(t, entries, 3)
	assert.Equal(t, "entry-3", entries[0].Message)
	assert.Equal(t, "entry-4", entries[1].Message)
	assert.Equal(t, "entry-5", entries[2].Message)
}

func TestBufferDefaultCapacity(t *testing.T) {
	b := NewBuffer(0)
	b.Record(LevelError, "signature rejected", nil)
	assert.Equal(t, 1, b.Len())
}

func TestBufferConcurrentRecord(t *testing.T) {
	b := NewBuffer(64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Record(LevelInfo, "concurrent", nil)
				b.List()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 64, b.Len())
}

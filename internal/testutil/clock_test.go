package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtZero(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())
}

func TestDeterministicClock_NowAdvancesOneMillisecond(t *testing.T) {
	clock := NewDeterministicClock()

	first := clock.Now()
	second := clock.Now()

	assert.Equal(t, Epoch.Add(time.Millisecond), first)
	assert.Equal(t, Epoch.Add(2*time.Millisecond), second)
	assert.True(t, second.After(first))
	assert.Equal(t, int64(2), clock.Current())
}

func TestDeterministicClock_NextIncrementsMonotonically(t *testing.T) {
	clock := NewDeterministicClock()

	// First call returns 1
	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(1), clock.Current())

	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(3), clock.Next())
	assert.Equal(t, int64(3), clock.Current())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()

	clock.Now()
	clock.Now()
	clock.Now()
	assert.Equal(t, int64(3), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())

	// First call after reset starts over
	assert.Equal(t, Epoch.Add(time.Millisecond), clock.Now())
}

func TestDeterministicClock_CustomBase(t *testing.T) {
	base := time.Date(2030, time.June, 1, 12, 0, 0, 0, time.UTC)
	clock := NewDeterministicClockAt(base)

	assert.Equal(t, base.Add(time.Millisecond), clock.Now())
	assert.Equal(t, base.Add(5*time.Millisecond), clock.At(5))
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]time.Time, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]time.Time, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Now()
			}
		}(i)
	}

	wg.Wait()

	seen := make(map[time.Time]bool)
	for _, row := range results {
		for _, ts := range row {
			assert.False(t, seen[ts], "timestamp %v returned twice", ts)
			seen[ts] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}

func TestFrozenClock(t *testing.T) {
	clock := FrozenClock{T: Epoch}
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch, clock.Now())
}

func TestFixedRunIDGenerator(t *testing.T) {
	gen := NewFixedRunIDGenerator("test-run-123")
	assert.Equal(t, "test-run-123", gen.Generate())
	assert.Equal(t, "test-run-123", gen.Generate())

	assert.Equal(t, "test-run-default", NewFixedRunIDGenerator("").Generate())
}

func TestCountingReader_DistinctUUIDs(t *testing.T) {
	r := NewCountingReader(1)

	a, err := uuid.NewRandomFromReader(r)
	require.NoError(t, err)
	b, err := uuid.NewRandomFromReader(r)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, uuid.Version(4), a.Version())
}

func TestCountingReader_Reproducible(t *testing.T) {
	a, err := uuid.NewRandomFromReader(NewCountingReader(7))
	require.NoError(t, err)
	b, err := uuid.NewRandomFromReader(NewCountingReader(7))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRepeatReader_Collides(t *testing.T) {
	r := RepeatReader{B: 0x42}

	a, err := uuid.NewRandomFromReader(r)
	require.NoError(t, err)
	b, err := uuid.NewRandomFromReader(r)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

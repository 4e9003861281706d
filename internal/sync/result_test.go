package sync

import (
	"errors"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSummary(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{
			name: "clean",
			res:  Result{Created: 2, Skipped: 1},
			want: "created 2, updated 0, skipped 1, deleted 0",
		},
		{
			name: "one error",
			res:  Result{Updated: 1, Errors: []string{"event x: boom"}},
			want: "created 0, updated 1, skipped 0, deleted 0; 1 error: event x: boom",
		},
		{
			name: "several errors",
			res:  Result{Deleted: 3, Errors: []string{"first", "second"}},
			want: "created 0, updated 0, skipped 0, deleted 3; 2 errors (first: first)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Summary())
			assert.Equal(t, len(tt.res.Errors) > 0, tt.res.HasErrors())
		})
	}
}

func TestResultFailEvent(t *testing.T) {
	var r Result
	r.failEvent("evt-9", errors.New("disk full"))
	r.addError("listing: %s", "timeout")

	assert.Equal(t, []string{"event evt-9: disk full", "listing: timeout"}, r.Errors)
}

func TestConnLocks(t *testing.T) {
	l := NewConnLocks()

	unlockA, ok := l.TryLock("a")
	require.True(t, ok)
	assert.True(t, l.Held("a"))

	_, ok = l.TryLock("a")
	assert.False(t, ok)

	unlockB, ok := l.TryLock("b")
	require.True(t, ok)

	unlockA()
	unlockA()
	assert.False(t, l.Held("a"))
	assert.True(t, l.Held("b"))

	_, ok = l.TryLock("a")
	assert.True(t, ok)
	unlockB()
}

func TestConnLocks_Concurrent(t *testing.T) {
	l := NewConnLocks()

	const workers = 16
	var (
		wg      gosync.WaitGroup
		mu      gosync.Mutex
		unlocks []func()
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, ok := l.TryLock("conn")
			if !ok {
				return
			}
			mu.Lock()
			unlocks = append(unlocks, unlock)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, unlocks, 1)
	unlocks[0]()
	assert.False(t, l.Held("conn"))
}

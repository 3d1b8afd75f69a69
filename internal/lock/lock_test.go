package lock

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlockRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lock")
	l := New(path)
	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())
}

func TestTryLockFailsWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lock")

	holder := New(path)
	require.NoError(t, holder.Lock())
	defer holder.Unlock()

	done := make(chan bool, 1)
	go func() {
		other := New(path)
		ok, err := other.TryLock()
		assert.NoError(t, err)
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("TryLock did not return")
	}
}

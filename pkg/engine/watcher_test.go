package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriftWatcher_SuppressWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pooler.env")
	w, err := NewDriftWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	assert.False(t, w.suppressed())
	w.Suppress(time.Minute)
	assert.True(t, w.suppressed())

	w.Suppress(-time.Second)
	assert.False(t, w.suppressed())
}

func TestDriftWatcher_RunStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pooler.env")
	w, err := NewDriftWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

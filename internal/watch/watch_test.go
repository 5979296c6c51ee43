package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	w := &Watcher{
		Root:     root,
		SkipDir:  func(p string) bool { return filepath.Base(p) == "node_modules" },
		Match:    func(rel string) bool { return strings.HasSuffix(rel, ".py") },
		Debounce: 50 * time.Millisecond,
	}

	var calls atomic.Int32
	synced := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			calls.Add(1)
			synced <- struct{}{}
			return nil
		})
	}()

	// let the watcher register its directories
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "a.py"), []byte("x = 1\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("ignored"), 0o644))

	select {
	case <-synced:
	case <-time.After(3 * time.Second):
		t.Fatal("sync was not called")
	}
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherMissingRoot(t *testing.T) {
	w := &Watcher{Root: filepath.Join(t.TempDir(), "missing")}
	err := w.Run(context.Background(), func(context.Context) error { return nil })
	assert.Error(t, err)
}

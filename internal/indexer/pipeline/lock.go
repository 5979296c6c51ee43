package pipeline

import "sync/atomic"

// IndexLock is a non-blocking lock guarding one index or clear run at a time.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire reports whether the lock was taken.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release must only be called by the holder.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

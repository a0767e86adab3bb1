package coordinator

import (
	"sync"
	"time"
)

// FileLock is an advisory, time-limited exclusive claim on a file. It grants
// sole edit-broadcast rights until it is released or its TTL elapses. Locks
// deliberately survive the holder's disconnect: they model "checked out for
// editing", not "currently connected".
type FileLock struct {
	FileID     string    `json:"fileId"`
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// AcquireResult is the discriminated outcome of a lock acquisition. Expected
// conflicts are results, not errors.
type AcquireResult struct {
	OK     bool
	Lock   *FileLock // set on success
	Holder *FileLock // set when another user holds the lock
}

// LockManager owns the file lock table. Expired locks are reclaimed two
// ways: lazily whenever a lock is inspected, and by the background sweep so
// passive observers see the unlock within one sweep interval.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*FileLock
	ttl   time.Duration

	onExpire func(*FileLock)
	quit     chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

// NewLockManager creates a lock manager with the given TTL.
func NewLockManager(ttl time.Duration) *LockManager {
	return &LockManager{
		locks: make(map[string]*FileLock),
		ttl:   ttl,
		quit:  make(chan struct{}),
		now:   time.Now,
	}
}

// OnExpire registers the callback invoked for each lock the sweep evicts.
// Must be set before Run.
func (lm *LockManager) OnExpire(fn func(*FileLock)) {
	lm.onExpire = fn
}

// Acquire takes or refreshes the lock on fileID. Re-acquisition by the
// current holder refreshes the TTL window; a request while another user
// holds a live lock fails naming the holder.
func (lm *LockManager) Acquire(fileID, userID, username string) AcquireResult {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	if existing, ok := lm.locks[fileID]; ok && now.Before(existing.ExpiresAt) {
		if existing.UserID != userID {
			holder := *existing
			return AcquireResult{Holder: &holder}
		}
	}

	lock := &FileLock{
		FileID:     fileID,
		UserID:     userID,
		Username:   username,
		AcquiredAt: now,
		ExpiresAt:  now.Add(lm.ttl),
	}
	lm.locks[fileID] = lock

	granted := *lock
	return AcquireResult{OK: true, Lock: &granted}
}

// Release removes the lock on fileID if userID is the current holder.
// Returns false without side effect otherwise; there is no forced release
// through this path.
func (lm *LockManager) Release(fileID, userID string) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lock, ok := lm.locks[fileID]
	if !ok || lock.UserID != userID {
		return false
	}
	delete(lm.locks, fileID)
	return true
}

// Inspect returns the live lock on fileID, or nil. A stored lock whose TTL
// has already elapsed is deleted here rather than returned stale.
func (lm *LockManager) Inspect(fileID string) *FileLock {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lock, ok := lm.locks[fileID]
	if !ok {
		return nil
	}
	if !lm.now().Before(lock.ExpiresAt) {
		delete(lm.locks, fileID)
		return nil
	}

	live := *lock
	return &live
}

// Count returns the number of stored locks, expired entries included.
func (lm *LockManager) Count() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return len(lm.locks)
}

// Run sweeps expired locks on the given interval until Stop is called,
// invoking the OnExpire callback for each eviction.
func (lm *LockManager) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lm.sweep()
		case <-lm.quit:
			return
		}
	}
}

// Stop cancels the sweep loop. Safe to call more than once.
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.quit)
	})
}

// sweep evicts every expired lock. Callbacks run outside the table mutex so
// broadcast work cannot stall acquisitions.
func (lm *LockManager) sweep() {
	lm.mu.Lock()
	var expired []*FileLock
	now := lm.now()
	for fileID, lock := range lm.locks {
		if !now.Before(lock.ExpiresAt) {
			evicted := *lock
			expired = append(expired, &evicted)
			delete(lm.locks, fileID)
		}
	}
	lm.mu.Unlock()

	if lm.onExpire != nil {
		for _, lock := range expired {
			lm.onExpire(lock)
		}
	}
}

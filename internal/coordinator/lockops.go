package coordinator

import "fmt"

// LockFile acquires or refreshes the lock on fileID for userID. A grant is
// announced to the rest of the file room as a fileLocked event; a conflict
// comes back as a non-OK result naming the holder, never an error.
func (c *Coordinator) LockFile(userID, fileID string) (AcquireResult, error) {
	session := c.sessions.Lookup(userID)
	if session == nil {
		return AcquireResult{}, fmt.Errorf("no session for user %s: %w", userID, ErrNotFound)
	}

	result := c.locks.Acquire(fileID, userID, session.Username)
	if result.OK {
		c.log.Debug("User %s locked file %s until %s", userID, fileID, result.Lock.ExpiresAt)
		c.broadcastToFile(fileID, EventFileLocked, result.Lock, userID)
	}
	return result, nil
}

// UnlockFile releases the lock on fileID if userID holds it, announcing the
// release to the file room. Returns false when userID is not the holder.
func (c *Coordinator) UnlockFile(userID, fileID string) bool {
	if !c.locks.Release(fileID, userID) {
		return false
	}

	c.log.Debug("User %s unlocked file %s", userID, fileID)
	c.broadcastToFile(fileID, EventFileUnlocked, UnlockNotice{FileID: fileID, UserID: userID}, userID)
	return true
}

// GetFileLock returns the live lock on fileID, or nil when unlocked. Stale
// locks are reclaimed on the way out.
func (c *Coordinator) GetFileLock(fileID string) *FileLock {
	return c.locks.Inspect(fileID)
}

package coordinator

import (
	"fmt"
	"time"
)

// RelayEdit validates and rebroadcasts an edit to everyone else viewing the
// file. Edits require edit-level project access and an unheld (or self-held)
// lock; denials and conflicts go to the sender alone, never the room.
func (c *Coordinator) RelayEdit(userID string, ev EditEvent) error {
	if ev.FileID == "" || ev.ProjectID == "" {
		return fmt.Errorf("edit event missing fileId or projectId: %w", ErrInvalidEvent)
	}
	if c.sessions.Lookup(userID) == nil {
		return fmt.Errorf("no session for user %s: %w", userID, ErrNotFound)
	}

	ok, err := c.perms.CanEditProject(userID, ev.ProjectID)
	if err != nil {
		return fmt.Errorf("check edit access for project %s: %w", ev.ProjectID, err)
	}
	if !ok {
		c.sendToUser(userID, EventError, ScopedError{
			Scope:   "edit",
			Message: "you do not have edit access to this project",
		})
		return fmt.Errorf("user %s cannot edit project %s: %w", userID, ev.ProjectID, ErrPermissionDenied)
	}

	if lock := c.locks.Inspect(ev.FileID); lock != nil && lock.UserID != userID {
		conflict := &LockConflictError{FileID: ev.FileID, Holder: lock.Username}
		c.sendToUser(userID, EventError, ScopedError{
			Scope:   "edit",
			Message: conflict.Error(),
		})
		return conflict
	}

	c.broadcastToFile(ev.FileID, EventEdit, EditBroadcast{EditEvent: ev, UserID: userID}, userID)
	return nil
}

// RelayCursor rebroadcasts a cursor move to the file room. Cursor activity
// is read-level, so no permission or lock check applies.
func (c *Coordinator) RelayCursor(userID string, ev CursorEvent) error {
	if ev.FileID == "" {
		return fmt.Errorf("cursor event missing fileId: %w", ErrInvalidEvent)
	}

	c.broadcastToFile(ev.FileID, EventCursor, CursorBroadcast{CursorEvent: ev, UserID: userID}, userID)
	return nil
}

// RelayComment rebroadcasts a comment, enriched with the commenter's
// identity and a server timestamp. Room membership is the only requirement;
// the caller already opened the file to be here.
func (c *Coordinator) RelayComment(userID string, ev CommentEvent) error {
	if ev.FileID == "" {
		return fmt.Errorf("comment event missing fileId: %w", ErrInvalidEvent)
	}
	session := c.sessions.Lookup(userID)
	if session == nil {
		return fmt.Errorf("no session for user %s: %w", userID, ErrNotFound)
	}

	c.broadcastToFile(ev.FileID, EventComment, CommentBroadcast{
		CommentEvent: ev,
		UserID:       userID,
		Username:     session.Username,
		Avatar:       session.Avatar,
		Timestamp:    time.Now(),
	}, userID)
	return nil
}

// RelayFileChange rebroadcasts a create/rename/move/delete notification to
// the whole project room; recipients may not have the file open. Requires
// editor-level project access.
func (c *Coordinator) RelayFileChange(userID string, ev FileChangeEvent) error {
	if ev.ProjectID == "" || ev.Type == "" {
		return fmt.Errorf("file change event missing projectId or type: %w", ErrInvalidEvent)
	}

	ok, err := c.perms.CanEditProject(userID, ev.ProjectID)
	if err != nil {
		return fmt.Errorf("check edit access for project %s: %w", ev.ProjectID, err)
	}
	if !ok {
		c.sendToUser(userID, EventError, ScopedError{
			Scope:   "fileChange",
			Message: "you do not have edit access to this project",
		})
		return fmt.Errorf("user %s cannot edit project %s: %w", userID, ev.ProjectID, ErrPermissionDenied)
	}

	c.broadcastToProject(ev.ProjectID, EventFileChange, FileChangeBroadcast{FileChangeEvent: ev, UserID: userID}, userID)
	return nil
}

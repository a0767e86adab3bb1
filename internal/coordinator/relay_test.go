package coordinator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// joinAndOpen gets a user into project p1 and file f1.
func joinAndOpen(t *testing.T, c *Coordinator, userID string) {
	t.Helper()
	_, err := c.JoinProject(userID, "p1")
	require.NoError(t, err)
	_, err = c.OpenFile(userID, "p1", "f1")
	require.NoError(t, err)
}

func TestRelayEdit_BroadcastsToOthers(t *testing.T) {
	c, gateway, profiles := newTestCoordinator(time.Minute)

	aliceConn := connect(c, profiles, "alice", "Alice")
	bobConn := connect(c, profiles, "bob", "Bob")
	gateway.allowEdit("alice", "p1")
	gateway.allowEdit("bob", "p1")
	joinAndOpen(t, c, "alice")
	joinAndOpen(t, c, "bob")

	ev := EditEvent{
		FileID:    "f1",
		ProjectID: "p1",
		Range:     Range{Start: Position{Line: 3}, End: Position{Line: 3, Column: 5}},
		Text:      "hello",
	}
	require.NoError(t, c.RelayEdit("alice", ev))

	edits := bobConn.named(EventEdit)
	require.Len(t, edits, 1)
	broadcast := edits[0].payload.(EditBroadcast)
	assert.Equal(t, "alice", broadcast.UserID)
	assert.Equal(t, "hello", broadcast.Text)
	assert.Equal(t, 3, broadcast.Range.Start.Line)

	// The sender never hears their own edit back.
	assert.Empty(t, aliceConn.named(EventEdit))
}

func TestRelayEdit_PermissionDeniedReachesSenderOnly(t *testing.T) {
	c, gateway, profiles := newTestCoordinator(time.Minute)

	aliceConn := connect(c, profiles, "alice", "Alice")
	bobConn := connect(c, profiles, "bob", "Bob")
	gateway.allowRead("alice", "p1")
	gateway.allowEdit("bob", "p1")
	joinAndOpen(t, c, "alice")
	joinAndOpen(t, c, "bob")

	err := c.RelayEdit("alice", EditEvent{FileID: "f1", ProjectID: "p1", Text: "x"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.Len(t, aliceConn.named(EventError), 1)
	assert.Empty(t, bobConn.named(EventEdit))
	assert.Empty(t, bobConn.named(EventError))
}

func TestRelayEdit_LockedByOtherBlocksEdit(t *testing.T) {
	c, gateway, profiles := newTestCoordinator(30 * time.Minute)

	connect(c, profiles, "alice", "Alice")
	bobConn := connect(c, profiles, "bob", "Bob")
	gateway.allowEdit("alice", "p1")
	gateway.allowEdit("bob", "p1")
	joinAndOpen(t, c, "alice")
	joinAndOpen(t, c, "bob")

	result, err := c.LockFile("alice", "f1")
	require.NoError(t, err)
	require.True(t, result.OK)

	err = c.RelayEdit("bob", EditEvent{FileID: "f1", ProjectID: "p1", Text: "x"})
	assert.ErrorIs(t, err, ErrLockHeld)

	// Bob alone receives the conflict, naming the holder.
	errs := bobConn.named(EventError)
	require.Len(t, errs, 1)
	scoped := errs[0].payload.(ScopedError)
	assert.Contains(t, scoped.Message, "Alice")

	// No edit reached anyone.
	assert.Empty(t, bobConn.named(EventEdit))
}

func TestRelayEdit_HolderMayEdit(t *testing.T) {
	c, gateway, profiles := newTestCoordinator(30 * time.Minute)

	connect(c, profiles, "alice", "Alice")
	bobConn := connect(c, profiles, "bob", "Bob")
	gateway.allowEdit("alice", "p1")
	gateway.allowEdit("bob", "p1")
	joinAndOpen(t, c, "alice")
	joinAndOpen(t, c, "bob")

	result, err := c.LockFile("alice", "f1")
	require.NoError(t, err)
	require.True(t, result.OK)

	require.NoError(t, c.RelayEdit("alice", EditEvent{FileID: "f1", ProjectID: "p1", Text: "x"}))
	assert.Len(t, bobConn.named(EventEdit), 1)
}

func TestRelayEdit_GatewayFailureIsInternal(t *testing.T) {
	c, gateway, profiles := newTestCoordinator(time.Minute)

	connect(c, profiles, "alice", "Alice")
	gateway.allowEdit("alice", "p1")
	joinAndOpen(t, c, "alice")

	gateway.err = errors.New("directory unavailable")
	err := c.RelayEdit("alice", EditEvent{FileID: "f1", ProjectID: "p1", Text: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
	assert.NotErrorIs(t, err, ErrLockHeld)
}

func TestRelayCursor_NoChecks(t *testing.T) {
	c, gateway, profiles := newTestCoordinator(30 * time.Minute)

	connect(c, profiles, "alice", "Alice")
	bobConn := connect(c, profiles, "bob", "Bob")
	gateway.allowRead("alice", "p1")
	gateway.allowEdit("bob", "p1")
	joinAndOpen(t, c, "alice")
	joinAndOpen(t, c, "bob")

	// Bob holds the lock; cursor moves are read-level and pass anyway.
	result, err := c.LockFile("bob", "f1")
	require.NoError(t, err)
	require.True(t, result.OK)

	require.NoError(t, c.RelayCursor("alice", CursorEvent{
		FileID:   "f1",
		Position: Position{Line: 10, Column: 2},
	}))

	cursors := bobConn.named(EventCursor)
	require.Len(t, cursors, 1)
	broadcast := cursors[0].payload.(CursorBroadcast)
	assert.Equal(t, "alice", broadcast.UserID)
	assert.Equal(t, 10, broadcast.Position.Line)
}

func TestRelayComment_EnrichedWithIdentityAndTimestamp(t *testing.T) {
	c, gateway, profiles := newTestCoordinator(time.Minute)

	connect(c, profiles, "alice", "Alice")
	bobConn := connect(c, profiles, "bob", "Bob")
	gateway.allowRead("alice", "p1")
	gateway.allowRead("bob", "p1")
	joinAndOpen(t, c, "alice")
	joinAndOpen(t, c, "bob")

	before := time.Now()
	require.NoError(t, c.RelayComment("alice", CommentEvent{
		FileID:    "f1",
		ProjectID: "p1",
		Line:      7,
		Content:   "rename this",
	}))

	comments := bobConn.named(EventComment)
	require.Len(t, comments, 1)
	broadcast := comments[0].payload.(CommentBroadcast)
	assert.Equal(t, "alice", broadcast.UserID)
	assert.Equal(t, "Alice", broadcast.Username)
	assert.Equal(t, 7, broadcast.Line)
	assert.False(t, broadcast.Timestamp.Before(before))
}

func TestRelayFileChange_ProjectRoomScope(t *testing.T) {
	c, gateway, profiles := newTestCoordinator(time.Minute)

	connect(c, profiles, "alice", "Alice")
	bobConn := connect(c, profiles, "bob", "Bob")
	gateway.allowEdit("alice", "p1")
	gateway.allowRead("bob", "p1")

	_, err := c.JoinProject("alice", "p1")
	require.NoError(t, err)
	_, err = c.JoinProject("bob", "p1")
	require.NoError(t, err)
	// Bob does NOT have the file open; he must still hear about it.

	require.NoError(t, c.RelayFileChange("alice", FileChangeEvent{
		FileID:    "f9",
		ProjectID: "p1",
		Type:      "rename",
		Details:   "main.go -> app.go",
	}))

	changes := bobConn.named(EventFileChange)
	require.Len(t, changes, 1)
	broadcast := changes[0].payload.(FileChangeBroadcast)
	assert.Equal(t, "rename", broadcast.Type)
	assert.Equal(t, "alice", broadcast.UserID)
}

func TestRelayFileChange_RequiresEditorAccess(t *testing.T) {
	c, gateway, profiles := newTestCoordinator(time.Minute)

	bobConn := connect(c, profiles, "bob", "Bob")
	gateway.allowRead("bob", "p1")
	_, err := c.JoinProject("bob", "p1")
	require.NoError(t, err)

	err = c.RelayFileChange("bob", FileChangeEvent{FileID: "f1", ProjectID: "p1", Type: "delete"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	require.Len(t, bobConn.named(EventError), 1)
}

func TestRelay_RejectsMalformedEvents(t *testing.T) {
	c, _, profiles := newTestCoordinator(time.Minute)
	connect(c, profiles, "alice", "Alice")

	assert.Error(t, c.RelayEdit("alice", EditEvent{ProjectID: "p1"}))
	assert.Error(t, c.RelayEdit("alice", EditEvent{FileID: "f1"}))
	assert.Error(t, c.RelayCursor("alice", CursorEvent{}))
	assert.Error(t, c.RelayComment("alice", CommentEvent{}))
	assert.Error(t, c.RelayFileChange("alice", FileChangeEvent{ProjectID: "p1"}))
}

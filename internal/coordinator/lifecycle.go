package coordinator

import "fmt"

// OnConnect registers the session for an authenticated connection. No room
// joins happen implicitly; a reconnect replaces the prior session without
// closing its connection handle (the transport closed it already).
func (c *Coordinator) OnConnect(conn Conn, identity Profile) {
	c.sessions.Register(identity.UserID, conn, identity.Username, identity.Avatar)
	c.log.Debug("User %s connected", identity.UserID)
}

// JoinProject admits the user to the project room after a read-access check.
// On success the room learns the user is online, the joiner receives the
// current online-user snapshot as an onlineUsers event, and the snapshot is
// also returned for the caller's reply.
func (c *Coordinator) JoinProject(userID, projectID string) ([]OnlineUser, error) {
	session := c.sessions.Lookup(userID)
	if session == nil {
		return nil, fmt.Errorf("no session for user %s: %w", userID, ErrNotFound)
	}

	ok, err := c.perms.CanReadProject(userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("check read access for project %s: %w", projectID, err)
	}
	if !ok {
		return nil, fmt.Errorf("user %s cannot read project %s: %w", userID, projectID, ErrPermissionDenied)
	}

	c.projects.Join(projectID, userID)
	c.broadcastToProject(projectID, EventUserStatus, UserStatus{
		ProjectID: projectID,
		UserID:    userID,
		Username:  session.Username,
		Online:    true,
	}, userID)

	snapshot := c.OnlineUsersInProject(projectID)
	c.sendToUser(userID, EventOnlineUsers, ProjectPresence{ProjectID: projectID, Users: snapshot})

	c.log.Debug("User %s joined project %s", userID, projectID)
	return snapshot, nil
}

// LeaveProject closes every file the user has open under the project, then
// removes the project membership and announces the user offline.
func (c *Coordinator) LeaveProject(userID, projectID string) {
	session := c.sessions.Lookup(userID)
	username := userID
	if session != nil {
		username = session.Username
	}

	for _, fileID := range c.files.ScopesOf(userID) {
		if c.projectOfFile(fileID) == projectID {
			c.closeFile(userID, username, fileID)
		}
	}

	c.projects.Leave(projectID, userID)
	c.broadcastToProject(projectID, EventUserStatus, UserStatus{
		ProjectID: projectID,
		UserID:    userID,
		Username:  username,
		Online:    false,
	}, userID)

	c.log.Debug("User %s left project %s", userID, projectID)
}

// OpenFile admits the user to the file room. The user must already be in
// the parent project room.
func (c *Coordinator) OpenFile(userID, projectID, fileID string) ([]OnlineUser, error) {
	session := c.sessions.Lookup(userID)
	if session == nil {
		return nil, fmt.Errorf("no session for user %s: %w", userID, ErrNotFound)
	}
	if !c.projects.Contains(projectID, userID) {
		return nil, fmt.Errorf("user %s has not joined project %s: %w", userID, projectID, ErrPermissionDenied)
	}

	c.files.Join(fileID, userID)
	c.rememberFileProject(fileID, projectID)

	c.broadcastToFile(fileID, EventUserOpenedFile, FileActivity{
		FileID:   fileID,
		UserID:   userID,
		Username: session.Username,
	}, userID)

	snapshot := c.OnlineUsersInFile(fileID)
	c.sendToUser(userID, EventFileOnlineUsers, FilePresence{FileID: fileID, Users: snapshot})

	c.log.Debug("User %s opened file %s", userID, fileID)
	return snapshot, nil
}

// CloseFile removes the user from the file room. Idempotent.
func (c *Coordinator) CloseFile(userID, fileID string) {
	session := c.sessions.Lookup(userID)
	username := userID
	if session != nil {
		username = session.Username
	}
	c.closeFile(userID, username, fileID)
}

// OnDisconnect tears down all room memberships and the session, announcing
// file closes before offline presence. Locks held by this user are
// deliberately left in place; they expire by TTL or an explicit release
// after a reconnect.
func (c *Coordinator) OnDisconnect(userID string) {
	session := c.sessions.Lookup(userID)
	username := userID
	if session != nil {
		username = session.Username
	}

	for _, fileID := range c.files.LeaveAll(userID) {
		c.broadcastToFile(fileID, EventUserClosedFile, FileActivity{
			FileID:   fileID,
			UserID:   userID,
			Username: username,
		}, userID)
		c.pruneFileProject(fileID)
	}

	for _, projectID := range c.projects.LeaveAll(userID) {
		c.broadcastToProject(projectID, EventUserStatus, UserStatus{
			ProjectID: projectID,
			UserID:    userID,
			Username:  username,
			Online:    false,
		}, userID)
	}

	c.sessions.Unregister(userID)
	c.log.Debug("User %s disconnected", userID)
}

// OnConnClosed runs disconnect cleanup only when conn is still the user's
// registered connection. A stale handle closing after a reconnect must not
// tear down the replacement session.
func (c *Coordinator) OnConnClosed(userID string, conn Conn) {
	session := c.sessions.Lookup(userID)
	if session == nil || session.Conn != conn {
		return
	}
	c.OnDisconnect(userID)
}

func (c *Coordinator) closeFile(userID, username, fileID string) {
	c.files.Leave(fileID, userID)
	c.broadcastToFile(fileID, EventUserClosedFile, FileActivity{
		FileID:   fileID,
		UserID:   userID,
		Username: username,
	}, userID)
	c.pruneFileProject(fileID)
}

func (c *Coordinator) rememberFileProject(fileID, projectID string) {
	c.fpMu.Lock()
	defer c.fpMu.Unlock()
	c.fileProjects[fileID] = projectID
}

func (c *Coordinator) projectOfFile(fileID string) string {
	c.fpMu.Lock()
	defer c.fpMu.Unlock()
	return c.fileProjects[fileID]
}

func (c *Coordinator) pruneFileProject(fileID string) {
	if len(c.files.MembersOf(fileID)) > 0 {
		return
	}
	c.fpMu.Lock()
	defer c.fpMu.Unlock()
	delete(c.fileProjects, fileID)
}

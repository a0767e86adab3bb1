package coordinator

// OnlineUsersInProject returns a snapshot of the users currently in the
// project room. Users the profile directory does not know are omitted.
// Iteration order of the underlying set leaks through, so ordering is
// unspecified.
func (c *Coordinator) OnlineUsersInProject(projectID string) []OnlineUser {
	return c.presenceSnapshot(c.projects.MembersOf(projectID))
}

// OnlineUsersInFile returns a snapshot of the users currently viewing the
// file. Same shape and caveats as OnlineUsersInProject.
func (c *Coordinator) OnlineUsersInFile(fileID string) []OnlineUser {
	return c.presenceSnapshot(c.files.MembersOf(fileID))
}

func (c *Coordinator) presenceSnapshot(userIDs []string) []OnlineUser {
	users := make([]OnlineUser, 0, len(userIDs))
	for _, userID := range userIDs {
		profile, err := c.profiles.UserProfile(userID)
		if err != nil {
			// Unknown users are skipped, never surfaced as an error.
			continue
		}
		users = append(users, OnlineUser{
			UserID:   profile.UserID,
			Username: profile.Username,
			Avatar:   profile.Avatar,
			Online:   true,
		})
	}
	return users
}

// broadcastToProject sends the event to every connection in the project
// room, excluding excludeUserID when non-empty. Delivery is best-effort and
// non-blocking; members without a live session are skipped.
func (c *Coordinator) broadcastToProject(projectID, event string, payload interface{}, excludeUserID string) {
	c.fanOut(c.projects.MembersOf(projectID), event, payload, excludeUserID)
}

// broadcastToFile is broadcastToProject scoped to a file room.
func (c *Coordinator) broadcastToFile(fileID, event string, payload interface{}, excludeUserID string) {
	c.fanOut(c.files.MembersOf(fileID), event, payload, excludeUserID)
}

func (c *Coordinator) fanOut(userIDs []string, event string, payload interface{}, excludeUserID string) {
	for _, userID := range userIDs {
		if userID == excludeUserID {
			continue
		}
		session := c.sessions.Lookup(userID)
		if session == nil {
			// Disconnected mid-operation: no recipient, never retried.
			continue
		}
		session.Conn.Send(event, payload)
	}
}

// sendToUser delivers an event to a single user's connection, if any.
func (c *Coordinator) sendToUser(userID, event string, payload interface{}) {
	if session := c.sessions.Lookup(userID); session != nil {
		session.Conn.Send(event, payload)
	}
}

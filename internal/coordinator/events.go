package coordinator

import "time"

// Server-to-client event names
const (
	EventUserStatus      = "userStatus"
	EventOnlineUsers     = "onlineUsers"
	EventUserOpenedFile  = "userOpenedFile"
	EventUserClosedFile  = "userClosedFile"
	EventFileOnlineUsers = "fileOnlineUsers"
	EventEdit            = "edit"
	EventCursor          = "cursor"
	EventComment         = "comment"
	EventFileLocked      = "fileLocked"
	EventFileUnlocked    = "fileUnlocked"
	EventFileChange      = "fileChange"
	EventError           = "error"
)

// Position is a cursor location within a file.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a contiguous span within a file.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// EditEvent is an inbound edit operation. The coordinator relays the range
// and text verbatim; it never interprets or merges them.
type EditEvent struct {
	FileID    string `json:"fileId"`
	ProjectID string `json:"projectId"`
	Range     Range  `json:"range"`
	Text      string `json:"text"`
}

// CursorEvent is an inbound cursor move, optionally with a selection.
type CursorEvent struct {
	FileID    string   `json:"fileId"`
	Position  Position `json:"position"`
	Selection *Range   `json:"selection,omitempty"`
}

// CommentEvent is an inbound comment on a file line.
type CommentEvent struct {
	FileID    string `json:"fileId"`
	ProjectID string `json:"projectId"`
	Line      int    `json:"line"`
	Content   string `json:"content"`
}

// FileChangeEvent is an inbound create/rename/move/delete notification. It
// is broadcast to the whole project room since recipients may not have the
// file open.
type FileChangeEvent struct {
	FileID    string `json:"fileId"`
	ProjectID string `json:"projectId"`
	Type      string `json:"type"`
	Details   string `json:"details,omitempty"`
}

// OnlineUser is one entry in a presence snapshot.
type OnlineUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Online   bool   `json:"online"`
}

// UserStatus announces a user going online or offline in a project room.
type UserStatus struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Online    bool   `json:"online"`
}

// ProjectPresence carries the online-user snapshot for a project.
type ProjectPresence struct {
	ProjectID string       `json:"projectId"`
	Users     []OnlineUser `json:"users"`
}

// FilePresence carries the online-user snapshot for a file.
type FilePresence struct {
	FileID string       `json:"fileId"`
	Users  []OnlineUser `json:"users"`
}

// FileActivity announces a user opening or closing a file.
type FileActivity struct {
	FileID   string `json:"fileId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// EditBroadcast is the relayed form of an EditEvent, tagged with the acting
// user.
type EditBroadcast struct {
	EditEvent
	UserID string `json:"userId"`
}

// CursorBroadcast is the relayed form of a CursorEvent.
type CursorBroadcast struct {
	CursorEvent
	UserID string `json:"userId"`
}

// CommentBroadcast is the relayed form of a CommentEvent, enriched with the
// commenter's identity and a server timestamp.
type CommentBroadcast struct {
	CommentEvent
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FileChangeBroadcast is the relayed form of a FileChangeEvent.
type FileChangeBroadcast struct {
	FileChangeEvent
	UserID string `json:"userId"`
}

// UnlockNotice announces a lock clearing, whether by release or expiry.
type UnlockNotice struct {
	FileID string `json:"fileId"`
	UserID string `json:"userId"`
}

// ScopedError is sent to a single requester, never broadcast.
type ScopedError struct {
	Scope   string `json:"scope"`
	Message string `json:"message"`
}

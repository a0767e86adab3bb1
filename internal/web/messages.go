package web

import (
	"encoding/json"
)

// Client-to-server message types
const (
	MessageTypeJoinProject  = "joinProject"
	MessageTypeLeaveProject = "leaveProject"
	MessageTypeOpenFile     = "openFile"
	MessageTypeCloseFile    = "closeFile"
	MessageTypeEdit         = "edit"
	MessageTypeCursor       = "cursor"
	MessageTypeComment      = "comment"
	MessageTypeLockFile     = "lockFile"
	MessageTypeUnlockFile   = "unlockFile"
	MessageTypeGetFileLock  = "getFileLock"
	MessageTypeFileChange   = "fileChange"
)

// Request is an inbound client message. Payload stays raw until the type is
// known, then decodes into the matching typed event.
type Request struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Reply answers one Request, correlated by Seq.
type Reply struct {
	Type    string      `json:"type"`
	Seq     int64       `json:"seq,omitempty"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Event is a server-initiated message: a room broadcast or a scoped error.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// projectPayload accompanies joinProject and leaveProject. The userId field
// some clients send is accepted but ignored; the authenticated session
// identity always wins.
type projectPayload struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId,omitempty"`
}

// filePayload accompanies openFile, closeFile, lockFile, unlockFile and
// getFileLock.
type filePayload struct {
	ProjectID string `json:"projectId,omitempty"`
	FileID    string `json:"fileId"`
}

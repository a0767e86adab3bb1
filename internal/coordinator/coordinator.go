// Package coordinator implements the real-time collaboration core: it tracks
// which users are connected, which project and file rooms they occupy,
// derives presence from that membership, owns time-limited file locks, and
// relays edit/cursor/comment/file-change events to the right room. All state
// is process-local and in-memory; nothing survives a restart.
package coordinator

import (
	"errors"
	"sync"
	"time"

	"github.com/codefionn/collabd/internal/logger"
)

var (
	// ErrNotFound indicates a missing session, profile, project or lock.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied indicates the gateway refused the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrLockHeld indicates a file lock held by another user blocked the
	// operation.
	ErrLockHeld = errors.New("file is locked")

	// ErrInvalidEvent indicates an inbound event failed validation at the
	// relay boundary.
	ErrInvalidEvent = errors.New("invalid event")
)

// LockConflictError names the holder blocking an edit. It matches
// errors.Is(err, ErrLockHeld).
type LockConflictError struct {
	FileID string
	Holder string
}

func (e *LockConflictError) Error() string {
	return "file is locked by " + e.Holder
}

func (e *LockConflictError) Is(target error) bool {
	return target == ErrLockHeld
}

// Conn is the transport handle for a connected user. Send must never block;
// implementations queue into a bounded buffer and drop on overflow.
type Conn interface {
	Send(event string, payload interface{})
}

// Profile identifies a user for presence and comment enrichment.
type Profile struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// PermissionGateway answers project access questions. It is an external
// collaborator; the coordinator treats it as a black box.
type PermissionGateway interface {
	CanReadProject(userID, projectID string) (bool, error)
	CanEditProject(userID, projectID string) (bool, error)
}

// ProfileDirectory resolves display names and avatars. Unknown users yield
// ErrNotFound and are simply omitted from presence lists.
type ProfileDirectory interface {
	UserProfile(userID string) (Profile, error)
}

// Options configures a Coordinator.
type Options struct {
	// LockTTL is the lifetime of a file lock. Defaults to 30 minutes.
	LockTTL time.Duration

	// SweepInterval is how often expired locks are evicted and announced.
	// Defaults to 60 seconds.
	SweepInterval time.Duration

	Log *logger.Logger
}

// Coordinator wires the session registry, both room indices, the lock
// manager and the event relay together. Construct one per server instance;
// tests get isolation by constructing their own.
type Coordinator struct {
	sessions *SessionRegistry
	projects *RoomIndex
	files    *RoomIndex
	locks    *LockManager

	perms    PermissionGateway
	profiles ProfileDirectory
	log      *logger.Logger

	// fileProjects remembers which project each open file belongs to, so
	// leaving a project can close exactly the files opened under it. Entries
	// are pruned when the file room empties.
	fpMu         sync.Mutex
	fileProjects map[string]string

	sweepInterval time.Duration
}

// New creates a Coordinator. Start must be called before locks expire on
// their own; without it only lazy expiry runs.
func New(perms PermissionGateway, profiles ProfileDirectory, opts Options) *Coordinator {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 60 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logger.Global()
	}

	c := &Coordinator{
		sessions:      NewSessionRegistry(),
		projects:      NewRoomIndex(),
		files:         NewRoomIndex(),
		perms:         perms,
		profiles:      profiles,
		log:           opts.Log.WithPrefix("coordinator"),
		fileProjects:  make(map[string]string),
		sweepInterval: opts.SweepInterval,
	}

	c.locks = NewLockManager(opts.LockTTL)
	c.locks.OnExpire(func(lock *FileLock) {
		c.log.Info("Lock on file %s held by %s expired", lock.FileID, lock.Username)
		c.broadcastToFile(lock.FileID, EventFileUnlocked, UnlockNotice{
			FileID: lock.FileID,
			UserID: lock.UserID,
		}, "")
	})

	return c
}

// Start launches the background lock sweep.
func (c *Coordinator) Start() {
	go c.locks.Run(c.sweepInterval)
}

// Stop cancels the background sweep. Connections are torn down by the
// transport layer, not here.
func (c *Coordinator) Stop() {
	c.locks.Stop()
}

// Stats is a point-in-time view for the HTTP API.
type Stats struct {
	Sessions int `json:"sessions"`
	Projects int `json:"projects"`
	Files    int `json:"files"`
	Locks    int `json:"locks"`
}

// Snapshot returns current counters.
func (c *Coordinator) Snapshot() Stats {
	return Stats{
		Sessions: c.sessions.Count(),
		Projects: c.projects.ScopeCount(),
		Files:    c.files.ScopeCount(),
		Locks:    c.locks.Count(),
	}
}

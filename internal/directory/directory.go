// Package directory is the sqlite-backed source of truth for users,
// projects, files, memberships and auth tokens. The coordinator consumes it
// through its PermissionGateway and ProfileDirectory interfaces; everything
// here is request-scoped queries, no state is cached.
package directory

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codefionn/collabd/internal/coordinator"
)

// ErrNotFound indicates a missing user, project, file or token.
var ErrNotFound = errors.New("not found")

// Role is a user's standing within a project.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// Store wraps the sqlite database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (and if necessary creates) the directory database.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		avatar TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		FOREIGN KEY (owner_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS project_members (
		project_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'viewer',
		PRIMARY KEY (project_id, user_id),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS auth_tokens (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_project_members_user ON project_members(user_id);
	CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateUser inserts a user.
func (s *Store) CreateUser(id, username, avatar string) error {
	_, err := s.db.Exec(
		"INSERT INTO users (id, username, avatar) VALUES (?, ?, ?)",
		id, username, avatar)
	return err
}

// CreateProject inserts a project and grants its owner the owner role.
func (s *Store) CreateProject(id, name, ownerID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO projects (id, name, owner_id) VALUES (?, ?, ?)",
		id, name, ownerID); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)",
		id, ownerID, string(RoleOwner)); err != nil {
		return err
	}

	return tx.Commit()
}

// AddMember adds a user to a project, upgrading the role on conflict.
func (s *Store) AddMember(projectID, userID string, role Role) error {
	_, err := s.db.Exec(`
		INSERT INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT(project_id, user_id) DO UPDATE SET role = excluded.role`,
		projectID, userID, string(role))
	return err
}

// RemoveMember removes a user's membership.
func (s *Store) RemoveMember(projectID, userID string) error {
	_, err := s.db.Exec(
		"DELETE FROM project_members WHERE project_id = ? AND user_id = ?",
		projectID, userID)
	return err
}

// CreateFile inserts a file under a project.
func (s *Store) CreateFile(id, projectID, name string) error {
	_, err := s.db.Exec(
		"INSERT INTO files (id, project_id, name) VALUES (?, ?, ?)",
		id, projectID, name)
	return err
}

// CreateToken issues an auth token for a user.
func (s *Store) CreateToken(token, userID string) error {
	_, err := s.db.Exec(
		"INSERT INTO auth_tokens (token, user_id) VALUES (?, ?)",
		token, userID)
	return err
}

// DeleteToken revokes an auth token.
func (s *Store) DeleteToken(token string) error {
	_, err := s.db.Exec("DELETE FROM auth_tokens WHERE token = ?", token)
	return err
}

// CanReadProject reports whether the user has any membership in the project.
// Implements coordinator.PermissionGateway.
func (s *Store) CanReadProject(userID, projectID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM project_members WHERE project_id = ? AND user_id = ?",
		projectID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return n > 0, nil
}

// CanEditProject reports whether the user holds the editor or owner role.
// Implements coordinator.PermissionGateway.
func (s *Store) CanEditProject(userID, projectID string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM project_members
		WHERE project_id = ? AND user_id = ? AND role IN ('editor', 'owner')`,
		projectID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return n > 0, nil
}

// UserProfile resolves a user's display identity. Implements
// coordinator.ProfileDirectory.
func (s *Store) UserProfile(userID string) (coordinator.Profile, error) {
	var profile coordinator.Profile
	err := s.db.QueryRow(
		"SELECT id, username, avatar FROM users WHERE id = ?",
		userID).Scan(&profile.UserID, &profile.Username, &profile.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return coordinator.Profile{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return coordinator.Profile{}, fmt.Errorf("query user: %w", err)
	}
	return profile, nil
}

// ResolveToken maps an auth token to the profile it was issued for. This is
// the websocket upgrade's authentication handshake.
func (s *Store) ResolveToken(token string) (coordinator.Profile, error) {
	var profile coordinator.Profile
	err := s.db.QueryRow(`
		SELECT u.id, u.username, u.avatar
		FROM auth_tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token = ?`,
		token).Scan(&profile.UserID, &profile.Username, &profile.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return coordinator.Profile{}, fmt.Errorf("token: %w", ErrNotFound)
	}
	if err != nil {
		return coordinator.Profile{}, fmt.Errorf("query token: %w", err)
	}
	return profile, nil
}

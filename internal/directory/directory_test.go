package directory

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "directory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *Store) {
	t.Helper()
	require.NoError(t, store.CreateUser("alice", "Alice", "alice.png"))
	require.NoError(t, store.CreateUser("bob", "Bob", ""))
	require.NoError(t, store.CreateProject("p1", "Website", "alice"))
	require.NoError(t, store.CreateFile("f1", "p1", "index.html"))
}

func TestOpenCreatesSchema(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	// Reopen against the same file to prove the schema persists.
	store2, err := Open(store.dbPath)
	require.NoError(t, err)
	defer store2.Close()

	profile, err := store2.UserProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Username)
	assert.Equal(t, "alice.png", profile.Avatar)
}

func TestUserProfile_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.UserProfile("ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOwnerHasFullAccess(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	ok, err := store.CanReadProject("alice", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CanEditProject("alice", "p1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNonMemberHasNoAccess(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	ok, err := store.CanReadProject("bob", "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.CanEditProject("bob", "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestViewerCanReadNotEdit(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	require.NoError(t, store.AddMember("p1", "bob", RoleViewer))

	ok, err := store.CanReadProject("bob", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CanEditProject("bob", "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddMemberUpgradesRole(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	require.NoError(t, store.AddMember("p1", "bob", RoleViewer))
	require.NoError(t, store.AddMember("p1", "bob", RoleEditor))

	ok, err := store.CanEditProject("bob", "p1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveMemberRevokesAccess(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	require.NoError(t, store.AddMember("p1", "bob", RoleEditor))
	require.NoError(t, store.RemoveMember("p1", "bob"))

	ok, err := store.CanReadProject("bob", "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveToken(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	require.NoError(t, store.CreateToken("secret-token", "alice"))

	profile, err := store.ResolveToken("secret-token")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.UserID)
	assert.Equal(t, "Alice", profile.Username)

	_, err = store.ResolveToken("wrong")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.DeleteToken("secret-token"))
	_, err = store.ResolveToken("secret-token")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateProjectRequiresExistingOwner(t *testing.T) {
	store := openTestStore(t)

	err := store.CreateProject("p1", "Website", "nobody")
	assert.Error(t, err)
}

package prefs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/repoquiz/internal/api"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)
	return s
}

func TestOpen_MissingFileYieldsEmptyStore(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.Recent()
	assert.False(t, ok, "fresh store should have no recent cache")
	assert.Equal(t, defaultSidebarWidth, s.SidebarWidth())
}

func TestOpen_RejectsInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sidebar_width: 300\n"), 0644))

	_, err := Open(path)
	assert.Error(t, err, "world-readable prefs file should be rejected")
	assert.Contains(t, err.Error(), "insecure")
}

func TestRecent_RoundTripAndPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	recent := []api.RecentAnalysis{
		{ID: "a1", RepoURL: "https://github.com/acme/widget"},
		{ID: "a2", RepoURL: "https://github.com/acme/gadget"},
	}
	require.NoError(t, s.SetRecent(recent))

	got, ok := s.Recent()
	require.True(t, ok)
	assert.Equal(t, recent, got)

	// Reopen from disk.
	reopened, err := Open(path)
	require.NoError(t, err)
	got, ok = reopened.Recent()
	require.True(t, ok, "recent cache should survive reopen within the freshness window")
	assert.Len(t, got, 2)
}

func TestRecent_ExpiresAfterTTL(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetRecent([]api.RecentAnalysis{{ID: "a1"}}))

	s.now = func() time.Time { return time.Now().Add(RecentTTL + time.Second) }

	_, ok := s.Recent()
	assert.False(t, ok, "recent cache older than the freshness window should miss")
}

func TestSidebarWidth_Persisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.SetSidebarWidth(340))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 340, reopened.SidebarWidth())
}

func TestCredentials_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetCredentials("ghp_token", "sk_key"))

	repoToken, aiKey := s.Credentials()
	assert.Equal(t, "ghp_token", repoToken)
	assert.Equal(t, "sk_key", aiKey)
}

func TestClear_DropsEverything(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetRecent([]api.RecentAnalysis{{ID: "a1"}}))
	require.NoError(t, s.SetCredentials("tok", "key"))
	require.NoError(t, s.Clear())

	_, ok := s.Recent()
	assert.False(t, ok)
	repoToken, aiKey := s.Credentials()
	assert.Empty(t, repoToken)
	assert.Empty(t, aiKey)
}

func TestFileWrittenWithOwnerOnlyPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetSidebarWidth(300))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "prefs file holds credentials and must be 0600")
}

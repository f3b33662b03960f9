// Package prefs provides the small local preference store: the cached
// recent-analysis list, the sidebar width, and the caller's credentials.
//
// The store is an explicitly injected collaborator rather than ambient
// global state. Values are persisted to a single YAML file under the user
// config directory; concurrent writers are not expected and last-write-wins
// is the accepted policy.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/repoquiz/internal/api"
)

// RecentTTL is the freshness window for the cached recent-analysis list.
// Reads older than this report a miss and callers refetch.
const RecentTTL = 5 * time.Minute

const defaultSidebarWidth = 280

// fileData is the on-disk layout. No schema versioning: values are simple
// scalars and lists.
type fileData struct {
	Recent       []api.RecentAnalysis `yaml:"recent,omitempty"`
	RecentAt     time.Time            `yaml:"recent_at,omitempty"`
	SidebarWidth int                  `yaml:"sidebar_width,omitempty"`
	RepoToken    string               `yaml:"repo_token,omitempty"`
	AIKey        string               `yaml:"ai_key,omitempty"`
}

// Store is a thread-safe preference store backed by a YAML file.
type Store struct {
	mu   sync.RWMutex
	path string
	data fileData

	// now is replaceable in tests to exercise the freshness window.
	now func() time.Time
}

// DefaultPath returns the standard store location,
// ~/.config/repoquiz/prefs.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "repoquiz", "prefs.yaml"), nil
}

// Open loads the store at path, creating the parent directory if needed.
// A missing file yields an empty store. An existing file must have 0600 or
// 0400 permissions; credentials live here.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create prefs directory: %w", err)
	}

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prefs file: %w", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat prefs file: %w", err)
		}
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return nil, fmt.Errorf("insecure prefs file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if err := yaml.Unmarshal(content, &s.data); err != nil {
		return nil, fmt.Errorf("failed to parse prefs file %s: %w", path, err)
	}
	return s, nil
}

// Recent returns the cached recent-analysis list. ok is false when the
// cache is empty or older than RecentTTL.
func (s *Store) Recent() ([]api.RecentAnalysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data.Recent) == 0 || s.data.RecentAt.IsZero() {
		return nil, false
	}
	if s.now().Sub(s.data.RecentAt) > RecentTTL {
		return nil, false
	}
	out := make([]api.RecentAnalysis, len(s.data.Recent))
	copy(out, s.data.Recent)
	return out, true
}

// SetRecent replaces the cached recent-analysis list and restarts the
// freshness window.
func (s *Store) SetRecent(recent []api.RecentAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Recent = make([]api.RecentAnalysis, len(recent))
	copy(s.data.Recent, recent)
	s.data.RecentAt = s.now()
	return s.save()
}

// SidebarWidth returns the persisted sidebar width, or the default.
func (s *Store) SidebarWidth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data.SidebarWidth <= 0 {
		return defaultSidebarWidth
	}
	return s.data.SidebarWidth
}

// SetSidebarWidth persists the sidebar width.
func (s *Store) SetSidebarWidth(width int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.SidebarWidth = width
	return s.save()
}

// Credentials implements api.CredentialSource.
func (s *Store) Credentials() (repoToken, aiKey string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.RepoToken, s.data.AIKey
}

// SetCredentials persists the repository-access token and AI-provider key.
func (s *Store) SetCredentials(repoToken, aiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.RepoToken = repoToken
	s.data.AIKey = aiKey
	return s.save()
}

// Clear drops all stored values and rewrites the file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = fileData{}
	return s.save()
}

// save writes the current data. Caller must hold the write lock.
func (s *Store) save() error {
	content, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}
	if err := os.WriteFile(s.path, content, 0600); err != nil {
		return fmt.Errorf("failed to write prefs file: %w", err)
	}
	return nil
}

var _ api.CredentialSource = (*Store)(nil)

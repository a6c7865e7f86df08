package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
)

// ErrNoSession is returned when nothing has been persisted yet.
var ErrNoSession = errors.New("no stored session")

// Store persists the bearer token between runs.
type Store struct {
	path     string
	verifier *Verifier
}

type storedSession struct {
	AccessToken string `json:"access_token"`
}

// NewStore creates a store backed by the file at path. When verifier is not
// nil loaded tokens are verified, otherwise they are only decoded.
func NewStore(path string, verifier *Verifier) *Store {
	return &Store{path: path, verifier: verifier}
}

// DefaultPath returns the per-user location of the session file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "taskboard", "session.json"), nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Load reads the stored token and turns it into a Session.
func (s *Store) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var stored storedSession
	if err := sonic.Unmarshal(data, &stored); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if stored.AccessToken == "" {
		return Session{}, ErrNoSession
	}
	if s.verifier != nil {
		return s.verifier.Verify(stored.AccessToken)
	}
	return FromToken(stored.AccessToken)
}

// Save writes the token of sess, readable by the current user only.
func (s *Store) Save(sess Session) error {
	if sess.Token == "" {
		return errors.New("session has no token")
	}
	data, err := sonic.Marshal(storedSession{AccessToken: sess.Token})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Clear forgets the stored token. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

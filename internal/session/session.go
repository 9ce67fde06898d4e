package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"storefront-checkout/internal/domain"

	"gopkg.in/yaml.v3"
)

// Store holds the authenticated identity and its bearer token.
type Store struct {
	mu      sync.Mutex
	user    *domain.User
	token   string
	hooks   []func()
	path    string
	persist bool
}

func NewStore() *Store {
	return &Store{}
}

type fileState struct {
	Token string       `yaml:"token"`
	User  *domain.User `yaml:"user"`
}

// LoadFile restores a session saved by SaveFile. A missing file yields an empty store
// that saves to path.
func LoadFile(path string) (*Store, error) {
	s := &Store{path: path, persist: true}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var st fileState
	if err := yaml.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	if st.Token != "" && st.User != nil {
		s.user = st.User
		s.token = st.Token
	}
	return s, nil
}

// SaveFile writes the session to the file it was loaded from. An ended session removes it.
func (s *Store) SaveFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if !s.persist {
		return nil
	}
	if s.user == nil {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	raw, err := yaml.Marshal(fileState{Token: s.token, User: s.user})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

// Current returns a copy of the authenticated user.
func (s *Store) Current() (*domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, false
	}
	u := *s.user
	return &u, true
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.token != ""
}

func (s *Store) Start(u domain.User, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
	s.token = token
	return s.saveLocked()
}

// Logout ends the session. It reports whether a live session was ended; hooks run only then.
func (s *Store) Logout() bool {
	s.mu.Lock()
	if s.user == nil && s.token == "" {
		s.mu.Unlock()
		return false
	}
	s.user = nil
	s.token = ""
	_ = s.saveLocked()
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		h()
	}
	return true
}

// OnLogout registers fn to run after every session termination.
func (s *Store) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

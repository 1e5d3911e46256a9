package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/mzalendo/daftari/core"
)

// Profile is the display-only slice of the account record cached next to the
// token. Authorization decisions reduce to a role equality check; everything
// else is for rendering.
type Profile struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (p Profile) IsAdmin() bool { return p.Role == "admin" }

// Label returns the name shown in the user menu.
func (p Profile) Label() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Username
}

// Credential is the cached session state: the token the server handed out on
// login and the profile that came with it. It carries no expiry of its own;
// staleness is the server's call.
type Credential struct {
	Token string
	User  Profile
}

// Store persists the current session's Credential across process restarts.
type Store interface {
	// Get returns the stored credential; ok is false when no token is stored.
	Get() (cred Credential, ok bool)
	Set(cred Credential) error
	Clear() error
}

// fileStore keeps two string slots ("token" and the serialized "user") in a
// JSON file under the state directory.
type fileStore struct {
	path   string
	logger core.Logger
	mutex  sync.Mutex
}

var _ Store = (*fileStore)(nil)

const storeFileMode = 0o600

type storeSlots struct {
	Token string `json:"token,omitempty"`
	User  string `json:"user,omitempty"`
}

func NewFileStore(dir string, logger core.Logger) (Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "creating state directory")
	}
	return &fileStore{
		path:   filepath.Join(dir, "session.json"),
		logger: logger,
	}, nil
}

func (s *fileStore) Get() (Credential, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	slots, err := s.read()
	if err != nil {
		s.logger.Warn("reading session state", err)
		return Credential{}, false
	}
	if slots.Token == "" {
		return Credential{}, false
	}

	cred := Credential{Token: slots.Token}
	if slots.User != "" {
		// a malformed user record means no user, never a crash; the token
		// itself is still good
		if err := json.Unmarshal([]byte(slots.User), &cred.User); err != nil {
			s.logger.Warn("discarding malformed user record", err)
			cred.User = Profile{}
		}
	}
	return cred, true
}

func (s *fileStore) Set(cred Credential) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	usr, err := json.Marshal(cred.User)
	if err != nil {
		return errors.Wrap(err, "serializing user record")
	}
	return s.write(storeSlots{Token: cred.Token, User: string(usr)})
}

func (s *fileStore) Clear() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clearing session state")
	}
	return nil
}

func (s *fileStore) read() (storeSlots, error) {
	var slots storeSlots

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return slots, nil
		}
		return slots, err
	}
	if err := json.Unmarshal(data, &slots); err != nil {
		return storeSlots{}, err
	}
	return slots, nil
}

func (s *fileStore) write(slots storeSlots) error {
	data, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, storeFileMode)
}

// memStore is the in-memory Store used in tests.
type memStore struct {
	cred  *Credential
	mutex sync.Mutex
}

var _ Store = (*memStore)(nil)

func NewMemStore() Store {
	return new(memStore)
}

func (s *memStore) Get() (Credential, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cred == nil || s.cred.Token == "" {
		return Credential{}, false
	}
	return *s.cred, true
}

func (s *memStore) Set(cred Credential) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cred = &cred
	return nil
}

func (s *memStore) Clear() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cred = nil
	return nil
}

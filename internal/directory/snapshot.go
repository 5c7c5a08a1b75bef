package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/opendirs/dirauth/password"
)

// Snapshot schema versions. Version 1 is the historical two-index layout
// ("byid"/"bylogin"); version 2 is the current "data"/"logins"/"groups"
// layout. Version 1 is migrated exactly once, at load time.
const (
	snapshotVersion1 = 1
	snapshotVersion2 = 2
)

// ErrSnapshotVersion indicates a snapshot with an unsupported version tag.
var ErrSnapshotVersion = errors.New("unsupported directory snapshot version")

type userSnapshot struct {
	Login    string   `json:"login"`
	Salt     string   `json:"salt,omitempty"`
	Password string   `json:"password"`
	Groups   []string `json:"groups,omitempty"`
}

type legacyUserInfo struct {
	ID       string   `json:"id"`
	Login    string   `json:"login"`
	Salt     string   `json:"salt,omitempty"`
	Password string   `json:"password"`
	Groups   []string `json:"groups,omitempty"`
}

type snapshotFile struct {
	Version int `json:"version"`

	// Version 2 layout.
	Data   map[string]userSnapshot `json:"data,omitempty"`
	Logins map[string]string       `json:"logins,omitempty"`
	Groups map[string][]string     `json:"groups,omitempty"`

	// Version 1 layout.
	ByID    map[string]legacyUserInfo `json:"byid,omitempty"`
	ByLogin map[string]legacyUserInfo `json:"bylogin,omitempty"`
}

// Save writes the directory as a version-2 snapshot. The reverse indexes
// are written alongside the records so a snapshot is self-describing; Load
// rebuilds them from the records regardless.
func (s *Store) Save(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file := snapshotFile{
		Version: snapshotVersion2,
		Data:    make(map[string]userSnapshot, len(s.users)),
		Logins:  make(map[string]string, len(s.logins)),
		Groups:  make(map[string][]string, len(s.groups)),
	}

	for userID, e := range s.users {
		groups := make([]string, 0, len(e.groups))
		for g := range e.groups {
			groups = append(groups, g)
		}
		sort.Strings(groups)

		e.credMu.Lock()
		cred := e.cred
		e.credMu.Unlock()

		file.Data[userID] = userSnapshot{
			Login:    e.login,
			Salt:     cred.Salt,
			Password: cred.Hash,
			Groups:   groups,
		}
	}
	for login, userID := range s.logins {
		file.Logins[login] = userID
	}
	for group, members := range s.groups {
		ids := make([]string, 0, len(members))
		for userID := range members {
			ids = append(ids, userID)
		}
		sort.Strings(ids)
		file.Groups[group] = ids
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(file)
}

// Load reads a snapshot and returns a directory backed by hasher.
// A version-1 snapshot is migrated to the current layout as it is read;
// the migration happens here, once, not lazily inside other operations.
func Load(r io.Reader, hasher *password.Hasher) (*Store, error) {
	var file snapshotFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode directory snapshot: %w", err)
	}

	// Version 1 files predate the version tag.
	if file.Version == 0 && (file.ByLogin != nil || file.ByID != nil) {
		file.Version = snapshotVersion1
	}

	switch file.Version {
	case snapshotVersion1:
		return loadV1(file, hasher)
	case snapshotVersion2:
		return loadV2(file, hasher)
	default:
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, file.Version)
	}
}

func loadV2(file snapshotFile, hasher *password.Hasher) (*Store, error) {
	s := New(hasher)

	for userID, u := range file.Data {
		if err := s.insertLoaded(userID, u.Login, u.Salt, u.Password, u.Groups); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func loadV1(file snapshotFile, hasher *password.Hasher) (*Store, error) {
	s := New(hasher)

	// The old layout kept the authoritative record under the login index.
	for login, info := range file.ByLogin {
		if info.Login == "" {
			info.Login = login
		}
		if err := s.insertLoaded(info.ID, info.Login, info.Salt, info.Password, info.Groups); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// insertLoaded inserts an already-hashed record, rebuilding the reverse
// indexes. Only used at load time, before the store is shared.
func (s *Store) insertLoaded(userID, login, salt, hash string, groups []string) error {
	login = Normalize(login)

	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == "" {
		return errors.New("directory snapshot record missing user id")
	}
	if _, ok := s.users[userID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateUserID, userID)
	}
	if _, ok := s.logins[login]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateLogin, login)
	}

	memberOf := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		memberOf[Normalize(g)] = struct{}{}
	}

	s.users[userID] = &entry{
		userID: userID,
		login:  login,
		groups: memberOf,
		cred:   password.StoredHash{Hash: hash, Salt: salt},
	}
	s.logins[login] = userID
	for g := range memberOf {
		members, ok := s.groups[g]
		if !ok {
			members = make(map[string]struct{})
			s.groups[g] = members
		}
		members[userID] = struct{}{}
	}

	return nil
}

package directory

import (
	"errors"
	"sort"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/opendirs/dirauth/password"
)

var (
	// ErrDuplicateUserID indicates an Add with an existing user id.
	ErrDuplicateUserID = errors.New("user id already exists")
	// ErrDuplicateLogin indicates an Add or ChangeLogin with a taken login.
	ErrDuplicateLogin = errors.New("login already exists")
	// ErrUserNotFound indicates a lookup that resolved to no record.
	ErrUserNotFound = errors.New("user not found")
	// ErrAmbiguousLookup indicates a Selector with both or neither field set.
	ErrAmbiguousLookup = errors.New("exactly one of user id or login must be supplied")
)

// Record is a point-in-time copy of a directory entry. Mutating it has no
// effect on the store.
type Record struct {
	UserID   string
	Login    string
	Password password.StoredHash
	Groups   []string
}

// Selector picks a record by user id or by login, never both.
type Selector struct {
	UserID string
	Login  string
}

// ByUserID returns a Selector for the given user id.
func ByUserID(userID string) Selector { return Selector{UserID: userID} }

// ByLogin returns a Selector for the given login.
func ByLogin(login string) Selector { return Selector{Login: login} }

type entry struct {
	userID string
	login  string
	groups map[string]struct{}

	// credMu serializes credential rewrites against migration-on-read.
	credMu sync.Mutex
	cred   password.StoredHash
}

// Store is the directory. The zero value is not usable; construct with New
// or Load.
type Store struct {
	hasher *password.Hasher

	mu     sync.RWMutex
	users  map[string]*entry
	logins map[string]string
	groups map[string]map[string]struct{}
}

// New returns an empty directory backed by the given hasher.
func New(hasher *password.Hasher) *Store {
	return &Store{
		hasher: hasher,
		users:  make(map[string]*entry),
		logins: make(map[string]string),
		groups: make(map[string]map[string]struct{}),
	}
}

// Normalize returns the canonical form of a login or group name: NFC,
// case preserved.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Add creates a record with a freshly salted current-format hash and
// inserts forward and reverse indexes as one unit. Duplicate ids or
// logins leave the store untouched.
func (s *Store) Add(userID, login, cleartext string, groups []string) error {
	cred, err := s.hasher.Hash(cleartext)
	if err != nil {
		return err
	}

	login = Normalize(login)
	memberOf := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		memberOf[Normalize(g)] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; ok {
		return ErrDuplicateUserID
	}
	if _, ok := s.logins[login]; ok {
		return ErrDuplicateLogin
	}

	s.users[userID] = &entry{
		userID: userID,
		login:  login,
		groups: memberOf,
		cred:   cred,
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

// Get resolves sel to a record copy.
func (s *Store) Get(sel Selector) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.resolve(sel)
	if err != nil {
		return Record{}, err
	}
	return s.snapshotEntry(e), nil
}

// Remove deletes the record and every index entry pointing at it.
func (s *Store) Remove(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	delete(s.logins, e.login)
	for g := range e.groups {
		if members, ok := s.groups[g]; ok {
			delete(members, userID)
		}
	}
	delete(s.users, userID)

	return nil
}

// ChangePassword re-derives the stored hash. An existing salt is kept; a
// record without one (a never-upgraded legacy entry) gets a fresh salt.
// Login and group membership are untouched.
func (s *Store) ChangePassword(userID, newPassword string) error {
	s.mu.RLock()
	e, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return ErrUserNotFound
	}

	e.credMu.Lock()
	defer e.credMu.Unlock()

	if e.cred.Salt == "" {
		cred, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		e.cred = cred
		return nil
	}

	e.cred = s.hasher.Rehash(newPassword, e.cred.Salt)
	return nil
}

// ChangeLogin moves the login index entry to newLogin. A no-op when the
// normalized login is unchanged; fails when the new login is taken.
func (s *Store) ChangeLogin(userID, newLogin string) error {
	newLogin = Normalize(newLogin)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if e.login == newLogin {
		return nil
	}
	if _, taken := s.logins[newLogin]; taken {
		return ErrDuplicateLogin
	}

	delete(s.logins, e.login)
	s.logins[newLogin] = userID
	e.login = newLogin

	return nil
}

// AddToGroup records membership in both the record and the group index.
func (s *Store) AddToGroup(userID, group string) error {
	group = Normalize(group)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	e.groups[group] = struct{}{}
	members, ok := s.groups[group]
	if !ok {
		members = make(map[string]struct{})
		s.groups[group] = members
	}
	members[userID] = struct{}{}

	return nil
}

// RemoveFromGroup removes membership from both sides. Absent membership
// is a no-op, not an error.
func (s *Store) RemoveFromGroup(userID, group string) error {
	group = Normalize(group)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	delete(e.groups, group)
	if members, ok := s.groups[group]; ok {
		delete(members, userID)
	}

	return nil
}

// DeleteGroup drops the group index entry and strips the group from every
// member's record in the same critical section.
func (s *Store) DeleteGroup(group string) {
	group = Normalize(group)

	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.groups[group]
	if !ok {
		return
	}
	delete(s.groups, group)
	for userID := range members {
		if e, ok := s.users[userID]; ok {
			delete(e.groups, group)
		}
	}
}

// MembersOf returns the sorted member ids of group; an unknown group
// yields an empty slice.
func (s *Store) MembersOf(group string) []string {
	group = Normalize(group)

	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.groups[group]
	out := make([]string, 0, len(members))
	for userID := range members {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}

// CheckPassword verifies the password for the record sel resolves to.
// A stored legacy hash that verifies is upgraded to the current format in
// place before returning (migration-on-read). Wrong passwords return
// false; only a missing record is an error.
func (s *Store) CheckPassword(cleartext string, sel Selector) (bool, error) {
	ok, _, err := s.CheckPasswordUpgraded(cleartext, sel)
	return ok, err
}

// CheckPasswordUpgraded is CheckPassword plus a flag reporting whether the
// call upgraded a legacy hash.
func (s *Store) CheckPasswordUpgraded(cleartext string, sel Selector) (ok, upgraded bool, err error) {
	s.mu.RLock()
	e, err := s.resolve(sel)
	s.mu.RUnlock()
	if err != nil {
		return false, false, err
	}

	// Held across derivation: serializes against ChangePassword and
	// concurrent upgrades of the same record.
	e.credMu.Lock()
	defer e.credMu.Unlock()

	match, replacement, err := s.hasher.VerifyAndMaybeUpgrade(e.cred, cleartext)
	if err != nil {
		return false, false, err
	}
	if match && replacement != nil {
		e.cred = *replacement
		return true, true, nil
	}
	return match, false, nil
}

// resolve maps sel to a live entry. Callers must hold s.mu.
func (s *Store) resolve(sel Selector) (*entry, error) {
	hasID := sel.UserID != ""
	hasLogin := sel.Login != ""
	if hasID == hasLogin {
		return nil, ErrAmbiguousLookup
	}

	userID := sel.UserID
	if hasLogin {
		var ok bool
		userID, ok = s.logins[Normalize(sel.Login)]
		if !ok {
			return nil, ErrUserNotFound
		}
	}

	e, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return e, nil
}

// snapshotEntry copies an entry. Callers must hold s.mu at least for read.
func (s *Store) snapshotEntry(e *entry) Record {
	groups := make([]string, 0, len(e.groups))
	for g := range e.groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	e.credMu.Lock()
	cred := e.cred
	e.credMu.Unlock()

	return Record{
		UserID:   e.userID,
		Login:    e.login,
		Password: cred,
		Groups:   groups,
	}
}

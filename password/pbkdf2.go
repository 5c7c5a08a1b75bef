package password

import (
	"crypto/sha1"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/opendirs/dirauth/internal"
)

const (
	currentPrefix = "pbkdf2:"
	legacyPrefix  = "SHA1:"

	keyLength = 64 // SHA-512 digest size
)

var (
	// ErrUnknownScheme indicates a stored hash with an unrecognized prefix.
	ErrUnknownScheme = errors.New("unknown password hash scheme")
	// ErrMissingSalt indicates a current-format hash stored without a salt.
	ErrMissingSalt = errors.New("stored hash has no salt")
)

// Config holds hashing parameters.
//
// Rounds defaults to 64 for compatibility with existing stored hashes.
// The value is deliberately configurable rather than silently raised;
// raising it invalidates nothing (old hashes verify with their own salt
// and are re-derived at the configured cost on the next password change).
type Config struct {
	Rounds     int
	SaltLength int
}

// DefaultConfig returns the compatibility parameters.
func DefaultConfig() Config {
	return Config{
		Rounds:     64,
		SaltLength: internal.DefaultSaltLength,
	}
}

// StoredHash is a stored credential: a prefixed digest plus the salt it
// was derived with. Legacy entries carry an empty salt.
type StoredHash struct {
	Hash string
	Salt string
}

// IsLegacy reports whether the stored hash uses the verify-only SHA-1 format.
func (s StoredHash) IsLegacy() bool {
	return strings.HasPrefix(s.Hash, legacyPrefix)
}

// Hasher derives and verifies stored hashes.
type Hasher struct {
	config Config
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.Rounds < 1 {
		return nil, errors.New("password rounds must be >= 1")
	}
	if cfg.SaltLength < 8 {
		return nil, errors.New("password salt length must be >= 8")
	}
	return &Hasher{config: cfg}, nil
}

// Rounds returns the configured PBKDF2 round count.
func (h *Hasher) Rounds() int {
	return h.config.Rounds
}

// Hash derives a current-format hash with a fresh salt.
func (h *Hasher) Hash(password string) (StoredHash, error) {
	salt, err := internal.NewSalt(h.config.SaltLength)
	if err != nil {
		return StoredHash{}, err
	}
	return StoredHash{
		Hash: h.derive(password, salt),
		Salt: salt,
	}, nil
}

// Rehash derives a current-format hash for an existing salt. Used by
// callers that must keep the salt stable across a password change.
func (h *Hasher) Rehash(password, salt string) StoredHash {
	return StoredHash{
		Hash: h.derive(password, salt),
		Salt: salt,
	}
}

// VerifyAndMaybeUpgrade checks password against stored. On a successful
// legacy verification it also returns a current-format replacement hash
// with a fresh salt; the caller decides whether and when to persist it.
// Wrong passwords return (false, nil, nil), never an error.
func (h *Hasher) VerifyAndMaybeUpgrade(stored StoredHash, password string) (bool, *StoredHash, error) {
	switch {
	case stored.IsLegacy():
		if !stringsSame(stored.Hash, LegacyHash(password)) {
			return false, nil, nil
		}
		upgraded, err := h.Hash(password)
		if err != nil {
			return false, nil, err
		}
		return true, &upgraded, nil

	case strings.HasPrefix(stored.Hash, currentPrefix):
		if stored.Salt == "" {
			return false, nil, ErrMissingSalt
		}
		return stringsSame(stored.Hash, h.derive(password, stored.Salt)), nil, nil

	default:
		return false, nil, ErrUnknownScheme
	}
}

// LegacyHash returns the verify-only legacy encoding of password.
// Exported for fixtures and import tooling; never use it for new hashes.
func LegacyHash(password string) string {
	sum := sha1.Sum([]byte(password))
	return legacyPrefix + hex.EncodeToString(sum[:])
}

func (h *Hasher) derive(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), h.config.Rounds, keyLength, sha512.New)
	return currentPrefix + hex.EncodeToString(key)
}

// stringsSame compares two strings in time independent of where they
// first differ. Length is checked first: unequal lengths return false
// immediately without revealing a differing position.
func stringsSame(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

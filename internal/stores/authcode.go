package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const authCodeRecordVersion1 = 1

var (
	// ErrAuthCodeNotFound indicates no live code for the user.
	ErrAuthCodeNotFound = errors.New("auth code not found")
	// ErrAuthCodeBackend indicates the code store backend is unreachable.
	ErrAuthCodeBackend = errors.New("auth code backend unavailable")
)

// AuthCode is the single live two-factor code for a user. Issuing a new
// code overwrites the previous record; records are superseded, never
// explicitly deleted.
type AuthCode struct {
	Code     string
	IssuedAt int64 // unix seconds
}

// AuthCodeStore keeps one AuthCode per user id in Redis.
type AuthCodeStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewAuthCodeStore creates an AuthCodeStore with the given key prefix
// (default "tfc").
func NewAuthCodeStore(redisClient redis.UniversalClient, prefix string) *AuthCodeStore {
	if prefix == "" {
		prefix = "tfc"
	}
	return &AuthCodeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *AuthCodeStore) key(userID string) string {
	return s.prefix + ":" + userID
}

// Save stores the code, replacing any prior one for the user.
func (s *AuthCodeStore) Save(ctx context.Context, userID string, record *AuthCode, ttl time.Duration) error {
	encoded, err := encodeAuthCode(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(userID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthCodeBackend, err)
	}
	return nil
}

// Get returns the live code for the user, or ErrAuthCodeNotFound.
func (s *AuthCodeStore) Get(ctx context.Context, userID string) (*AuthCode, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAuthCodeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthCodeBackend, err)
	}
	return decodeAuthCode(data)
}

func encodeAuthCode(record *AuthCode) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(authCodeRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if len(record.Code) > 255 {
		return nil, errors.New("auth code length exceeded")
	}
	buf.WriteByte(byte(len(record.Code)))
	buf.WriteString(record.Code)

	return buf.Bytes(), nil
}

func decodeAuthCode(data []byte) (*AuthCode, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != authCodeRecordVersion1 {
		return nil, errors.New("invalid auth code record version")
	}

	record := &AuthCode{}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}

	codeLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(reader, code); err != nil {
		return nil, err
	}
	record.Code = string(code)

	return record, nil
}

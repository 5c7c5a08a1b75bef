package dirauth

import (
	"context"
	"io"

	internalaudit "github.com/opendirs/dirauth/internal/audit"
	"github.com/opendirs/dirauth/internal/directory"
	"github.com/opendirs/dirauth/password"
	"github.com/rs/zerolog"
)

// UserRecord is a point-in-time copy of a directory entry.
type UserRecord = directory.Record

// Selector picks a directory record by user id or by login, never both.
type Selector = directory.Selector

// ByUserID returns a Selector for the given user id.
func ByUserID(userID string) Selector { return directory.ByUserID(userID) }

// ByLogin returns a Selector for the given login.
func ByLogin(login string) Selector { return directory.ByLogin(login) }

// StoredHash is a stored credential in either the legacy or current format.
type StoredHash = password.StoredHash

// Channel identifies a two-factor delivery channel.
type Channel string

const (
	// ChannelEmail delivers codes by email.
	ChannelEmail Channel = "email"
	// ChannelPhone delivers codes by SMS.
	ChannelPhone Channel = "phone"
)

// Contact is the delivery information for a user, as returned by the
// host application's profile system.
type Contact struct {
	Name          string
	Email         string
	Phone         string
	PhoneVerified bool
}

// ProfileLookup resolves a user id to contact information. Implemented by
// the host application; the engine never stores contact data itself.
type ProfileLookup interface {
	GetContact(ctx context.Context, userID string) (Contact, error)
}

// Notifier delivers a two-factor code or security alert out of band.
// Implemented by the host application. Delivery failures are reported to
// the caller of IssueCode; the engine does not retry.
type Notifier interface {
	Send(ctx context.Context, channel Channel, destination, payload string) error
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives AuditEvent values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an AuditSink that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based AuditSink.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an AuditSink that writes JSON-encoded events to an
// io.Writer, one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZerologSink is an AuditSink that forwards events to a zerolog logger.
type ZerologSink = internalaudit.ZerologSink

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZerologSink creates a ZerologSink backed by logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return internalaudit.NewZerologSink(logger)
}

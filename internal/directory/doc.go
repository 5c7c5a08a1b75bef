// Package directory is the in-process user, login, and group directory.
//
// # Design
//
// Records live in a table keyed by user id, with two reverse indexes:
// login to user id and group to member-id set. All three are mutated under
// a single writer lock, so a reader never observes a record without its
// index entries or vice versa. Credential rewrites additionally serialize
// on a per-record mutex: an explicit password change and a legacy-hash
// upgrade triggered by verification cannot interleave into a mismatched
// hash/salt pair.
//
// Logins and group names are normalized to Unicode NFC before indexing,
// so equivalent encodings of the same identifier collide. Case is
// preserved.
//
// # Architecture boundaries
//
// This package owns directory state and password verification against it.
// It does not touch the network, issue codes, or count login failures.
package directory

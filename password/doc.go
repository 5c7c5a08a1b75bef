// Package password derives and verifies stored password hashes.
//
// Two formats are understood. The current format is PBKDF2-HMAC-SHA512
// over a per-user salt, stored as "pbkdf2:<hex>". The legacy format is a
// bare SHA-1 digest stored as "SHA1:<hex>"; it is verify-only, and a
// successful legacy verification yields a replacement hash in the current
// format so callers can upgrade the stored credential in place.
//
// Verification is constant-time with respect to where two digests differ.
// Length is compared first and short-circuits, which leaks only length.
//
// This package performs no I/O and holds no state beyond its configuration;
// persistence of upgraded hashes is the caller's decision.
package password

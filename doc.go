// Package dirauth is an embeddable identity and credential engine: a
// user directory with group membership, password hashing with
// transparent legacy-hash migration, a Redis-backed failed-login
// lockout window, an optional two-factor code challenge, and an
// authentication state machine that ties them together — including an
// administrative impersonation form.
//
// The engine certifies identity and nothing more. It returns the
// authenticated user id; sessions, cookies, and tokens are the host
// application's concern.
//
// Construction goes through the Builder:
//
//	engine, err := dirauth.New().
//		WithConfig(cfg).
//		WithRedis(redisClient).
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	userID, err := engine.Authenticate(ctx, login, password, code)
//
// Authentication outcomes are sentinel errors (ErrAccountLockedOut,
// ErrInvalidCredentials, ErrMissingCode, ErrInvalidOrExpiredCode); the
// caller decides how much to disclose to the end user.
package dirauth

package dirauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opendirs/dirauth/password"
)

func loginTestConfig() Config {
	cfg := defaultConfig()
	cfg.Lockout.Window = time.Minute
	cfg.Lockout.MaxAttempts = 3
	return cfg
}

func TestAuthenticateSuccess(t *testing.T) {
	engine, _ := newTestEngine(t, loginTestConfig())
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")

	userID, err := engine.Authenticate(context.Background(), "alice@example.com", "correct-horse", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("expected u1, got %q", userID)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	engine, _ := newTestEngine(t, loginTestConfig())
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	ctx := context.Background()

	_, err := engine.Authenticate(ctx, "alice@example.com", "wrong", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	attempts, err := engine.FailedAttempts(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 recorded attempt, got %d", len(attempts))
	}
}

func TestAuthenticateUnknownLogin(t *testing.T) {
	engine, _ := newTestEngine(t, loginTestConfig())

	_, err := engine.Authenticate(context.Background(), "ghost@example.com", "whatever", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLockoutRejectsCorrectPassword(t *testing.T) {
	engine, _ := newTestEngine(t, loginTestConfig())
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := engine.Authenticate(ctx, "alice@example.com", "wrong", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// At the threshold even the right password is rejected.
	_, err := engine.Authenticate(ctx, "alice@example.com", "correct-horse", "")
	if !errors.Is(err, ErrAccountLockedOut) {
		t.Fatalf("expected ErrAccountLockedOut, got %v", err)
	}

	locked, err := engine.IsLockedOut(ctx, "alice@example.com")
	if err != nil || !locked {
		t.Fatalf("expected locked state, locked=%v err=%v", locked, err)
	}

	// The administrative override restores access.
	if err := engine.ClearLockout(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ClearLockout failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, "alice@example.com", "correct-horse", ""); err != nil {
		t.Fatalf("Authenticate after clear failed: %v", err)
	}
}

func TestLockoutIgnoresExpiredAttempts(t *testing.T) {
	engine, deps := newTestEngine(t, loginTestConfig())
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	ctx := context.Background()

	// Plant attempts older than the window straight into the backing set.
	stale := float64(time.Now().Add(-2 * time.Minute).UnixMilli())
	for i := 0; i < 5; i++ {
		member := redis.Z{Score: stale + float64(i), Member: strings.Repeat("x", i+1)}
		if err := deps.rdb.ZAdd(ctx, "flo:alice@example.com", member).Err(); err != nil {
			t.Fatalf("seed attempt failed: %v", err)
		}
	}

	if _, err := engine.Authenticate(ctx, "alice@example.com", "correct-horse", ""); err != nil {
		t.Fatalf("expired attempts still lock: %v", err)
	}
}

func TestSuccessClearsWindow(t *testing.T) {
	engine, _ := newTestEngine(t, loginTestConfig())
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = engine.Authenticate(ctx, "alice@example.com", "wrong", "")
	}
	if _, err := engine.Authenticate(ctx, "alice@example.com", "correct-horse", ""); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	attempts, err := engine.FailedAttempts(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("expected cleared window, got %d attempts", len(attempts))
	}
}

func TestSuccessKeepsWindowWhenPolicyOff(t *testing.T) {
	cfg := loginTestConfig()
	cfg.Lockout.ClearOnSuccess = false

	engine, _ := newTestEngine(t, cfg)
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	ctx := context.Background()

	_, _ = engine.Authenticate(ctx, "alice@example.com", "wrong", "")
	if _, err := engine.Authenticate(ctx, "alice@example.com", "correct-horse", ""); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	attempts, err := engine.FailedAttempts(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected the attempt to survive, got %d", len(attempts))
	}
}

func TestImpersonation(t *testing.T) {
	cfg := loginTestConfig()
	cfg.Audit.Enabled = true

	_, rdb := newTestRedis(t)
	sink := NewChannelSink(16)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	seedUser(t, engine, "admin-1", "root@example.com", "root-secret", cfg.Impersonation.AdminGroup)

	userID, err := engine.Authenticate(context.Background(), "alice@example.com", "root@example.com:root-secret", "")
	if err != nil {
		t.Fatalf("impersonated login failed: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("expected the original user id u1, got %q", userID)
	}

	// The audit trail names both identities.
	deadline := time.After(time.Second)
	for {
		select {
		case event := <-sink.Events():
			if event.EventType != auditEventImpersonation {
				continue
			}
			if event.UserID != "u1" || event.ActorID != "admin-1" {
				t.Fatalf("impersonation event misattributed: %+v", event)
			}
			return
		case <-deadline:
			t.Fatal("no impersonation audit event")
		}
	}
}

func TestImpersonationRequiresAdminGroup(t *testing.T) {
	engine, _ := newTestEngine(t, loginTestConfig())
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	seedUser(t, engine, "u2", "bob@example.com", "bob-secret") // not an admin
	ctx := context.Background()

	_, err := engine.Authenticate(ctx, "alice@example.com", "bob@example.com:bob-secret", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// The failure counts against the target's window like any other.
	attempts, err := engine.FailedAttempts(ctx, "alice@example.com")
	if err != nil || len(attempts) != 1 {
		t.Fatalf("expected 1 recorded attempt, got %d err=%v", len(attempts), err)
	}
}

func TestImpersonationWrongAdminPassword(t *testing.T) {
	cfg := loginTestConfig()
	engine, _ := newTestEngine(t, cfg)
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	seedUser(t, engine, "admin-1", "root@example.com", "root-secret", cfg.Impersonation.AdminGroup)

	_, err := engine.Authenticate(context.Background(), "alice@example.com", "root@example.com:wrong", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestImpersonationAdminPasswordKeepsSeparator(t *testing.T) {
	cfg := loginTestConfig()
	engine, _ := newTestEngine(t, cfg)
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	// The admin's own password contains the separator; only the first
	// occurrence splits.
	seedUser(t, engine, "admin-1", "root@example.com", "sec:ret", cfg.Impersonation.AdminGroup)

	userID, err := engine.Authenticate(context.Background(), "alice@example.com", "root@example.com:sec:ret", "")
	if err != nil {
		t.Fatalf("impersonated login failed: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("expected u1, got %q", userID)
	}
}

func TestImpersonationDisabled(t *testing.T) {
	cfg := loginTestConfig()
	cfg.Impersonation.Enabled = false

	engine, _ := newTestEngine(t, cfg)
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	seedUser(t, engine, "admin-1", "root@example.com", "root-secret", "group.Admins")

	_, err := engine.Authenticate(context.Background(), "alice@example.com", "root@example.com:root-secret", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateUpgradesLegacyHash(t *testing.T) {
	cfg := loginTestConfig()

	// A directory imported with a verify-only legacy hash.
	snapshot := `{
		"version": 2,
		"data": {
			"u1": {"login": "alice@example.com", "password": "` + password.LegacyHash("old-password") + `"}
		}
	}`
	store, err := LoadDirectory(strings.NewReader(snapshot), cfg.Password)
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}

	_, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(store).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	userID, err := engine.Authenticate(context.Background(), "alice@example.com", "old-password", "")
	if err != nil {
		t.Fatalf("legacy login failed: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("expected u1, got %q", userID)
	}

	record, err := engine.GetUser(ByUserID("u1"))
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if record.Password.IsLegacy() {
		t.Fatal("hash not upgraded on first successful login")
	}
	if record.Password.Salt == "" {
		t.Fatal("upgraded hash has no salt")
	}

	// Same password keeps working against the upgraded hash.
	if _, err := engine.Authenticate(context.Background(), "alice@example.com", "old-password", ""); err != nil {
		t.Fatalf("login after upgrade failed: %v", err)
	}
}

func TestAuthenticateMetrics(t *testing.T) {
	cfg := loginTestConfig()
	cfg.Metrics.Enabled = true

	engine, _ := newTestEngine(t, cfg)
	seedUser(t, engine, "u1", "alice@example.com", "correct-horse")
	ctx := context.Background()

	_, _ = engine.Authenticate(ctx, "alice@example.com", "correct-horse", "")
	_, _ = engine.Authenticate(ctx, "alice@example.com", "wrong", "")

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected 1 success, got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("expected 1 failure, got %d", snap.Counters[MetricLoginFailure])
	}
}

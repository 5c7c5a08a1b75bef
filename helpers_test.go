package dirauth

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

type testProfiles struct {
	mu       sync.Mutex
	contacts map[string]Contact
}

func newTestProfiles() *testProfiles {
	return &testProfiles{contacts: make(map[string]Contact)}
}

func (p *testProfiles) put(userID string, c Contact) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.contacts[userID] = c
}

func (p *testProfiles) GetContact(_ context.Context, userID string) (Contact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.contacts[userID]
	if !ok {
		return Contact{}, fmt.Errorf("no contact for %s", userID)
	}
	return c, nil
}

type sentMessage struct {
	channel     Channel
	destination string
	payload     string
}

type testNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail error
}

func (n *testNotifier) Send(_ context.Context, channel Channel, destination, payload string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, sentMessage{channel: channel, destination: destination, payload: payload})
	return nil
}

func (n *testNotifier) last(t *testing.T) sentMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no message delivered")
	}
	return n.sent[len(n.sent)-1]
}

type testDeps struct {
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	profiles *testProfiles
	notifier *testNotifier
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *testDeps) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	deps := &testDeps{
		mr:       mr,
		rdb:      rdb,
		profiles: newTestProfiles(),
		notifier: &testNotifier{},
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithProfiles(deps.profiles).
		WithNotifier(deps.notifier).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, deps
}

func seedUser(t *testing.T, engine *Engine, userID, login, pw string, groups ...string) {
	t.Helper()
	if err := engine.AddUser(context.Background(), userID, login, pw, groups...); err != nil {
		t.Fatalf("AddUser(%s) failed: %v", userID, err)
	}
}

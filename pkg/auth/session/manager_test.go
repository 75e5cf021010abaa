package session

import (
	"context"
	"strings"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type stubStore struct {
	values map[string]string
}

func newStubStore() *stubStore {
	return &stubStore{values: map[string]string{}}
}

func (s *stubStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.values[key] = value.(string)
	return nil
}

func (s *stubStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return value, nil
}

func (s *stubStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

type stubKeyer struct{}

func (stubKeyer) AccessSessionKey(accessID string) string {
	return "test:session:access:" + accessID
}

func newTestManager(store *stubStore) *Manager {
	return &Manager{store: store, keyer: stubKeyer{}, ttl: time.Hour}
}

func TestGenerateStoresToken(t *testing.T) {
	store := newStubStore()
	mgr := newTestManager(store)

	token, err := mgr.Generate(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if store.values["test:session:access:access-1"] != token {
		t.Fatal("token not stored under access session key")
	}
}

func TestGenerateRequiresAccessID(t *testing.T) {
	mgr := newTestManager(newStubStore())
	if _, err := mgr.Generate(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank access id")
	}
}

func TestRotateIssuesNewPairAndInvalidatesOld(t *testing.T) {
	store := newStubStore()
	mgr := newTestManager(store)
	ctx := context.Background()

	token, err := mgr.Generate(ctx, "access-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	newAccessID, newToken, err := mgr.Rotate(ctx, "access-1", token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newAccessID == "access-1" {
		t.Fatal("expected a fresh access id")
	}
	if newToken == token {
		t.Fatal("expected a fresh refresh token")
	}
	if _, ok := store.values["test:session:access:access-1"]; ok {
		t.Fatal("old session should be deleted")
	}
	if store.values["test:session:access:"+newAccessID] != newToken {
		t.Fatal("new session not stored")
	}
}

func TestRotateRejectsWrongToken(t *testing.T) {
	store := newStubStore()
	mgr := newTestManager(store)
	ctx := context.Background()

	if _, err := mgr.Generate(ctx, "access-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := mgr.Rotate(ctx, "access-1", "forged"); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRotateRejectsUnknownSession(t *testing.T) {
	mgr := newTestManager(newStubStore())
	if _, _, err := mgr.Rotate(context.Background(), "ghost", "whatever"); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRevokeAndHasSession(t *testing.T) {
	store := newStubStore()
	mgr := newTestManager(store)
	ctx := context.Background()

	if _, err := mgr.Generate(ctx, "access-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	ok, err := mgr.HasSession(ctx, "access-1")
	if err != nil || !ok {
		t.Fatalf("expected active session, got ok=%v err=%v", ok, err)
	}

	if err := mgr.Revoke(ctx, "access-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	ok, err = mgr.HasSession(ctx, "access-1")
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if ok {
		t.Fatal("expected session to be gone")
	}
}

func TestNewAccessIDLooksLikeUUID(t *testing.T) {
	id := NewAccessID()
	if strings.Count(id, "-") != 4 {
		t.Fatalf("unexpected access id format: %s", id)
	}
}

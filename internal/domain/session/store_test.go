package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nlatta/caseforge/internal/infra/sqlite"
)

func testStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()

	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seed := []string{
		`INSERT INTO workspace (id, name, created_at) VALUES ('ws-1', 'Acme', '2026-01-01T00:00:00Z')`,
		`INSERT INTO user_account (id, workspace_id, email, display_name, password_hash, permissions, created_at)
		 VALUES ('user-1', 'ws-1', 'nina@example.com', 'Nina', 'x', '[]', '2026-01-01T00:00:00Z')`,
	}
	for _, stmt := range seed {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return NewStore(db, ttl)
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()

	store := testStore(t, 30*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sess.Active(time.Now().UTC()) {
		t.Error("fresh session not active")
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "user-1" || got.Status != "active" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	want := sess.CreatedAt.Add(30 * time.Minute)
	if got.ExpiresAt.Sub(want) > time.Second || want.Sub(got.ExpiresAt) > time.Second {
		t.Errorf("expires_at = %v, want ~%v", got.ExpiresAt, want)
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	store := testStore(t, 30*time.Minute)
	if _, err := store.Get(context.Background(), "sess-missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestActiveForUser_PrefersNewest(t *testing.T) {
	store := testStore(t, 30*time.Minute)
	ctx := context.Background()

	first, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	// created_at has second precision; make the ordering unambiguous.
	time.Sleep(1100 * time.Millisecond)
	second, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	got, err := store.ActiveForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("active for user: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("got %s, want newest %s (first %s)", got.ID, second.ID, first.ID)
	}
}

func TestActiveForUser_SkipsClosed(t *testing.T) {
	t.Parallel()

	store := testStore(t, 30*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Close(ctx, sess.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := store.ActiveForUser(ctx, "user-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestTouch_ExtendsExpiry(t *testing.T) {
	t.Parallel()

	store := testStore(t, time.Hour)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Touch(ctx, sess.ID); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ExpiresAt.Before(sess.ExpiresAt) {
		t.Errorf("expiry shrank: %v -> %v", sess.ExpiresAt, got.ExpiresAt)
	}
}

func TestTouch_ClosedSessionFails(t *testing.T) {
	t.Parallel()

	store := testStore(t, 30*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Close(ctx, sess.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := store.Touch(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	store := testStore(t, 30*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Close(ctx, sess.ID); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := store.Close(ctx, sess.ID); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestExpiredAndActive(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	sess := &Session{Status: "active", ExpiresAt: now.Add(time.Minute)}

	if sess.Expired(now) {
		t.Error("live session reported expired")
	}
	if !sess.Active(now) {
		t.Error("live session not active")
	}
	if !sess.Expired(now.Add(2 * time.Minute)) {
		t.Error("stale session not expired")
	}
	sess.Status = "closed"
	if sess.Active(now) {
		t.Error("closed session reported active")
	}
}

package casefile

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/nlatta/caseforge/internal/infra/sqlite"
)

func testService(t *testing.T) *Service {
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
		`INSERT INTO workspace (id, name, created_at) VALUES ('ws-2', 'Globex', '2026-01-01T00:00:00Z')`,
		`INSERT INTO user_account (id, workspace_id, email, display_name, password_hash, permissions, created_at)
		 VALUES ('user-1', 'ws-1', 'nina@example.com', 'Nina', 'x', '[]', '2026-01-01T00:00:00Z')`,
	}
	for _, stmt := range seed {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return NewService(db)
}

func mustCreate(t *testing.T, svc *Service, title string) *Casefile {
	t.Helper()
	cf, err := svc.Create(context.Background(), CreateInput{
		WorkspaceID: "ws-1",
		OwnerID:     "user-1",
		Title:       title,
		Priority:    "high",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return cf
}

func TestCreate_DefaultsAndRoundTrip(t *testing.T) {
	t.Parallel()

	svc := testService(t)
	ctx := context.Background()

	cf, err := svc.Create(ctx, CreateInput{WorkspaceID: "ws-1", OwnerID: "user-1", Title: "Broken SSO"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cf.Priority != "medium" {
		t.Errorf("default priority = %q", cf.Priority)
	}
	if cf.Status != "open" {
		t.Errorf("status = %q", cf.Status)
	}

	got, err := svc.Get(ctx, "ws-1", cf.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Broken SSO" || got.OwnerID != "user-1" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.ClosedAt != nil {
		t.Error("open casefile has closed_at")
	}
}

func TestCreate_RequiresTitle(t *testing.T) {
	t.Parallel()

	svc := testService(t)
	if _, err := svc.Create(context.Background(), CreateInput{WorkspaceID: "ws-1", OwnerID: "user-1"}); err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestGet_WorkspaceScoped(t *testing.T) {
	t.Parallel()

	svc := testService(t)
	cf := mustCreate(t, svc, "Scoped")

	if _, err := svc.Get(context.Background(), "ws-2", cf.ID); !errors.Is(err, ErrCasefileNotFound) {
		t.Fatalf("expected ErrCasefileNotFound across workspaces, got %v", err)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	t.Parallel()

	svc := testService(t)
	ctx := context.Background()
	cf := mustCreate(t, svc, "Original")

	got, err := svc.Update(ctx, "ws-1", cf.ID, UpdateInput{Priority: "urgent"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Priority != "urgent" {
		t.Errorf("priority = %q", got.Priority)
	}
	if got.Title != "Original" {
		t.Errorf("title changed unexpectedly: %q", got.Title)
	}

	persisted, err := svc.Get(ctx, "ws-1", cf.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if persisted.Priority != "urgent" {
		t.Errorf("persisted priority = %q", persisted.Priority)
	}
}

func TestUpdate_RejectsClosed(t *testing.T) {
	t.Parallel()

	svc := testService(t)
	ctx := context.Background()
	cf := mustCreate(t, svc, "Closing")

	if _, err := svc.Close(ctx, "ws-1", cf.ID, "user-1", ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := svc.Update(ctx, "ws-1", cf.ID, UpdateInput{Title: "New"}); !errors.Is(err, ErrCasefileClosed) {
		t.Fatalf("expected ErrCasefileClosed, got %v", err)
	}
}

func TestClose_RecordsReasonNote(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	cf := mustCreate(t, svc, "With reason")

	got, err := svc.Close(ctx, "ws-1", cf.ID, "user-1", "resolved upstream")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if got.Status != "closed" {
		t.Errorf("status = %q", got.Status)
	}
	if got.ClosedAt == nil {
		t.Error("closed_at not set")
	}

	// The reason lands as a note on the casefile.
	var body string
	row := svcDB(svc).QueryRow(`SELECT body FROM casefile_note WHERE casefile_id = ?`, cf.ID)
	if err := row.Scan(&body); err != nil {
		t.Fatalf("scan note: %v", err)
	}
	if body != "closed: resolved upstream" {
		t.Errorf("note body = %q", body)
	}
}

func TestClose_AlreadyClosed(t *testing.T) {
	t.Parallel()

	svc := testService(t)
	ctx := context.Background()
	cf := mustCreate(t, svc, "Twice")

	if _, err := svc.Close(ctx, "ws-1", cf.ID, "user-1", ""); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if _, err := svc.Close(ctx, "ws-1", cf.ID, "user-1", ""); !errors.Is(err, ErrCasefileClosed) {
		t.Fatalf("expected ErrCasefileClosed, got %v", err)
	}
}

func TestArchive_TerminalTransition(t *testing.T) {
	t.Parallel()

	svc := testService(t)
	ctx := context.Background()
	cf := mustCreate(t, svc, "Legacy")

	got, err := svc.Archive(ctx, "ws-1", cf.ID, "user-1")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if got.Status != "archived" {
		t.Errorf("status = %q", got.Status)
	}
	if _, err := svc.Archive(ctx, "ws-1", cf.ID, "user-1"); !errors.Is(err, ErrCasefileClosed) {
		t.Fatalf("expected ErrCasefileClosed on re-archive, got %v", err)
	}
}

func TestAddNote_MissingCasefile(t *testing.T) {
	t.Parallel()

	svc := testService(t)
	if _, err := svc.AddNote(context.Background(), "ws-1", "cf-missing", "user-1", "hello"); !errors.Is(err, ErrCasefileNotFound) {
		t.Fatalf("expected ErrCasefileNotFound, got %v", err)
	}
}

func TestList_FilterAndPaging(t *testing.T) {
	t.Parallel()

	svc := testService(t)
	ctx := context.Background()

	first := mustCreate(t, svc, "One")
	mustCreate(t, svc, "Two")
	mustCreate(t, svc, "Three")
	if _, err := svc.Close(ctx, "ws-1", first.ID, "user-1", ""); err != nil {
		t.Fatalf("close: %v", err)
	}

	open, total, err := svc.List(ctx, "ws-1", ListInput{Status: "open"})
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if total != 2 || len(open) != 2 {
		t.Errorf("open: total=%d len=%d", total, len(open))
	}

	page, total, err := svc.List(ctx, "ws-1", ListInput{Limit: 2})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d", total)
	}
	if len(page) != 2 {
		t.Errorf("page len = %d", len(page))
	}

	empty, total, err := svc.List(ctx, "ws-2", ListInput{})
	if err != nil {
		t.Fatalf("list other workspace: %v", err)
	}
	if total != 0 || len(empty) != 0 {
		t.Errorf("other workspace: total=%d len=%d", total, len(empty))
	}
}

// svcDB exposes the underlying handle for direct row assertions.
func svcDB(svc *Service) *sql.DB { return svc.db }

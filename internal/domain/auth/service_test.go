package auth

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	pkgauth "github.com/nlatta/caseforge/pkg/auth"

	"github.com/nlatta/caseforge/internal/infra/sqlite"
)

func TestMain(m *testing.M) {
	os.Setenv("CASEFORGE_JWT_SECRET", "test-secret-key-32-chars-min!!!") //nolint:errcheck
	os.Exit(m.Run())
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc := NewService(testDB(t), nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{
		Email:         "nina@example.com",
		Password:      "hunter2hunter2",
		DisplayName:   "Nina",
		WorkspaceName: "Acme Support",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.UserID == "" || reg.WorkspaceID == "" || reg.Token == "" {
		t.Fatalf("incomplete result: %+v", reg)
	}

	claims, err := pkgauth.ParseJWT(reg.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != reg.UserID || claims.WorkspaceID != reg.WorkspaceID {
		t.Errorf("claims = %+v", claims)
	}
	if len(claims.Permissions) != len(DefaultPermissions) {
		t.Errorf("permissions = %v", claims.Permissions)
	}

	login, err := svc.Login(ctx, LoginInput{Email: "nina@example.com", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.UserID != reg.UserID || login.WorkspaceID != reg.WorkspaceID {
		t.Errorf("login identity mismatch: %+v vs %+v", login, reg)
	}
	if len(login.Permissions) != len(DefaultPermissions) {
		t.Errorf("login permissions = %v", login.Permissions)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := NewService(testDB(t), nil)
	ctx := context.Background()

	in := RegisterInput{Email: "dup@example.com", Password: "pw", WorkspaceName: "One"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("first register: %v", err)
	}
	in.WorkspaceName = "Two"
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("err = %v, want ErrEmailAlreadyExists", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	svc := NewService(testDB(t), nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Email: "nina@example.com", Password: "right", WorkspaceName: "Acme",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name string
		in   LoginInput
	}{
		{"wrong password", LoginInput{Email: "nina@example.com", Password: "wrong"}},
		{"unknown email", LoginInput{Email: "ghost@example.com", Password: "right"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.Login(context.Background(), tc.in); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

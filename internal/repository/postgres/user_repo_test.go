package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
)

func TestUserCreateAndFindByUsername(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	name := "مدير النظام"
	user := &model.User{
		ID:           uuid.New(),
		Username:     "admin",
		PasswordHash: "hash",
		Name:         &name,
		Role:         model.UserRoleAdmin,
		Permissions:  []string{"projects", "estimates"},
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := repo.FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.Role != model.UserRoleAdmin || len(got.Permissions) != 2 {
		t.Fatalf("user round trip wrong: %+v", got)
	}
}

func TestUserFindByUsernameNotFound(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewUserRepository(pool)

	user, err := repo.FindByUsername(context.Background(), "missing-user")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestUserUpdate(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	user := &model.User{Username: "eng1", PasswordHash: "h", Role: model.UserRoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	user.Permissions = []string{"contracts"}
	if err := repo.Update(ctx, user); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(got.Permissions) != 1 || got.Permissions[0] != "contracts" {
		t.Fatalf("permissions not persisted: %+v", got.Permissions)
	}
}

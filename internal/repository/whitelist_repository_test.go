package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/slot-reservation/internal/database/dbtest"
)

func TestWhitelistLifecycle(t *testing.T) {
	t.Parallel()
	repo := NewWhitelistRepo(dbtest.Open(t))
	ctx := context.Background()

	e, err := repo.Add(ctx, "  Alice@Example.com")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.Email != "alice@example.com" || !e.Active {
		t.Fatalf("entry = %+v, want active alice@example.com", e)
	}
	if _, err := repo.Add(ctx, "alice@example.COM"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate add err = %v, want %v", err, ErrEmailExists)
	}

	ok, err := repo.IsActive(ctx, "ALICE@example.com ")
	if err != nil || !ok {
		t.Fatalf("IsActive = %v, %v; want true", ok, err)
	}
	if _, err := repo.SetActive(ctx, e.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if ok, _ := repo.IsActive(ctx, "alice@example.com"); ok {
		t.Fatal("IsActive after deactivate = true, want false")
	}

	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, %v; want one entry", list, err)
	}

	email, err := repo.Delete(ctx, e.ID)
	if err != nil || email != "alice@example.com" {
		t.Fatalf("delete = %q, %v", email, err)
	}
	if _, err := repo.Delete(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want %v", err, ErrNotFound)
	}
	if ok, err := repo.IsActive(ctx, "nobody@example.com"); err != nil || ok {
		t.Fatalf("unknown IsActive = %v, %v; want false, nil", ok, err)
	}
}

package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm/logger"
)

func TestEnsureUserAndAuthenticate(t *testing.T) {
	dsn := fmt.Sprintf("file:user-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := Open(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	created, err := EnsureUser(gdb, "ops", "s3cret-pass")
	if err != nil || !created {
		t.Fatalf("expected user to be created, created=%v err=%v", created, err)
	}

	created, err = EnsureUser(gdb, "ops", "other")
	if err != nil || created {
		t.Fatalf("expected existing user to be kept, created=%v err=%v", created, err)
	}

	if created, err := EnsureUser(gdb, " ", "x"); err != nil || created {
		t.Fatalf("expected blank username to be ignored")
	}

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user, err := Authenticate(gdb, "ops", "s3cret-pass", now)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.Username != "ops" {
		t.Fatalf("unexpected user %q", user.Username)
	}

	var reloaded User
	if err := gdb.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.LastLoginAt == nil || !reloaded.LastLoginAt.Equal(now) {
		t.Fatalf("expected last login to be recorded, got %v", reloaded.LastLoginAt)
	}

	if _, err := Authenticate(gdb, "ops", "wrong", now); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := Authenticate(gdb, "nobody", "x", now); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

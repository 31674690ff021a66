package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestUserStore(t *testing.T) *UserStore {
	t.Helper()
	s, err := NewUserStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndAuthenticate(t *testing.T) {
	s := newTestUserStore(t)

	created, err := s.Create("alice", "s3cret")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("created user has empty id")
	}
	if created.PasswordHash == "s3cret" {
		t.Error("password stored in plaintext")
	}

	user, err := s.Authenticate("alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("authenticated id = %q, want %q", user.ID, created.ID)
	}
	if !user.LastLogin.After(created.LastLogin) && !user.LastLogin.Equal(created.LastLogin) {
		t.Error("last_login did not advance")
	}
}

func TestAuthenticateFailures(t *testing.T) {
	s := newTestUserStore(t)
	if _, err := s.Create("bob", "hunter2"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.Authenticate("bob", "wrong"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("wrong password error = %v, want ErrUserNotFound", err)
	}
	if _, err := s.Authenticate("nobody", "hunter2"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user error = %v, want ErrUserNotFound", err)
	}
}

func TestDuplicateUsernamesFirstMatchWins(t *testing.T) {
	s := newTestUserStore(t)

	// Usernames are not unique; the store scans in insertion order.
	first, err := s.Create("carol", "pw-one")
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}
	second, err := s.Create("carol", "pw-two")
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}

	got, err := s.Authenticate("carol", "pw-one")
	if err != nil {
		t.Fatalf("Authenticate first: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("authenticated id = %q, want first account %q", got.ID, first.ID)
	}

	got, err = s.Authenticate("carol", "pw-two")
	if err != nil {
		t.Fatalf("Authenticate second: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("authenticated id = %q, want second account %q", got.ID, second.ID)
	}
}

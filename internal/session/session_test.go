package session

import (
	"os"
	"path/filepath"
	"testing"

	"storefront-checkout/internal/domain"
)

func TestLogoutIsIdempotent(t *testing.T) {
	s := NewStore()
	calls := 0
	s.OnLogout(func() { calls++ })

	if s.Logout() {
		t.Fatalf("logout without session should report false")
	}
	if err := s.Start(domain.User{ID: 7, Username: "ana"}, "tok"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsLoggedIn() {
		t.Fatalf("expected logged in")
	}
	if !s.Logout() {
		t.Fatalf("first logout should end the session")
	}
	if s.Logout() {
		t.Fatalf("second logout should be a no-op")
	}
	if calls != 1 {
		t.Fatalf("expected one hook call, got %d", calls)
	}
	if _, ok := s.Current(); ok {
		t.Fatalf("expected no current user")
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	s := NewStore()
	_ = s.Start(domain.User{ID: 7, Name: "Ana"}, "tok")
	u, _ := s.Current()
	u.Name = "changed"
	again, _ := s.Current()
	if again.Name != "Ana" {
		t.Fatalf("session mutated through returned user")
	}
}

func TestFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")

	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if s.IsLoggedIn() {
		t.Fatalf("expected empty session")
	}
	if err := s.Start(domain.User{ID: 7, Username: "ana", PostalCode: "28013"}, "tok"); err != nil {
		t.Fatalf("start: %v", err)
	}

	restored, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	u, ok := restored.Current()
	if !ok || u.ID != 7 || u.PostalCode != "28013" || restored.Token() != "tok" {
		t.Fatalf("unexpected restored session: %+v token=%q", u, restored.Token())
	}

	restored.Logout()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected session file removed, stat err=%v", err)
	}
}

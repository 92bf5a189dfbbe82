package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "gridcal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestUpsertUserKeepsID(t *testing.T) {
	ctx := context.Background()
	d := openTest(t)

	first, err := d.UpsertUser(ctx, User{GoogleSub: "sub-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	second, err := d.UpsertUser(ctx, User{GoogleSub: "sub-1", Email: "b@example.com", Name: "Ana"})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if first.ID == "" || first.ID != second.ID {
		t.Fatalf("ids=%q/%q, want the same non-empty id", first.ID, second.ID)
	}

	got, err := d.User(ctx, first.ID)
	if err != nil {
		t.Fatalf("User: %v", err)
	}
	if got.Email != "b@example.com" || got.Name != "Ana" || got.Picture != "" {
		t.Fatalf("user=%+v", got)
	}

	if _, err := d.User(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err=%v, want ErrUserNotFound", err)
	}
	if _, err := d.UpsertUser(ctx, User{}); err == nil {
		t.Fatal("expected error for missing subject")
	}
}

func TestTokenRefreshKeepsRefreshToken(t *testing.T) {
	ctx := context.Background()
	d := openTest(t)
	u, _ := d.UpsertUser(ctx, User{GoogleSub: "sub-1"})

	if _, err := d.Token(ctx, u.ID); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("err=%v, want ErrTokenNotFound", err)
	}

	expiry := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if err := d.SaveToken(ctx, u.ID, &oauth2.Token{AccessToken: "a1", RefreshToken: "r1", TokenType: "Bearer", Expiry: expiry}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if err := d.SaveToken(ctx, u.ID, &oauth2.Token{AccessToken: "a2", Expiry: expiry.Add(time.Hour)}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	tok, err := d.Token(ctx, u.ID)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "a2" || tok.RefreshToken != "r1" {
		t.Fatalf("token=%+v, want a2 with r1 kept", tok)
	}
	if !tok.Expiry.Equal(expiry.Add(time.Hour)) {
		t.Fatalf("expiry=%v", tok.Expiry)
	}
}

func TestCompletionFlags(t *testing.T) {
	ctx := context.Background()
	d := openTest(t)

	m, err := d.CompletionMap(ctx, "u1", nil)
	if err != nil || len(m) != 0 {
		t.Fatalf("empty map=%v err=%v", m, err)
	}

	for _, step := range []struct {
		user, event string
		completed   bool
	}{
		{"u1", "a", true},
		{"u1", "b", true},
		{"u1", "b", false},
		{"u2", "a", false},
	} {
		if err := d.SetCompleted(ctx, step.user, step.event, step.completed); err != nil {
			t.Fatalf("SetCompleted: %v", err)
		}
	}

	m, err = d.CompletionMap(ctx, "u1", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("CompletionMap: %v", err)
	}
	if !m["a"] || m["b"] || len(m) != 2 {
		t.Fatalf("map=%v, want a=true b=false", m)
	}
	m, _ = d.CompletionMap(ctx, "u2", []string{"a"})
	if m["a"] {
		t.Fatal("flags leaked across users")
	}
}

func TestOpenInMemory(t *testing.T) {
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()
	if err := d.SetCompleted(context.Background(), "u", "e", true); err != nil {
		t.Fatal(err)
	}
}

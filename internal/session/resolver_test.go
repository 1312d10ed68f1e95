package session

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
)

func newTestResolver(t *testing.T) (*Resolver, *docstore.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.UserProfile{}, &database.Template{}, &database.ResumeDraft{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := docstore.NewStore(db, nil)
	return NewResolver(store), store
}

func TestResolve_NoCredential(t *testing.T) {
	resolver, _ := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), StaticStream(nil))
	if err != ErrNotAuthenticated {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestResolve_SeedsProfileOnFirstUse(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()

	cred := &Credential{
		UID:         "u1",
		DisplayName: "Grace Hopper",
		PhotoURL:    "https://img.example.com/grace.png",
		Email:       "grace@example.com",
	}

	profile, err := resolver.Resolve(ctx, StaticStream(cred))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if profile.UID != "u1" || profile.DisplayName != "Grace Hopper" || profile.Email != "grace@example.com" {
		t.Fatalf("seeded profile mismatch: %+v", profile)
	}

	stored, err := store.GetUserProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("seed not persisted: %v", err)
	}
	if stored.PhotoURL != cred.PhotoURL {
		t.Fatalf("unexpected stored photo %q", stored.PhotoURL)
	}
}

func TestResolve_ReturnsExistingProfileUnchanged(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()

	existing := &database.UserProfile{
		UID:         "u1",
		DisplayName: "Old Name",
		Email:       "old@example.com",
		Collections: docstore.EncodeStrings([]string{"tpl-1"}),
	}
	if err := store.SetUserProfile(ctx, existing); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// 凭证字段与已存档案不同：解析返回档案原文，不做合并。
	cred := &Credential{UID: "u1", DisplayName: "New Name", Email: "new@example.com"}
	profile, err := resolver.Resolve(ctx, StaticStream(cred))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if profile.DisplayName != "Old Name" || profile.Email != "old@example.com" {
		t.Fatalf("existing profile must win over credential fields: %+v", profile)
	}
	if len(profile.Collections) != 1 || profile.Collections[0] != "tpl-1" {
		t.Fatalf("collections not carried: %v", profile.Collections)
	}
}

func TestResolve_ContextCancelled(t *testing.T) {
	resolver, _ := newTestResolver(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocked := make(chan *Credential)
	stream := streamFunc(func() (<-chan *Credential, func()) {
		return blocked, func() {}
	})

	if _, err := resolver.Resolve(ctx, stream); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type streamFunc func() (<-chan *Credential, func())

func (f streamFunc) Subscribe() (<-chan *Credential, func()) { return f() }

package docstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumecraft/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.UserProfile{}, &database.Template{}, &database.ResumeDraft{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db, nil)
}

func TestGetTemplate_NotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetTemplate(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestListTemplates_AscendingByTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	// 倒序插入，验证排序不依赖插入顺序。
	for i := 3; i >= 1; i-- {
		tpl := &database.Template{
			ID:        fmt.Sprintf("tpl-%d", i),
			Title:     fmt.Sprintf("Template %d", i),
			Name:      fmt.Sprintf("Template%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SetTemplate(ctx, tpl); err != nil {
			t.Fatalf("set template: %v", err)
		}
	}

	templates, err := store.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(templates) != 3 {
		t.Fatalf("expected 3 templates got %d", len(templates))
	}
	for i := 1; i < len(templates); i++ {
		if templates[i].Timestamp.Before(templates[i-1].Timestamp) {
			t.Fatalf("templates not in ascending order: %v before %v",
				templates[i].Timestamp, templates[i-1].Timestamp)
		}
	}
	if templates[0].ID != "tpl-1" {
		t.Fatalf("expected tpl-1 first got %s", templates[0].ID)
	}
}

func TestSetTemplate_AssignsServerTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tpl := &database.Template{ID: "tpl-ts", Title: "T", Name: "Template1"}
	if err := store.SetTemplate(ctx, tpl); err != nil {
		t.Fatalf("set template: %v", err)
	}
	if tpl.Timestamp.IsZero() {
		t.Fatal("expected server-assigned timestamp")
	}
}

func TestDeleteTemplate_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetTemplate(ctx, &database.Template{ID: "tpl-del", Name: "Template1"}); err != nil {
		t.Fatalf("set template: %v", err)
	}
	if err := store.DeleteTemplate(ctx, "tpl-del"); err != nil {
		t.Fatalf("delete template: %v", err)
	}
	// 再删一次不报错
	if err := store.DeleteTemplate(ctx, "tpl-del"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := store.GetTemplate(ctx, "tpl-del"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestSetResumeDraft_LastWriterWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &database.ResumeDraft{
		ResumeID: "Template1-u1",
		UID:      "u1",
		FormData: []byte(`{"fullname":"First"}`),
	}
	if err := store.SetResumeDraft(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := &database.ResumeDraft{
		ResumeID: "Template1-u1",
		UID:      "u1",
		FormData: []byte(`{"fullname":"Second"}`),
	}
	if err := store.SetResumeDraft(ctx, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.GetResumeDraft(ctx, "u1", "Template1-u1")
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if !strings.Contains(string(got.FormData), "Second") {
		t.Fatalf("expected last write to win, got form data %s", got.FormData)
	}

	drafts, err := store.ListResumeDrafts(ctx, "u1")
	if err != nil {
		t.Fatalf("list drafts: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected single draft after overwrite got %d", len(drafts))
	}
}

func TestUpdateResumeDraftPreview_LeavesFormDataAlone(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	draft := &database.ResumeDraft{
		ResumeID: "Template2-u1",
		UID:      "u1",
		FormData: []byte(`{"fullname":"Karen Richards"}`),
	}
	if err := store.SetResumeDraft(ctx, draft); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	if err := store.UpdateResumeDraftPreview(ctx, "u1", "Template2-u1", "https://cdn.example/p.jpg"); err != nil {
		t.Fatalf("update preview: %v", err)
	}

	got, err := store.GetResumeDraft(ctx, "u1", "Template2-u1")
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if got.PreviewImageURL != "https://cdn.example/p.jpg" {
		t.Fatalf("preview url not updated: %s", got.PreviewImageURL)
	}
	if !strings.Contains(string(got.FormData), "Karen Richards") {
		t.Fatalf("form data mutated by preview update: %s", got.FormData)
	}
}

func TestSetUserProfile_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profile := &database.UserProfile{UID: "u1", DisplayName: "Alice"}
	if err := store.SetUserProfile(ctx, profile); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	profile.DisplayName = "Alice Updated"
	if err := store.SetUserProfile(ctx, profile); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	got, err := store.GetUserProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.DisplayName != "Alice Updated" {
		t.Fatalf("expected updated display name got %q", got.DisplayName)
	}
}

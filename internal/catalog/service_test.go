package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
	"resumecraft/internal/gateway"
	"resumecraft/internal/notify"
	"resumecraft/internal/session"
)

type recordedNotice struct {
	uid   string
	level notify.Level
	text  string
}

type fakeNotifier struct {
	notices []recordedNotice
}

func (f *fakeNotifier) Notify(_ context.Context, uid string, level notify.Level, text string) {
	f.notices = append(f.notices, recordedNotice{uid: uid, level: level, text: text})
}

type serviceFixture struct {
	service  *Service
	store    *docstore.Store
	notifier *fakeNotifier
	db       *gorm.DB
}

func newServiceFixture(t *testing.T) *serviceFixture {
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
	notifier := &fakeNotifier{}
	service := NewService(NewCache(nil), gateway.New(store), store, session.NewResolver(store), notifier, nil)
	return &serviceFixture{service: service, store: store, notifier: notifier, db: db}
}

func (f *serviceFixture) seedUser(t *testing.T, uid string) *docstore.UserProfileDoc {
	t.Helper()
	if err := f.store.SetUserProfile(context.Background(), &database.UserProfile{UID: uid, DisplayName: "Tester"}); err != nil {
		t.Fatalf("seed user %s: %v", uid, err)
	}
	return &docstore.UserProfileDoc{UID: uid, DisplayName: "Tester"}
}

func (f *serviceFixture) seedTemplate(t *testing.T, id string) *database.Template {
	t.Helper()
	tpl := &database.Template{ID: id, Title: "Classic", Name: "Template1"}
	if err := f.store.SetTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("seed template %s: %v", id, err)
	}
	return tpl
}

func (f *serviceFixture) lastNotice(t *testing.T) recordedNotice {
	t.Helper()
	if len(f.notifier.notices) == 0 {
		t.Fatal("expected at least one notification")
	}
	return f.notifier.notices[len(f.notifier.notices)-1]
}

func TestSaveToCollections_ToggleNotifies(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "u1")
	tpl := f.seedTemplate(t, "tpl-1")

	added, err := f.service.SaveToCollections(ctx, user, tpl)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !added {
		t.Fatal("first toggle should add")
	}
	if n := f.lastNotice(t); n.text != "Template added to collections" || n.level != notify.LevelSuccess {
		t.Fatalf("unexpected notice %+v", n)
	}

	// Service 按传入档案的 Collections 判断成员关系，重读拿到新状态。
	profile, err := f.store.GetUserProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	members, err := docstore.StringMembers(profile.Collections)
	if err != nil {
		t.Fatalf("decode collections: %v", err)
	}
	user.Collections = members

	added, err = f.service.SaveToCollections(ctx, user, tpl)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if added {
		t.Fatal("second toggle should remove")
	}
	if n := f.lastNotice(t); n.text != "Template removed from collections" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestSaveToFavourites_MembershipKeyedByUserUID(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "liker")
	tpl := f.seedTemplate(t, "tpl-fav")

	added, err := f.service.SaveToFavourites(ctx, user, tpl)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !added {
		t.Fatal("expected add")
	}
	if n := f.lastNotice(t); n.text != "Template added to favourites" || n.uid != "liker" {
		t.Fatalf("unexpected notice %+v", n)
	}

	stored, err := f.store.GetTemplate(ctx, "tpl-fav")
	if err != nil {
		t.Fatalf("reload template: %v", err)
	}
	members, err := docstore.StringMembers(stored.Favourites)
	if err != nil {
		t.Fatalf("decode favourites: %v", err)
	}
	if len(members) != 1 || members[0] != "liker" {
		t.Fatalf("favourites should record the liking user's uid, got %v", members)
	}

	added, err = f.service.SaveToFavourites(ctx, user, stored)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if added {
		t.Fatal("second toggle should remove")
	}
	if n := f.lastNotice(t); n.text != "Template removed from favourites" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestToggles_NilUserIsSilentNoop(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	tpl := f.seedTemplate(t, "tpl-anon")

	for _, user := range []*docstore.UserProfileDoc{nil, {UID: ""}} {
		added, err := f.service.SaveToCollections(ctx, user, tpl)
		if err != nil || added {
			t.Fatalf("collections noop: added=%v err=%v", added, err)
		}
		added, err = f.service.SaveToFavourites(ctx, user, tpl)
		if err != nil || added {
			t.Fatalf("favourites noop: added=%v err=%v", added, err)
		}
	}
	if len(f.notifier.notices) != 0 {
		t.Fatalf("anonymous toggles must not notify, got %v", f.notifier.notices)
	}
}

func TestTemplates_FavouriteToggleInvalidatesList(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "u1")
	tpl := f.seedTemplate(t, "tpl-1")

	before := f.service.Templates(ctx, "u1")
	if len(before) != 1 {
		t.Fatalf("expected one template, got %d", len(before))
	}
	if members, _ := docstore.StringMembers(before[0].Favourites); len(members) != 0 {
		t.Fatalf("unexpected favourites %v", members)
	}

	if _, err := f.service.SaveToFavourites(ctx, user, tpl); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	after := f.service.Templates(ctx, "u1")
	if len(after) != 1 {
		t.Fatalf("expected one template, got %d", len(after))
	}
	members, err := docstore.StringMembers(after[0].Favourites)
	if err != nil {
		t.Fatalf("decode favourites: %v", err)
	}
	if len(members) != 1 || members[0] != "u1" {
		t.Fatalf("list should show the new favourite after invalidation, got %v", members)
	}
}

func TestTemplates_FetchFailureNotifiesAndResolvesEmpty(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	templates := f.service.Templates(ctx, "viewer")
	if templates != nil {
		t.Fatalf("expected nil on fetch failure, got %v", templates)
	}
	n := f.lastNotice(t)
	if n.text != "Something went wrong while fetching templates" || n.level != notify.LevelError {
		t.Fatalf("unexpected notice %+v", n)
	}
	if n.uid != "viewer" {
		t.Fatalf("notice should target the viewer, got %q", n.uid)
	}
}

func TestUser_AnonymousResolvesNilSilently(t *testing.T) {
	f := newServiceFixture(t)

	profile := f.service.User(context.Background(), session.StaticStream(nil), "")
	if profile != nil {
		t.Fatalf("expected nil profile, got %+v", profile)
	}
	if len(f.notifier.notices) != 0 {
		t.Fatalf("anonymous resolve must not notify, got %v", f.notifier.notices)
	}
}

func TestSavedResumes_GatedOnResolvedUser(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	if drafts := f.service.SavedResumes(ctx, nil); drafts != nil {
		t.Fatalf("nil user must resolve to nil, got %v", drafts)
	}

	user := f.seedUser(t, "u1")
	if err := f.store.SetResumeDraft(ctx, &database.ResumeDraft{ResumeID: "Template1-u1", UID: "u1"}); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	drafts := f.service.SavedResumes(ctx, user)
	if len(drafts) != 1 || drafts[0].ResumeID != "Template1-u1" {
		t.Fatalf("unexpected drafts %v", drafts)
	}
}

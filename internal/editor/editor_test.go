package editor

import (
	"context"
	"errors"
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

type fakeRenderer struct {
	lastFormat string
	err        error
}

func (f *fakeRenderer) render(format string) ([]byte, error) {
	f.lastFormat = format
	if f.err != nil {
		return nil, f.err
	}
	return []byte(format + "-bytes"), nil
}

func (f *fakeRenderer) RenderJPEG(context.Context, string) ([]byte, error) {
	return f.render("jpeg")
}

func (f *fakeRenderer) RenderPNG(context.Context, string) ([]byte, error) {
	return f.render("png")
}

func (f *fakeRenderer) RenderPDF(context.Context, string) ([]byte, error) {
	return f.render("pdf")
}

func (f *fakeRenderer) RenderSVG(context.Context, string) ([]byte, error) {
	return f.render("svg")
}

type fakeEnqueuer struct {
	calls []string
	err   error
}

func (f *fakeEnqueuer) EnqueuePreviewCapture(_ context.Context, uid, resumeID string) error {
	f.calls = append(f.calls, uid+"/"+resumeID)
	return f.err
}

type fakeInvalidator struct {
	uids []string
}

func (f *fakeInvalidator) InvalidateSavedResumes(_ context.Context, uid string) {
	f.uids = append(f.uids, uid)
}

type editorFixture struct {
	store       *docstore.Store
	gw          *gateway.Gateway
	renderer    *fakeRenderer
	enqueuer    *fakeEnqueuer
	invalidator *fakeInvalidator
	notifier    *fakeNotifier
}

func newEditorFixture(t *testing.T) *editorFixture {
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
	return &editorFixture{
		store:       store,
		gw:          gateway.New(store),
		renderer:    &fakeRenderer{},
		enqueuer:    &fakeEnqueuer{},
		invalidator: &fakeInvalidator{},
		notifier:    &fakeNotifier{},
	}
}

func (f *editorFixture) newEditor(user *docstore.UserProfileDoc, templateName string) *Editor {
	return New(f.gw, f.renderer, f.enqueuer, f.invalidator, f.notifier, nil, user, templateName, "")
}

func TestLoad_NoSavedDraftKeepsDefaults(t *testing.T) {
	f := newEditorFixture(t)
	ed := f.newEditor(&docstore.UserProfileDoc{UID: "u1"}, "Template1")

	if ed.State() != StateLoading {
		t.Fatalf("new editor should start loading, got %v", ed.State())
	}
	if err := ed.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ed.State() != StateReadyView {
		t.Fatalf("load should land in read-only view, got %v", ed.State())
	}
	if ed.Form() != defaultFormData() {
		t.Fatalf("unexpected form %+v", ed.Form())
	}
	if got := len(ed.EducationEntries()); got != 1 {
		t.Fatalf("expected 1 default education entry, got %d", got)
	}
	if got := len(ed.ExperienceEntries()); got != 3 {
		t.Fatalf("expected 3 default experience entries, got %d", got)
	}
	if got := len(ed.SkillEntries()); got != 5 {
		t.Fatalf("expected 5 default skill entries, got %d", got)
	}
}

func TestLoad_AnonymousKeepsDefaults(t *testing.T) {
	f := newEditorFixture(t)
	ed := f.newEditor(nil, "Template1")

	if err := ed.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ed.State() != StateReadyView {
		t.Fatalf("unexpected state %v", ed.State())
	}
	if ed.Form() != defaultFormData() {
		t.Fatalf("unexpected form %+v", ed.Form())
	}
}

func TestLoad_HydratesSavedSectionsOnly(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()

	saved := &database.ResumeDraft{
		ResumeID: "Template1-u1",
		UID:      "u1",
		FormData: []byte(`{"fullname":"Ada Lovelace","email":"ada@example.com"}`),
		Skills:   []byte(`[{"title":"go","percentage":"90"}]`),
	}
	if err := f.store.SetResumeDraft(ctx, saved); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	ed := f.newEditor(&docstore.UserProfileDoc{UID: "u1"}, "Template1")
	if err := ed.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if ed.Form().Fullname != "Ada Lovelace" {
		t.Fatalf("form not hydrated: %+v", ed.Form())
	}
	skills := ed.SkillEntries()
	if len(skills) != 1 || skills[0].Title != "go" {
		t.Fatalf("skills not hydrated: %v", skills)
	}
	// 草稿里没存的小节保持内置默认值。
	if got := len(ed.ExperienceEntries()); got != 3 {
		t.Fatalf("missing sections must keep defaults, got %d experiences", got)
	}
}

func TestResumeKey(t *testing.T) {
	f := newEditorFixture(t)

	ed := f.newEditor(&docstore.UserProfileDoc{UID: "u1"}, "Template3")
	if got := ed.ResumeKey(); got != "Template3-u1" {
		t.Fatalf("unexpected resume key %q", got)
	}

	anon := f.newEditor(nil, "Template3")
	if got := anon.ResumeKey(); got != "Template3-" {
		t.Fatalf("unexpected anonymous resume key %q", got)
	}
}

func TestToggleEdit(t *testing.T) {
	f := newEditorFixture(t)
	ed := f.newEditor(nil, "Template1")
	if err := ed.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := ed.ToggleEdit(); got != StateReadyEdit {
		t.Fatalf("expected edit state, got %v", got)
	}
	if got := ed.ToggleEdit(); got != StateReadyView {
		t.Fatalf("expected view state, got %v", got)
	}
}

func TestSave_RequiresSignedInUser(t *testing.T) {
	f := newEditorFixture(t)
	ed := f.newEditor(nil, "Template1")

	err := ed.Save(context.Background())
	if !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if len(f.notifier.notices) != 1 || f.notifier.notices[0].text != "User not available. Please sign in again." {
		t.Fatalf("unexpected notices %v", f.notifier.notices)
	}
	if len(f.enqueuer.calls) != 0 {
		t.Fatal("failed save must not enqueue a preview capture")
	}
}

func TestSave_PersistsDraftAndSideEffects(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	ed := f.newEditor(&docstore.UserProfileDoc{UID: "u1"}, "Template1")
	if err := ed.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := ed.SetFormField(FormFullname, "Grace Hopper"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	if err := ed.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	stored, err := f.store.GetResumeDraft(ctx, "u1", "Template1-u1")
	if err != nil {
		t.Fatalf("reload draft: %v", err)
	}
	if !strings.Contains(string(stored.FormData), "Grace Hopper") {
		t.Fatalf("draft not persisted: %s", stored.FormData)
	}

	if len(f.enqueuer.calls) != 1 || f.enqueuer.calls[0] != "u1/Template1-u1" {
		t.Fatalf("unexpected preview captures %v", f.enqueuer.calls)
	}
	if len(f.invalidator.uids) != 1 || f.invalidator.uids[0] != "u1" {
		t.Fatalf("unexpected list invalidations %v", f.invalidator.uids)
	}
	last := f.notifier.notices[len(f.notifier.notices)-1]
	if last.text != "Data Saved" || last.level != notify.LevelSuccess {
		t.Fatalf("unexpected notice %+v", last)
	}
}

func TestSave_EnqueueFailureDoesNotBlockSave(t *testing.T) {
	f := newEditorFixture(t)
	f.enqueuer.err = errors.New("queue down")
	ctx := context.Background()
	ed := f.newEditor(&docstore.UserProfileDoc{UID: "u1"}, "Template1")
	if err := ed.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := ed.Save(ctx); err != nil {
		t.Fatalf("save should survive enqueue failure: %v", err)
	}
	if _, err := f.store.GetResumeDraft(ctx, "u1", "Template1-u1"); err != nil {
		t.Fatalf("draft missing after save: %v", err)
	}
	last := f.notifier.notices[len(f.notifier.notices)-1]
	if last.text != "Data Saved" {
		t.Fatalf("unexpected notice %+v", last)
	}
}

func TestExport_RendersRequestedFormat(t *testing.T) {
	f := newEditorFixture(t)
	ed := f.newEditor(&docstore.UserProfileDoc{UID: "u1", DisplayName: "Karen Richards"}, "Template1")
	if err := ed.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	data, filename, err := ed.Export(context.Background(), ExportPDF)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if f.renderer.lastFormat != "pdf" {
		t.Fatalf("wrong renderer invoked: %q", f.renderer.lastFormat)
	}
	if string(data) != "pdf-bytes" {
		t.Fatalf("unexpected payload %q", data)
	}
	if filename != "karen_richards_resume.pdf" {
		t.Fatalf("unexpected filename %q", filename)
	}
	if ed.Exporting() {
		t.Fatal("exporting overlay should clear after export")
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	f := newEditorFixture(t)
	ed := f.newEditor(nil, "Template1")

	if _, _, err := ed.Export(context.Background(), ExportFormat("docx")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestExport_FailureNotifiesAndLeavesSavedDraft(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	ed := f.newEditor(&docstore.UserProfileDoc{UID: "u1"}, "Template1")
	if err := ed.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := ed.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, err := f.store.GetResumeDraft(ctx, "u1", "Template1-u1")
	if err != nil {
		t.Fatalf("reload draft: %v", err)
	}

	f.renderer.err = errors.New("browser crashed")
	if _, _, err := ed.Export(ctx, ExportJPEG); err == nil {
		t.Fatal("expected export failure")
	}
	last := f.notifier.notices[len(f.notifier.notices)-1]
	if last.text != "Unable to capture content at the moment" || last.level != notify.LevelError {
		t.Fatalf("unexpected notice %+v", last)
	}

	after, err := f.store.GetResumeDraft(ctx, "u1", "Template1-u1")
	if err != nil {
		t.Fatalf("reload draft: %v", err)
	}
	if string(after.FormData) != string(before.FormData) || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatal("failed export must not touch the saved draft")
	}
}

func TestExportFileName(t *testing.T) {
	cases := []struct {
		displayName string
		ext         string
		want        string
	}{
		{"Karen Richards", "pdf", "karen_richards_resume.pdf"},
		{"  Ada   Lovelace ", "png", "ada_lovelace_resume.png"},
		{"", "jpeg", "my_resume.jpeg"},
	}
	for _, c := range cases {
		if got := ExportFileName(c.displayName, c.ext); got != c.want {
			t.Fatalf("ExportFileName(%q, %q) = %q, want %q", c.displayName, c.ext, got, c.want)
		}
	}
}

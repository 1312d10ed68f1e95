// Package editor 实现简历草稿编辑的状态机：加载己保存草稿、
// 编辑/预览切换、逐节修改、保存与导出。
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
	"resumecraft/internal/gateway"
	"resumecraft/internal/notify"
	"resumecraft/internal/render"
	"resumecraft/internal/session"
)

// State 是编辑器主状态。Exporting 是独立的叠加态，见 Editor.Exporting。
type State int

const (
	StateLoading State = iota
	StateReadyView
	StateReadyEdit
)

// ExportFormat 标识一种导出格式。
type ExportFormat string

const (
	ExportJPEG ExportFormat = "jpeg"
	ExportPNG  ExportFormat = "png"
	ExportPDF  ExportFormat = "pdf"
	ExportSVG  ExportFormat = "svg"
)

// Renderer 把版式 HTML 渲染为字节流。PDF 输出固定为 A4 纵向。
type Renderer interface {
	RenderJPEG(ctx context.Context, html string) ([]byte, error)
	RenderPNG(ctx context.Context, html string) ([]byte, error)
	RenderPDF(ctx context.Context, html string) ([]byte, error)
	RenderSVG(ctx context.Context, html string) ([]byte, error)
}

// PreviewEnqueuer 在保存后排队一次预览图捕获；排队失败不阻塞保存。
type PreviewEnqueuer interface {
	EnqueuePreviewCapture(ctx context.Context, uid, resumeID string) error
}

// ListInvalidator 在保存成功后让草稿列表缓存失效。
type ListInvalidator interface {
	InvalidateSavedResumes(ctx context.Context, uid string)
}

// Editor 是一个 (模板族, 用户) 草稿的编辑会话。
// 整个会话运行在单个协作流程上，方法不做内部加锁。
type Editor struct {
	gw       *gateway.Gateway
	renderer Renderer
	previews PreviewEnqueuer
	lists    ListInvalidator
	notifier notify.Notifier
	logger   *slog.Logger

	user         *docstore.UserProfileDoc
	templateName string
	templateID   string

	state     State
	exporting bool

	form        FormData
	education   []Education
	experiences []Experience
	skills      []Skill
	profilePic  string
}

// New 构造处于 Loading 态的编辑会话。user 可为 nil（未登录浏览）。
func New(
	gw *gateway.Gateway,
	renderer Renderer,
	previews PreviewEnqueuer,
	lists ListInvalidator,
	notifier notify.Notifier,
	logger *slog.Logger,
	user *docstore.UserProfileDoc,
	templateName string,
	templateID string,
) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Editor{
		gw:           gw,
		renderer:     renderer,
		previews:     previews,
		lists:        lists,
		notifier:     notifier,
		logger:       logger,
		user:         user,
		templateName: templateName,
		templateID:   templateID,
		state:        StateLoading,
		form:         defaultFormData(),
		education:    defaultEducation(),
		experiences:  defaultExperiences(),
		skills:       defaultSkills(),
	}
}

// ResumeKey 返回草稿的复合键 `<模板族名>-<uid>`。
// 同一用户与模板族组合的键稳定，保存永远覆盖同一文档。
func (e *Editor) ResumeKey() string {
	uid := ""
	if e.user != nil {
		uid = e.user.UID
	}
	return e.templateName + "-" + uid
}

// State 返回当前主状态。
func (e *Editor) State() State { return e.state }

// Exporting 报告导出叠加态是否生效。
func (e *Editor) Exporting() bool { return e.exporting }

// Load 拉取复合键对应的已保存草稿并水合各小节；没有保存过的草稿
// 或未登录时保持内置默认值。完成后进入只读的 ReadyView。
func (e *Editor) Load(ctx context.Context) error {
	defer func() { e.state = StateReadyView }()

	if e.user == nil || e.user.UID == "" {
		return nil
	}

	draft, err := e.gw.FetchResumeDraft(ctx, e.user.UID, e.ResumeKey())
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil
		}
		return err
	}
	return e.Hydrate(draft)
}

// Hydrate 用已存草稿覆盖各小节；草稿里缺失的小节保持当前值。
func (e *Editor) Hydrate(draft *database.ResumeDraft) error {
	if draft == nil {
		return nil
	}

	if len(draft.FormData) > 0 {
		var form FormData
		if err := json.Unmarshal(draft.FormData, &form); err != nil {
			return fmt.Errorf("decode form data: %w", err)
		}
		e.form = form
	}
	if len(draft.Education) > 0 {
		var education []Education
		if err := json.Unmarshal(draft.Education, &education); err != nil {
			return fmt.Errorf("decode education: %w", err)
		}
		e.education = education
	}
	if len(draft.Experiences) > 0 {
		var experiences []Experience
		if err := json.Unmarshal(draft.Experiences, &experiences); err != nil {
			return fmt.Errorf("decode experiences: %w", err)
		}
		e.experiences = experiences
	}
	if len(draft.Skills) > 0 {
		var skills []Skill
		if err := json.Unmarshal(draft.Skills, &skills); err != nil {
			return fmt.Errorf("decode skills: %w", err)
		}
		e.skills = skills
	}
	if draft.UserProfilePic != "" {
		e.profilePic = draft.UserProfilePic
	}
	if draft.TemplateID != "" {
		e.templateID = draft.TemplateID
	}
	return nil
}

// ToggleEdit 在 ReadyView 与 ReadyEdit 之间切换，纯本地翻转，无远端副作用。
func (e *Editor) ToggleEdit() State {
	switch e.state {
	case StateReadyView:
		e.state = StateReadyEdit
	case StateReadyEdit:
		e.state = StateReadyView
	}
	return e.state
}

// TemplateID 返回草稿起源的目录模板 id，可为空。
func (e *Editor) TemplateID() string { return e.templateID }

// Form 返回当前表单快照。
func (e *Editor) Form() FormData { return e.form }

// EducationEntries 返回当前教育经历快照。
func (e *Editor) EducationEntries() []Education { return cloneSlice(e.education) }

// ExperienceEntries 返回当前工作经历快照。
func (e *Editor) ExperienceEntries() []Experience { return cloneSlice(e.experiences) }

// SkillEntries 返回当前技能快照。
func (e *Editor) SkillEntries() []Skill { return cloneSlice(e.skills) }

// SetProfilePicture 设置嵌入的头像（data URL）。
func (e *Editor) SetProfilePicture(dataURL string) { e.profilePic = dataURL }

// RemoveProfilePicture 移除头像。
func (e *Editor) RemoveProfilePicture() { e.profilePic = "" }

// ProfilePicture 返回当前头像 data URL，可为空。
func (e *Editor) ProfilePicture() string { return e.profilePic }

// Save 把完整草稿写到复合键之下。需要已登录用户，否则报错并中止。
// 预览图捕获尽力而为：排队失败只记日志，不阻塞表单数据的保存。
// 成功后让草稿列表缓存失效；失败把底层错误原样提示给用户，不重试。
func (e *Editor) Save(ctx context.Context) error {
	if e.user == nil || e.user.UID == "" {
		e.notifier.Notify(ctx, "", notify.LevelError, "User not available. Please sign in again.")
		return session.ErrNotAuthenticated
	}

	draft, err := e.buildDraft()
	if err != nil {
		return err
	}

	if err := e.gw.SaveResumeDraft(ctx, e.user.UID, draft); err != nil {
		e.notifier.Notify(ctx, e.user.UID, notify.LevelError, "Error: "+err.Error())
		return err
	}

	if e.previews != nil {
		if err := e.previews.EnqueuePreviewCapture(ctx, e.user.UID, draft.ResumeID); err != nil {
			e.logger.Warn("enqueue preview capture failed",
				slog.String("resume_id", draft.ResumeID),
				slog.Any("error", err),
			)
		}
	}

	if e.lists != nil {
		e.lists.InvalidateSavedResumes(ctx, e.user.UID)
	}
	e.notifier.Notify(ctx, e.user.UID, notify.LevelSuccess, "Data Saved")
	return nil
}

// Export 把当前版式渲染为指定格式并返回下载文件名。
// 三类导出相互独立：一种失败不影响其他，也都不修改已保存的草稿。
// 导出期间 Exporting 叠加态生效，结束后回到进入时的主状态。
func (e *Editor) Export(ctx context.Context, format ExportFormat) (data []byte, filename string, err error) {
	e.exporting = true
	defer func() { e.exporting = false }()

	draft, err := e.buildDraft()
	if err != nil {
		return nil, "", err
	}
	doc, err := render.DocumentFromDraft(draft)
	if err != nil {
		return nil, "", err
	}
	html := render.DraftHTML(doc)

	switch format {
	case ExportJPEG:
		data, err = e.renderer.RenderJPEG(ctx, html)
	case ExportPNG:
		data, err = e.renderer.RenderPNG(ctx, html)
	case ExportPDF:
		data, err = e.renderer.RenderPDF(ctx, html)
	case ExportSVG:
		data, err = e.renderer.RenderSVG(ctx, html)
	default:
		return nil, "", fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		uid := ""
		if e.user != nil {
			uid = e.user.UID
		}
		e.notifier.Notify(ctx, uid, notify.LevelError, "Unable to capture content at the moment")
		return nil, "", err
	}

	displayName := ""
	if e.user != nil {
		displayName = e.user.DisplayName
	}
	return data, ExportFileName(displayName, string(format)), nil
}

func (e *Editor) buildDraft() (*database.ResumeDraft, error) {
	formRaw, err := json.Marshal(e.form)
	if err != nil {
		return nil, fmt.Errorf("encode form data: %w", err)
	}
	educationRaw, err := json.Marshal(e.education)
	if err != nil {
		return nil, fmt.Errorf("encode education: %w", err)
	}
	experiencesRaw, err := json.Marshal(e.experiences)
	if err != nil {
		return nil, fmt.Errorf("encode experiences: %w", err)
	}
	skillsRaw, err := json.Marshal(e.skills)
	if err != nil {
		return nil, fmt.Errorf("encode skills: %w", err)
	}

	uid := ""
	if e.user != nil {
		uid = e.user.UID
	}
	return &database.ResumeDraft{
		ResumeID:       e.ResumeKey(),
		UID:            uid,
		TemplateID:     e.templateID,
		FormData:       formRaw,
		Education:      educationRaw,
		Experiences:    experiencesRaw,
		Skills:         skillsRaw,
		UserProfilePic: e.profilePic,
	}, nil
}

// ExportFileName 由显示名派生下载文件名：小写、内部空白折叠为下划线。
func ExportFileName(displayName, ext string) string {
	name := strings.Join(strings.Fields(strings.ToLower(displayName)), "_")
	if name == "" {
		name = "my"
	}
	return name + "_resume." + ext
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"resumecraft/internal/api/middleware"
	"resumecraft/internal/catalog"
	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
	"resumecraft/internal/editor"
	"resumecraft/internal/gateway"
	"resumecraft/internal/metrics"
	"resumecraft/internal/notify"
	"resumecraft/internal/session"
	"resumecraft/internal/tasks"
)

// AsynqPreviewEnqueuer 通过任务队列排队预览图捕获。
type AsynqPreviewEnqueuer struct {
	client *asynq.Client
}

func NewAsynqPreviewEnqueuer(client *asynq.Client) *AsynqPreviewEnqueuer {
	return &AsynqPreviewEnqueuer{client: client}
}

func (e *AsynqPreviewEnqueuer) EnqueuePreviewCapture(ctx context.Context, uid, resumeID string) error {
	task, err := tasks.NewPreviewCaptureTask(uid, resumeID, uuid.NewString())
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	)
	return err
}

// ResumeHandler 围绕草稿编辑会话暴露 HTTP 接口。
// 每个请求构造一次性的编辑会话：加载、套用提交内容、保存或导出。
type ResumeHandler struct {
	catalog  *catalog.Service
	gw       *gateway.Gateway
	renderer editor.Renderer
	previews editor.PreviewEnqueuer
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewResumeHandler(
	catalogService *catalog.Service,
	gw *gateway.Gateway,
	renderer editor.Renderer,
	previews editor.PreviewEnqueuer,
	notifier notify.Notifier,
	logger *slog.Logger,
) *ResumeHandler {
	return &ResumeHandler{
		catalog:  catalogService,
		gw:       gw,
		renderer: renderer,
		previews: previews,
		notifier: notifier,
		logger:   logger,
	}
}

type resumeListItem struct {
	ResumeID        string    `json:"resumeId"`
	TemplateID      string    `json:"templateId,omitempty"`
	PreviewImageURL string    `json:"previewImageURL,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// GET /api/v1/resumes
// 返回当前用户保存过的全部草稿。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	cred := middleware.CredentialFromContext(c)
	if cred == nil {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	user := h.catalog.User(ctx, session.StaticStream(cred), cred.UID)
	if user == nil {
		Internal(c, "failed to load profile")
		return
	}

	drafts := h.catalog.SavedResumes(ctx, user)
	items := make([]resumeListItem, 0, len(drafts))
	for _, d := range drafts {
		items = append(items, resumeListItem{
			ResumeID:        d.ResumeID,
			TemplateID:      d.TemplateID,
			PreviewImageURL: d.PreviewImageURL,
			UpdatedAt:       d.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

type draftPayload struct {
	TemplateID  string              `json:"templateId"`
	FormData    *editor.FormData    `json:"formData"`
	Education   []editor.Education  `json:"education"`
	Experiences []editor.Experience `json:"experiences"`
	Skills      []editor.Skill      `json:"skills"`
	ProfilePic  *string             `json:"userProfilePic"`
}

type draftResponse struct {
	ResumeID    string              `json:"resumeId"`
	TemplateID  string              `json:"templateId,omitempty"`
	FormData    editor.FormData     `json:"formData"`
	Education   []editor.Education  `json:"education"`
	Experiences []editor.Experience `json:"experiences"`
	Skills      []editor.Skill      `json:"skills"`
	ProfilePic  string              `json:"userProfilePic,omitempty"`
}

// GET /api/v1/resumes/:templateName
// 未登录或没有历史草稿时返回默认内容，不视为错误。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	templateName := c.Param("templateName")
	if templateName == "" {
		BadRequest(c, "invalid template name")
		return
	}

	ctx := c.Request.Context()
	sess := h.newSession(c, templateName, "")
	if err := sess.Load(ctx); err != nil {
		middleware.LoggerFromContext(c).Error("load draft failed", slog.Any("error", err))
		Internal(c, "failed to load resume")
		return
	}

	c.JSON(http.StatusOK, h.toDraftResponse(sess))
}

// PUT /api/v1/resumes/:templateName
// 保存走复合键 `<模板族名>-<uid>`：同一组合永远覆盖同一文档，后写赢。
func (h *ResumeHandler) SaveResume(c *gin.Context) {
	cred := middleware.CredentialFromContext(c)
	if cred == nil {
		AbortUnauthorized(c)
		return
	}

	templateName := c.Param("templateName")
	if templateName == "" {
		BadRequest(c, "invalid template name")
		return
	}

	var payload draftPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	sess := h.newSession(c, templateName, payload.TemplateID)
	if err := sess.Load(ctx); err != nil {
		middleware.LoggerFromContext(c).Error("load draft failed", slog.Any("error", err))
		Internal(c, "failed to load resume")
		return
	}

	incoming, err := draftFromPayload(payload)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := sess.Hydrate(incoming); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if payload.ProfilePic != nil {
		sess.SetProfilePicture(*payload.ProfilePic)
	}

	if err := sess.Save(ctx); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			AbortUnauthorized(c)
			return
		}
		middleware.LoggerFromContext(c).Error("save draft failed", slog.Any("error", err))
		Internal(c, "failed to save resume")
		return
	}

	c.JSON(http.StatusOK, h.toDraftResponse(sess))
}

// GET /api/v1/resumes/:templateName/export?format=pdf
// 三类导出相互独立，失败不影响已保存的草稿。
func (h *ResumeHandler) ExportResume(c *gin.Context) {
	templateName := c.Param("templateName")
	if templateName == "" {
		BadRequest(c, "invalid template name")
		return
	}

	format := editor.ExportFormat(c.DefaultQuery("format", "pdf"))
	contentType, ok := exportContentTypes[format]
	if !ok {
		BadRequest(c, "unsupported export format")
		return
	}

	ctx := c.Request.Context()
	sess := h.newSession(c, templateName, "")
	if err := sess.Load(ctx); err != nil {
		middleware.LoggerFromContext(c).Error("load draft failed", slog.Any("error", err))
		Internal(c, "failed to load resume")
		return
	}

	data, filename, err := sess.Export(ctx, format)
	metrics.CountExport(string(format), err == nil)
	if err != nil {
		middleware.LoggerFromContext(c).Error("export failed",
			slog.String("format", string(format)),
			slog.Any("error", err),
		)
		Internal(c, "failed to export resume")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

var exportContentTypes = map[editor.ExportFormat]string{
	editor.ExportJPEG: "image/jpeg",
	editor.ExportPNG:  "image/png",
	editor.ExportPDF:  "application/pdf",
	editor.ExportSVG:  "image/svg+xml",
}

// newSession 为当前请求构造编辑会话；匿名请求的 user 为 nil。
func (h *ResumeHandler) newSession(c *gin.Context, templateName, templateID string) *editor.Editor {
	var user *docstore.UserProfileDoc
	if cred := middleware.CredentialFromContext(c); cred != nil {
		user = h.catalog.User(c.Request.Context(), session.StaticStream(cred), cred.UID)
	}
	return editor.New(h.gw, h.renderer, h.previews, h.catalog, h.notifier, h.logger, user, templateName, templateID)
}

func (h *ResumeHandler) toDraftResponse(sess *editor.Editor) draftResponse {
	return draftResponse{
		ResumeID:    sess.ResumeKey(),
		TemplateID:  sess.TemplateID(),
		FormData:    sess.Form(),
		Education:   sess.EducationEntries(),
		Experiences: sess.ExperienceEntries(),
		Skills:      sess.SkillEntries(),
		ProfilePic:  sess.ProfilePicture(),
	}
}

func draftFromPayload(payload draftPayload) (*database.ResumeDraft, error) {
	draft := &database.ResumeDraft{TemplateID: payload.TemplateID}

	if payload.FormData != nil {
		raw, err := json.Marshal(payload.FormData)
		if err != nil {
			return nil, err
		}
		draft.FormData = raw
	}
	if payload.Education != nil {
		raw, err := json.Marshal(payload.Education)
		if err != nil {
			return nil, err
		}
		draft.Education = raw
	}
	if payload.Experiences != nil {
		raw, err := json.Marshal(payload.Experiences)
		if err != nil {
			return nil, err
		}
		draft.Experiences = raw
	}
	if payload.Skills != nil {
		raw, err := json.Marshal(payload.Skills)
		if err != nil {
			return nil, err
		}
		draft.Skills = raw
	}
	return draft, nil
}

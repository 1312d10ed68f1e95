package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"resumecraft/internal/api/middleware"
	"resumecraft/internal/catalog"
	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
	"resumecraft/internal/gateway"
	"resumecraft/internal/storage"
)

// TemplateHandler 负责模板目录的读取与管理端维护。
type TemplateHandler struct {
	catalog   *catalog.Service
	store     *docstore.Store
	storage   *storage.Client
	logger    *slog.Logger
	clamdAddr string
}

func NewTemplateHandler(catalogService *catalog.Service, store *docstore.Store, storageClient *storage.Client, logger *slog.Logger, clamdAddr string) *TemplateHandler {
	return &TemplateHandler{
		catalog:   catalogService,
		store:     store,
		storage:   storageClient,
		logger:    logger,
		clamdAddr: clamdAddr,
	}
}

type templateItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"imageURL"`
	Tags       []string  `json:"tags"`
	Favourites []string  `json:"favourites"`
	Timestamp  time.Time `json:"timestamp"`
}

func toTemplateItem(t *database.Template) templateItem {
	return templateItem{
		ID:         t.ID,
		Title:      t.Title,
		Name:       t.Name,
		ImageURL:   t.ImageURL,
		Tags:       stringList(t.Tags),
		Favourites: stringList(t.Favourites),
		Timestamp:  t.Timestamp,
	}
}

// stringList 解码 jsonb 数组字段；坏数据按空集合处理，不让响应失败。
func stringList(raw []byte) []string {
	members, err := docstore.StringMembers(raw)
	if err != nil || members == nil {
		return []string{}
	}
	return members
}

// GET /api/v1/templates
// 列表按创建时间升序返回；允许匿名访问。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	viewerUID := ""
	if cred := middleware.CredentialFromContext(c); cred != nil {
		viewerUID = cred.UID
	}

	templates := h.catalog.Templates(c.Request.Context(), viewerUID)
	items := make([]templateItem, 0, len(templates))
	for i := range templates {
		items = append(items, toTemplateItem(&templates[i]))
	}
	c.JSON(http.StatusOK, items)
}

// GET /api/v1/templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.catalog.TemplateDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidArgument):
			BadRequest(c, "invalid template id")
		case errors.Is(err, gateway.ErrNotFound):
			NotFound(c, "template not found")
		default:
			Internal(c, "failed to query template")
		}
		return
	}
	c.JSON(http.StatusOK, toTemplateItem(tpl))
}

// 版式图片只收常见位图格式。
var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// POST /api/v1/admin/templates
// 管理端创建模板：multipart 携带标题、标签与版式图片。
// 族名由服务端按现有数量计算，保证 Template1、Template2 连续编号。
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		BadRequest(c, "missing title")
		return
	}
	tags := splitTags(c.PostForm("tags"))

	file, err := c.FormFile("image")
	if err != nil {
		BadRequest(c, "missing image")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		BadRequest(c, "unsupported image type")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	if h.clamdAddr != "" {
		clean, err := h.scanUpload(file)
		if err != nil {
			logger.Error("scan template image failed", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
		if !clean {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer fileReader.Close()

	ext := strings.ToLower(path.Ext(file.Filename))
	if ext == "" {
		ext = ".png"
	}
	objectKey := fmt.Sprintf("template-images/%s%s", uuid.NewString(), ext)

	imageURL, err := h.storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType, func(transferred, total int64) {
		logger.Debug("template image upload progress",
			slog.Int64("transferred", transferred),
			slog.Int64("total", total),
		)
	})
	if err != nil {
		logger.Error("upload template image failed", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	count, err := h.store.CountTemplates(ctx)
	if err != nil {
		logger.Error("count templates failed", slog.Any("error", err))
		Internal(c, "failed to create template")
		return
	}

	tpl := &database.Template{
		ID:       uuid.NewString(),
		Title:    title,
		Name:     fmt.Sprintf("Template%d", count+1),
		ImageURL: imageURL,
	}
	if len(tags) > 0 {
		tpl.Tags = mustJSON(tags)
	}

	if err := h.store.SetTemplate(ctx, tpl); err != nil {
		logger.Error("create template failed", slog.Any("error", err))
		// 文档没落下，把刚传的图片清掉，避免产生孤儿对象。
		if delErr := h.storage.DeleteObject(ctx, objectKey); delErr != nil {
			logger.Warn("cleanup template image failed", slog.Any("error", delErr))
		}
		Internal(c, "failed to create template")
		return
	}

	h.catalog.InvalidateTemplates(ctx)
	logger.Info("template created", slog.String("template_id", tpl.ID), slog.String("name", tpl.Name))

	c.JSON(http.StatusCreated, toTemplateItem(tpl))
}

// DELETE /api/v1/admin/templates/:id
// 删除分两步：先删存储里的版式图片，再删文档本身。
// 第二步失败留下的孤儿对象交给后台清扫任务。
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		BadRequest(c, "invalid template id")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	tpl, err := h.store.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			NotFound(c, "template not found")
			return
		}
		logger.Error("query template failed", slog.Any("error", err))
		Internal(c, "failed to delete template")
		return
	}

	if err := h.storage.DeleteByURL(ctx, tpl.ImageURL); err != nil {
		logger.Error("delete template image failed", slog.Any("error", err))
		Internal(c, "failed to delete template")
		return
	}

	if err := h.store.DeleteTemplate(ctx, id); err != nil {
		logger.Error("delete template doc failed", slog.Any("error", err))
		Internal(c, "failed to delete template")
		return
	}

	h.catalog.InvalidateTemplates(ctx)
	logger.Info("template deleted", slog.String("template_id", id))

	c.Status(http.StatusNoContent)
}

func (h *TemplateHandler) scanUpload(file *multipart.FileHeader) (clean bool, err error) {
	clamdClient := clamd.NewClamd(h.clamdAddr)

	fileReader, err := file.Open()
	if err != nil {
		return false, err
	}

	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	fileReader.Close()
	if err != nil {
		return false, err
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return false, nil
		}
	}
	return true, nil
}

func mustJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

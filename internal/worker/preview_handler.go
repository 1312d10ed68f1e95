package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"

	"resumecraft/internal/catalog"
	"resumecraft/internal/docstore"
	"resumecraft/internal/notify"
	"resumecraft/internal/render"
	"resumecraft/internal/storage"
	"resumecraft/internal/tasks"
)

// PreviewRenderer 抽象出渲染能力，便于测试时注入假实现。
type PreviewRenderer interface {
	RenderJPEG(ctx context.Context, html string) ([]byte, error)
}

// PreviewUploader 抽象出对象上传能力；生产时为 *storage.Client。
type PreviewUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string, progress storage.ProgressFunc) (string, error)
}

// ListInvalidator 广播缓存失效，令各 API 实例丢弃过期的草稿列表。
type ListInvalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

// PreviewHandler 负责消费简历预览图生成任务。
type PreviewHandler struct {
	store       *docstore.Store
	storage     PreviewUploader
	renderer    PreviewRenderer
	notifier    notify.Notifier
	invalidator ListInvalidator
	logger      *slog.Logger
}

// NewPreviewHandler 创建任务处理器。
func NewPreviewHandler(
	store *docstore.Store,
	uploader PreviewUploader,
	renderer PreviewRenderer,
	notifier notify.Notifier,
	invalidator ListInvalidator,
	logger *slog.Logger,
) *PreviewHandler {
	return &PreviewHandler{
		store:       store,
		storage:     uploader,
		renderer:    renderer,
		notifier:    notifier,
		invalidator: invalidator,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PreviewHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PreviewCapturePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("uid", payload.UID),
		slog.String("resume_id", payload.ResumeID),
	)
	log.Info("Starting resume preview capture task...")

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAttempt(ctx) {
			return
		}
		// 预览是锦上添花，最终失败只告知用户，不影响已保存的数据。
		h.notifier.Notify(ctx, payload.UID, notify.LevelError, "Unable to capture content at the moment")
	}()

	draft, err := h.store.GetResumeDraft(ctx, payload.UID, payload.ResumeID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			log.Warn("resume draft not found, skipping task")
			return nil
		}
		log.Error("query resume draft failed", slog.Any("error", err))
		return err
	}

	doc, err := render.DocumentFromDraft(draft)
	if err != nil {
		log.Error("decode draft sections failed", slog.Any("error", err))
		return err
	}

	previewBytes, err := h.renderer.RenderJPEG(ctx, render.DraftHTML(doc))
	if err != nil {
		log.Error("capture preview screenshot failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("previews/%s/%s.jpg", payload.UID, payload.ResumeID)
	previewURL, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(previewBytes), int64(len(previewBytes)), "image/jpeg", nil)
	if err != nil {
		log.Error("upload preview image failed", slog.Any("error", err))
		return err
	}

	if err := h.store.UpdateResumeDraftPreview(ctx, payload.UID, payload.ResumeID, previewURL); err != nil {
		log.Error("update draft preview url failed", slog.Any("error", err))
		return err
	}

	// 预览 URL 已变，各实例缓存的草稿列表必须重新拉取。
	h.invalidator.Invalidate(ctx, catalog.SavedResumesKey(payload.UID))
	h.notifier.Notify(ctx, payload.UID, notify.LevelSuccess, "Resume preview is ready")

	log.Info("Resume preview capture completed.")
	return nil
}

func isFinalAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}

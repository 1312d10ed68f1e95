package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"resumecraft/internal/docstore"
	"resumecraft/internal/storage"
)

// 对象新于该窗口时跳过清理，避免误删刚上传、文档尚未写入的图片。
const sweepGracePeriod = time.Hour

// 模板删除分两步：先删对象再删文档。中途失败会留下孤儿对象，
// SweepHandler 周期性扫描并清理这些无人引用的文件。
type SweepHandler struct {
	store   *docstore.Store
	storage *storage.Client
	logger  *slog.Logger
}

func NewSweepHandler(store *docstore.Store, storageClient *storage.Client, logger *slog.Logger) *SweepHandler {
	return &SweepHandler{
		store:   store,
		storage: storageClient,
		logger:  logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *SweepHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	log := h.logger
	log.Info("Starting orphan object sweep...")

	imageURLs, err := h.store.ListTemplateImageURLs(ctx)
	if err != nil {
		log.Error("list template image urls failed", slog.Any("error", err))
		return err
	}

	referenced := make(map[string]struct{}, len(imageURLs))
	for _, rawURL := range imageURLs {
		if key := h.storage.ObjectKeyFromURL(rawURL); key != "" {
			referenced[key] = struct{}{}
		}
	}

	objects, err := h.storage.ListObjects(ctx, "template-images/", 0)
	if err != nil {
		log.Error("list bucket objects failed", slog.Any("error", err))
		return err
	}

	cutoff := time.Now().Add(-sweepGracePeriod)
	removed := 0
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := h.storage.DeleteObject(ctx, obj.Key); err != nil {
			log.Warn("delete orphan object failed",
				slog.String("object_key", obj.Key),
				slog.Any("error", err),
			)
			continue
		}
		removed++
	}

	log.Info("Orphan object sweep completed.",
		slog.Int("scanned", len(objects)),
		slog.Int("removed", removed),
	)
	return nil
}

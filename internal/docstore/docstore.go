// Package docstore 提供文档存储原语：按 id 读取、按时间戳排序查询、
// 整文档覆盖写入（upsert）、命名数组字段的原子成员增删，以及
// 初始快照 + 变更通知的订阅原语。
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resumecraft/internal/database"
)

// ErrNotFound 表示指定 id 的文档不存在。
var ErrNotFound = errors.New("document not found")

// Store 基于 GORM 实现文档存储契约；redis 仅用于跨实例的变更通知，
// 传 nil 时订阅退化为仅初始快照。
type Store struct {
	db    *gorm.DB
	redis redis.UniversalClient
}

// NewStore 构造 Store。
func NewStore(db *gorm.DB, redisClient redis.UniversalClient) *Store {
	return &Store{db: db, redis: redisClient}
}

// GetUserProfile 按 uid 读取用户档案。
func (s *Store) GetUserProfile(ctx context.Context, uid string) (*database.UserProfile, error) {
	var profile database.UserProfile
	if err := s.db.WithContext(ctx).First(&profile, "uid = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user profile %q: %w", uid, err)
	}
	return &profile, nil
}

// SetUserProfile 整文档覆盖写入用户档案（upsert）。
func (s *Store) SetUserProfile(ctx context.Context, profile *database.UserProfile) error {
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(profile).Error; err != nil {
		return fmt.Errorf("set user profile %q: %w", profile.UID, err)
	}
	s.publishChange(ctx, userChangeChannel(profile.UID))
	return nil
}

// GetTemplate 按 id 读取模板。
func (s *Store) GetTemplate(ctx context.Context, id string) (*database.Template, error) {
	var tpl database.Template
	if err := s.db.WithContext(ctx).First(&tpl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get template %q: %w", id, err)
	}
	return &tpl, nil
}

// ListTemplates 返回全部模板，按服务端创建时间升序。
func (s *Store) ListTemplates(ctx context.Context) ([]database.Template, error) {
	var templates []database.Template
	if err := s.db.WithContext(ctx).
		Order("timestamp ASC").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// CountTemplates 返回目录中的模板数量。
func (s *Store) CountTemplates(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&database.Template{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}

// SetTemplate 写入模板文档；时间戳由服务端赋值。
func (s *Store) SetTemplate(ctx context.Context, tpl *database.Template) error {
	if tpl.Timestamp.IsZero() {
		tpl.Timestamp = time.Now()
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(tpl).Error; err != nil {
		return fmt.Errorf("set template %q: %w", tpl.ID, err)
	}
	return nil
}

// DeleteTemplate 删除模板文档；文档不存在视为成功（幂等）。
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&database.Template{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete template %q: %w", id, err)
	}
	return nil
}

// ListTemplateImageURLs 返回目录中全部模板的图片 URL，供孤儿清理使用。
func (s *Store) ListTemplateImageURLs(ctx context.Context) ([]string, error) {
	var urls []string
	if err := s.db.WithContext(ctx).
		Model(&database.Template{}).
		Pluck("image_url", &urls).Error; err != nil {
		return nil, fmt.Errorf("list template image urls: %w", err)
	}
	return urls, nil
}

// GetResumeDraft 按 (uid, 复合键) 读取草稿。
func (s *Store) GetResumeDraft(ctx context.Context, uid, resumeID string) (*database.ResumeDraft, error) {
	var draft database.ResumeDraft
	if err := s.db.WithContext(ctx).
		First(&draft, "uid = ? AND resume_id = ?", uid, resumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resume draft %q/%q: %w", uid, resumeID, err)
	}
	return &draft, nil
}

// ListResumeDrafts 返回某个用户的全部草稿。
func (s *Store) ListResumeDrafts(ctx context.Context, uid string) ([]database.ResumeDraft, error) {
	var drafts []database.ResumeDraft
	if err := s.db.WithContext(ctx).
		Where("uid = ?", uid).
		Find(&drafts).Error; err != nil {
		return nil, fmt.Errorf("list resume drafts for %q: %w", uid, err)
	}
	return drafts, nil
}

// SetResumeDraft 按复合键覆盖写入草稿（upsert），保存时间由服务端赋值。
// 并发保存不做乐观并发检查，后写者赢。
func (s *Store) SetResumeDraft(ctx context.Context, draft *database.ResumeDraft) error {
	draft.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(draft).Error; err != nil {
		return fmt.Errorf("set resume draft %q/%q: %w", draft.UID, draft.ResumeID, err)
	}
	return nil
}

// UpdateResumeDraftPreview 仅更新草稿的预览图 URL，不动表单内容。
func (s *Store) UpdateResumeDraftPreview(ctx context.Context, uid, resumeID, previewURL string) error {
	if err := s.db.WithContext(ctx).
		Model(&database.ResumeDraft{}).
		Where("uid = ? AND resume_id = ?", uid, resumeID).
		Update("preview_image_url", previewURL).Error; err != nil {
		return fmt.Errorf("update draft preview %q/%q: %w", uid, resumeID, err)
	}
	return nil
}

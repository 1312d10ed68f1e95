package catalog

import (
	"context"
	"errors"
	"log/slog"

	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
	"resumecraft/internal/gateway"
	"resumecraft/internal/notify"
	"resumecraft/internal/session"
)

// Service 面向各个页面暴露目录数据与切换操作。
// 读路径走缓存；所有写操作显式失效相关键，让依赖方拿到新数据。
type Service struct {
	cache    *Cache
	gw       *gateway.Gateway
	store    *docstore.Store
	resolver *session.Resolver
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewService 构造 Service。
func NewService(cache *Cache, gw *gateway.Gateway, store *docstore.Store, resolver *session.Resolver, notifier notify.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:    cache,
		gw:       gw,
		store:    store,
		resolver: resolver,
		notifier: notifier,
		logger:   logger,
	}
}

// Templates 返回模板列表（升序）。拉取失败时通知一次并解析为空列表，
// 而不是让调用方停在永久加载态。
func (s *Service) Templates(ctx context.Context, viewerUID string) []database.Template {
	value, err := s.cache.Get(ctx, KeyTemplates, func(ctx context.Context) (any, error) {
		return s.gw.FetchTemplateList(ctx)
	})
	if err != nil {
		s.logger.Error("fetch templates failed", slog.Any("error", err))
		s.notifier.Notify(ctx, viewerUID, notify.LevelError, "Something went wrong while fetching templates")
		return nil
	}
	templates, _ := value.([]database.Template)
	return templates
}

// TemplateDetail 按 id 读取模板详情，错误原样上抛（含 NotFound/InvalidArgument）。
func (s *Service) TemplateDetail(ctx context.Context, id string) (*database.Template, error) {
	return s.gw.FetchTemplateByID(ctx, id)
}

// User 解析当前用户档案。未登录属预期情况：静默解析为 nil，不通知。
// 其余错误通知一次并同样解析为 nil。
func (s *Service) User(ctx context.Context, stream session.AuthStateStream, uid string) *docstore.UserProfileDoc {
	value, err := s.cache.Get(ctx, UserKey(uid), func(ctx context.Context) (any, error) {
		profile, err := s.resolver.Resolve(ctx, stream)
		if err != nil {
			if errors.Is(err, session.ErrNotAuthenticated) {
				return (*docstore.UserProfileDoc)(nil), nil
			}
			return nil, err
		}
		return profile, nil
	})
	if err != nil {
		s.logger.Error("resolve user failed", slog.Any("error", err))
		s.notifier.Notify(ctx, uid, notify.LevelError, "Something went wrong....")
		return nil
	}
	profile, _ := value.(*docstore.UserProfileDoc)
	return profile
}

// SavedResumes 返回用户的草稿列表。拉取被闸门保护：用户未解析为
// 非空前绝不执行，避免查询一个需要 uid 的路径。
func (s *Service) SavedResumes(ctx context.Context, user *docstore.UserProfileDoc) []database.ResumeDraft {
	if user == nil || user.UID == "" {
		return nil
	}

	value, err := s.cache.Get(ctx, SavedResumesKey(user.UID), func(ctx context.Context) (any, error) {
		return s.gw.FetchUserResumeList(ctx, user.UID)
	})
	if err != nil {
		s.logger.Error("fetch saved resumes failed", slog.Any("error", err))
		s.notifier.Notify(ctx, user.UID, notify.LevelError, "Something went wrong while fetching resumes")
		return nil
	}
	drafts, _ := value.([]database.ResumeDraft)
	return drafts
}

// InvalidateSavedResumes 在草稿保存后让列表键失效。
func (s *Service) InvalidateSavedResumes(ctx context.Context, uid string) {
	s.cache.Invalidate(ctx, SavedResumesKey(uid))
}

// SaveToCollections 切换模板在用户 collections 中的成员关系。
// 幂等切换：在则移除（报告 removed），不在则加入（报告 added）。
// user 为空时静默不做任何写入（避免匿名写），由调用方前置检查保证。
func (s *Service) SaveToCollections(ctx context.Context, user *docstore.UserProfileDoc, tpl *database.Template) (added bool, err error) {
	if user == nil || user.UID == "" {
		return false, nil
	}

	if contains(user.Collections, tpl.ID) {
		if err := s.store.RemoveFromUserCollections(ctx, user.UID, tpl.ID); err != nil {
			s.notifier.Notify(ctx, user.UID, notify.LevelError, "Error: "+err.Error())
			return false, err
		}
		s.notifier.Notify(ctx, user.UID, notify.LevelSuccess, "Template removed from collections")
		added = false
	} else {
		if err := s.store.AddToUserCollections(ctx, user.UID, tpl.ID); err != nil {
			s.notifier.Notify(ctx, user.UID, notify.LevelError, "Error: "+err.Error())
			return false, err
		}
		s.notifier.Notify(ctx, user.UID, notify.LevelSuccess, "Template added to collections")
		added = true
	}

	s.cache.Invalidate(ctx, UserKey(user.UID))
	return added, nil
}

// SaveToFavourites 切换当前用户 uid 在模板 favourites 中的成员关系。
// "点赞"归属于内容侧，所以写的是模板文档的 favourites 字段。
func (s *Service) SaveToFavourites(ctx context.Context, user *docstore.UserProfileDoc, tpl *database.Template) (added bool, err error) {
	if user == nil || user.UID == "" {
		return false, nil
	}

	favourites, err := docstore.StringMembers(tpl.Favourites)
	if err != nil {
		return false, err
	}

	if contains(favourites, user.UID) {
		if err := s.store.RemoveFromTemplateFavourites(ctx, tpl.ID, user.UID); err != nil {
			s.notifier.Notify(ctx, user.UID, notify.LevelError, "Error: "+err.Error())
			return false, err
		}
		s.notifier.Notify(ctx, user.UID, notify.LevelSuccess, "Template removed from favourites")
		added = false
	} else {
		if err := s.store.AddToTemplateFavourites(ctx, tpl.ID, user.UID); err != nil {
			s.notifier.Notify(ctx, user.UID, notify.LevelError, "Error: "+err.Error())
			return false, err
		}
		s.notifier.Notify(ctx, user.UID, notify.LevelSuccess, "Template added to favourites")
		added = true
	}

	s.cache.Invalidate(ctx, KeyTemplates)
	return added, nil
}

// InvalidateTemplates 在模板创建/删除后让列表键失效。
func (s *Service) InvalidateTemplates(ctx context.Context) {
	s.cache.Invalidate(ctx, KeyTemplates)
}

func contains(members []string, value string) bool {
	for _, m := range members {
		if m == value {
			return true
		}
	}
	return false
}

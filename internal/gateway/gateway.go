// Package gateway 是对远端文档集合的薄封装：模板目录、用户档案与
// 每用户简历草稿的单次读写。所有操作一次完成、不重试，传输错误原样
// 上抛，由调用方决定是否对用户可见。
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
)

var (
	// ErrInvalidArgument 表示缺少必要的 id 参数。
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound 表示目标文档不存在。
	ErrNotFound = errors.New("not found")
)

// Gateway 持有文档存储并暴露四个逻辑操作。
type Gateway struct {
	store *docstore.Store
}

// New 构造 Gateway。
func New(store *docstore.Store) *Gateway {
	return &Gateway{store: store}
}

// FetchTemplateList 返回全部模板，按服务端创建时间升序。
func (g *Gateway) FetchTemplateList(ctx context.Context) ([]database.Template, error) {
	return g.store.ListTemplates(ctx)
}

// FetchTemplateByID 按 id 读取模板。
// id 为空时返回 ErrInvalidArgument 而不是 ErrNotFound。
func (g *Gateway) FetchTemplateByID(ctx context.Context, id string) (*database.Template, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: template id is required", ErrInvalidArgument)
	}

	tpl, err := g.store.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: template %q", ErrNotFound, id)
		}
		return nil, err
	}
	return tpl, nil
}

// FetchUserResumeList 返回用户保存过的全部草稿。
func (g *Gateway) FetchUserResumeList(ctx context.Context, uid string) ([]database.ResumeDraft, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrInvalidArgument)
	}
	return g.store.ListResumeDrafts(ctx, uid)
}

// FetchResumeDraft 按复合键读取单份草稿，不存在时返回 ErrNotFound。
func (g *Gateway) FetchResumeDraft(ctx context.Context, uid, resumeID string) (*database.ResumeDraft, error) {
	if strings.TrimSpace(uid) == "" || strings.TrimSpace(resumeID) == "" {
		return nil, fmt.Errorf("%w: uid and resume id are required", ErrInvalidArgument)
	}

	draft, err := g.store.GetResumeDraft(ctx, uid, resumeID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: draft %q", ErrNotFound, resumeID)
		}
		return nil, err
	}
	return draft, nil
}

// SaveResumeDraft 以复合键覆盖写入草稿（upsert），无乐观并发检查。
func (g *Gateway) SaveResumeDraft(ctx context.Context, uid string, draft *database.ResumeDraft) error {
	if strings.TrimSpace(uid) == "" {
		return fmt.Errorf("%w: uid is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(draft.ResumeID) == "" {
		return fmt.Errorf("%w: resume id is required", ErrInvalidArgument)
	}

	draft.UID = uid
	if err := g.store.SetResumeDraft(ctx, draft); err != nil {
		return err
	}
	// 草稿已落库后再维护档案上的冗余列表；档案缺失（例如从未登录过的
	// 历史数据）不反悔已保存的草稿。
	if err := g.store.AddToUserResumes(ctx, uid, draft.ResumeID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	return nil
}

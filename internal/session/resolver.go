// Package session 把推送式的登录状态流折叠为一次性的档案解析结果。
package session

import (
	"context"
	"errors"

	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
)

// ErrNotAuthenticated 表示当前没有已登录身份，属预期情况，调用方通常静默处理。
var ErrNotAuthenticated = errors.New("user not authenticated")

// Credential 是身份提供方在登录成功后给出的字段。
type Credential struct {
	UID         string
	DisplayName string
	PhotoURL    string
	Email       string
}

// AuthStateStream 是登录状态变更流；通道上的 nil 表示当前未登录。
type AuthStateStream interface {
	Subscribe() (<-chan *Credential, func())
}

// ProfileStore 是解析器需要的档案文档操作子集。
type ProfileStore interface {
	WatchUserProfile(ctx context.Context, uid string) (<-chan docstore.ProfileSnapshot, func(), error)
	SetUserProfile(ctx context.Context, profile *database.UserProfile) error
}

// Resolver 实现一次性桥接：订阅登录状态流，取第一次发射；有凭证则订阅
// 对应档案文档，取第一帧快照；文档存在则返回其内容，否则用凭证字段播种
// 新文档并返回（首次使用即创建，不做 upsert 合并）。两个订阅都在第一次
// 解析后立即退订，之后的档案变更有意不在此路径观察，由缓存的显式失效
// 重新拉取。
type Resolver struct {
	store ProfileStore
}

// NewResolver 构造 Resolver。
func NewResolver(store ProfileStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve 解析当前登录身份对应的用户档案。
// 无登录身份时返回 ErrNotAuthenticated；档案创建失败时上抛传输错误。
func (r *Resolver) Resolve(ctx context.Context, stream AuthStateStream) (*docstore.UserProfileDoc, error) {
	states, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	var cred *Credential
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case first, ok := <-states:
		if !ok || first == nil {
			return nil, ErrNotAuthenticated
		}
		cred = first
	}

	snapshots, stop, err := r.store.WatchUserProfile(ctx, cred.UID)
	if err != nil {
		return nil, err
	}
	defer stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case snap, ok := <-snapshots:
		if !ok {
			return nil, ctx.Err()
		}
		if snap.Exists {
			return snap.Profile, nil
		}
		return r.createSeedProfile(ctx, cred)
	}
}

func (r *Resolver) createSeedProfile(ctx context.Context, cred *Credential) (*docstore.UserProfileDoc, error) {
	seed := &database.UserProfile{
		UID:         cred.UID,
		DisplayName: cred.DisplayName,
		PhotoURL:    cred.PhotoURL,
		Email:       cred.Email,
	}
	if err := r.store.SetUserProfile(ctx, seed); err != nil {
		return nil, err
	}
	return &docstore.UserProfileDoc{
		UID:         cred.UID,
		DisplayName: cred.DisplayName,
		PhotoURL:    cred.PhotoURL,
		Email:       cred.Email,
	}, nil
}

// StaticStream 把一个已验证的凭证包装成只发射一次的状态流，
// 供按请求解析的 HTTP 路径使用；cred 为 nil 表示未登录。
func StaticStream(cred *Credential) AuthStateStream {
	return staticStream{cred: cred}
}

type staticStream struct {
	cred *Credential
}

func (s staticStream) Subscribe() (<-chan *Credential, func()) {
	ch := make(chan *Credential, 1)
	ch <- s.cred
	close(ch)
	return ch, func() {}
}

package docstore

import (
	"context"
	"errors"
)

// ProfileSnapshot 是订阅推送的一帧：Exists 为 false 表示文档尚不存在。
type ProfileSnapshot struct {
	Profile *UserProfileDoc
	Exists  bool
}

// UserProfileDoc 是订阅通道上传递的档案副本，避免订阅方共享底层模型指针。
type UserProfileDoc struct {
	UID         string
	DisplayName string
	PhotoURL    string
	Email       string
	Collections []string
}

func userChangeChannel(uid string) string {
	return "doc:users:" + uid
}

func (s *Store) publishChange(ctx context.Context, channel string) {
	if s.redis == nil {
		return
	}
	// 通知尽力而为，失败不影响写入本身
	_ = s.redis.Publish(ctx, channel, "changed").Err()
}

// WatchUserProfile 订阅用户档案：先推送一帧当前快照，之后每次文档变更
// 推送新快照。返回的 stop 函数负责取消订阅；通道在 stop 或 ctx 结束后关闭。
func (s *Store) WatchUserProfile(ctx context.Context, uid string) (<-chan ProfileSnapshot, func(), error) {
	snapshots := make(chan ProfileSnapshot, 1)

	snap, err := s.snapshotUserProfile(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	snapshots <- snap

	watchCtx, cancel := context.WithCancel(ctx)
	if s.redis == nil {
		// 无 redis 时退化为仅初始快照
		go func() {
			<-watchCtx.Done()
			close(snapshots)
		}()
		return snapshots, cancel, nil
	}

	sub := s.redis.Subscribe(watchCtx, userChangeChannel(uid))
	go func() {
		defer close(snapshots)
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-watchCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				snap, err := s.snapshotUserProfile(watchCtx, uid)
				if err != nil {
					continue
				}
				select {
				case snapshots <- snap:
				case <-watchCtx.Done():
					return
				}
			}
		}
	}()

	return snapshots, cancel, nil
}

func (s *Store) snapshotUserProfile(ctx context.Context, uid string) (ProfileSnapshot, error) {
	profile, err := s.GetUserProfile(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProfileSnapshot{Exists: false}, nil
		}
		return ProfileSnapshot{}, err
	}

	collections, err := stringMembers(profile.Collections)
	if err != nil {
		return ProfileSnapshot{}, err
	}
	return ProfileSnapshot{
		Exists: true,
		Profile: &UserProfileDoc{
			UID:         profile.UID,
			DisplayName: profile.DisplayName,
			PhotoURL:    profile.PhotoURL,
			Email:       profile.Email,
			Collections: collections,
		},
	}, nil
}

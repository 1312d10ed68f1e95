// Package catalog 实现模板目录的按需重验缓存与收藏/点赞切换协议。
package catalog

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// 缓存键。用户相关的键按 uid 再细分，见 UserKey/SavedResumesKey。
const (
	KeyTemplates = "templates"

	invalidateChannel = "catalog:invalidate"
)

// UserKey 返回某个用户档案的缓存键。
func UserKey(uid string) string {
	return "user:" + uid
}

// SavedResumesKey 返回某个用户草稿列表的缓存键。
func SavedResumesKey(uid string) string {
	return "savedResumes:" + uid
}

// Cache 是键到值的按需重验缓存：每个键在生命周期内只拉取一次，
// 直到被显式失效；不存在窗口聚焦之类的被动触发。并发的首次访问
// 通过 singleflight 合并为一次拉取。失效通过 Redis 广播到所有实例；
// 本地删除与广播之外没有键间依赖跟踪，调用方自行失效相关键。
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	epochs  map[string]uint64
	group   singleflight.Group
	redis   redis.UniversalClient
}

type entry struct {
	value any
}

// NewCache 构造 Cache；redisClient 可为 nil（仅本地失效）。
func NewCache(redisClient redis.UniversalClient) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		epochs:  make(map[string]uint64),
		redis:   redisClient,
	}
}

// Get 返回键对应的缓存值；缺失时调用 fetch 拉取并缓存其结果。
// fetch 的错误不缓存也不上抛到后续调用：一次失败由调用方包装的
// fetch 自行上报并解析为"无数据"，见 Service 中的用法。
func (c *Cache) Get(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return e.value, nil
	}
	epoch := c.epochs[key]
	c.mu.Unlock()

	value, err, _ := c.group.Do(key, func() (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// 拉取期间键被失效过则丢弃本次结果，下一次 Get 重新拉取。
	if c.epochs[key] == epoch {
		c.entries[key] = entry{value: value}
	}
	c.mu.Unlock()
	return value, nil
}

// Invalidate 删除本地键并向其他实例广播失效。
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		c.drop(key)
	}
	c.mu.Unlock()

	if c.redis == nil {
		return
	}
	for _, key := range keys {
		_ = c.redis.Publish(ctx, invalidateChannel, key).Err()
	}
}

// drop 删除本地键并推进键的世代号，使仍在途的拉取结果作废。调用方持有 mu。
func (c *Cache) drop(key string) {
	delete(c.entries, key)
	c.epochs[key]++
}

// ListenInvalidations 订阅其他实例的失效广播并删除本地键，
// 阻塞直到 ctx 结束。无 Redis 时立即返回。
func (c *Cache) ListenInvalidations(ctx context.Context) {
	if c.redis == nil {
		return
	}

	sub := c.redis.Subscribe(ctx, invalidateChannel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.mu.Lock()
			c.drop(msg.Payload)
			c.mu.Unlock()
		}
	}
}

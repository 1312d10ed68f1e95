// Package notify 定义面向用户的即时通知（前端以 toast 呈现），
// 经 Redis Pub/Sub 转发给 WebSocket 连接。
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Level 是通知级别。
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Message 是统一的通知消息协议，字段名与前端解析保持一致。
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"message"`
}

// Notifier 把一条通知投递给指定用户；投递尽力而为，失败不应中断业务流程。
type Notifier interface {
	Notify(ctx context.Context, uid string, level Level, text string)
}

// ChannelForUser 返回某个用户的通知频道名。
func ChannelForUser(uid string) string {
	return "notify:user:" + uid
}

// RedisNotifier 通过 Redis Pub/Sub 投递通知。
type RedisNotifier struct {
	client redis.UniversalClient
}

// NewRedisNotifier 构造 RedisNotifier。
func NewRedisNotifier(client redis.UniversalClient) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Notify 实现 Notifier。
func (n *RedisNotifier) Notify(ctx context.Context, uid string, level Level, text string) {
	if uid == "" {
		return
	}
	payload, err := json.Marshal(Message{Level: level, Text: text})
	if err != nil {
		return
	}
	_ = n.client.Publish(ctx, ChannelForUser(uid), payload).Err()
}

// Nop 丢弃所有通知，供测试与无 Redis 场景使用。
type Nop struct{}

// Notify 实现 Notifier。
func (Nop) Notify(context.Context, string, Level, string) {}

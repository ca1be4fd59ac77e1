package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/tasks"
)

// Export statuses carried in notifications.
const (
	NotifyCompleted = "completed"
	NotifyError     = "error"
)

// ExportNotifyMessage 经 Redis Pub/Sub 转发给浏览器 WebSocket，字段名与前端约定一致。
type ExportNotifyMessage struct {
	Type          string `json:"type"`
	Status        string `json:"status"`
	ResumeID      string `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// Notifier delivers a message to every socket of a user.
type Notifier interface {
	Notify(ctx context.Context, userID uint, msg ExportNotifyMessage) error
}

type RedisNotifier struct {
	client redis.UniversalClient
}

func NewRedisNotifier(client redis.UniversalClient) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Notify(ctx context.Context, userID uint, msg ExportNotifyMessage) error {
	msg.Type = "export"
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	channel := tasks.NotifyChannel(userID)
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish notification to %q: %w", channel, err)
	}
	return nil
}

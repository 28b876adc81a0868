package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelModeration = "comment_moderation"
)

// 事件类型
const (
	EventCommentPending   = "comment.pending"
	EventCommentValidated = "comment.validated"
)

// ModerationMessage 评论审核事件
type ModerationMessage struct {
	Type        string    `json:"type"`
	CommentID   string    `json:"comment_id"`
	ContentType string    `json:"content_type"`
	ObjectID    string    `json:"object_id"`
	ParentID    *string   `json:"parent_id,omitempty"`
	AuthorName  string    `json:"author_name"`
	Excerpt     string    `json:"excerpt"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishModeration 发布审核事件
func (p *Publisher) PublishModeration(ctx context.Context, msg *ModerationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal moderation message: %w", err)
	}

	return p.client.Publish(ctx, ChannelModeration, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅审核事件，直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ModerationMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelModeration)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var moderationMsg ModerationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &moderationMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&moderationMsg)
		}
	}
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/pkg/logger"
	"portfolio_chat_service/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// InboxChannel redis channel carrying ids of changed conversations
const InboxChannel = "chat:inbox"

// ConversationChannel redis channel carrying snapshots of one conversation
func ConversationChannel(id string) string {
	return fmt.Sprintf("chat:conversation:%s", id)
}

// SnapshotHandler receives every snapshot in delivery order, a conversation
// that does not exist yet is delivered as an empty one with revision 0
type SnapshotHandler func(conv *domain.Conversation)

// ConversationFeed live snapshots of a conversation
type ConversationFeed interface {
	Subscribe(ctx context.Context, conversationID string, handler SnapshotHandler) (unsubscribe func(), err error)
	SubscribeInbox(ctx context.Context, handler func(conversationID string)) (unsubscribe func(), err error)
}

// SnapshotPublisher fan out a conversation snapshot to its subscribers
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, conv *domain.Conversation) error
}

// RedisPubSub definition redis pub/sub snapshot feed
type RedisPubSub struct {
	client     *redis.Client
	store      ConversationReader
	newBackOff func() backoff.BackOff
}

// NewRedisPubSub create RedisPubSub, store provides the initial snapshot
func NewRedisPubSub(client *redis.Client, store ConversationReader) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		store:  store,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// PublishSnapshot 將 snapshot 序列化後發布到對話 channel 與 inbox channel
func (r *RedisPubSub) PublishSnapshot(ctx context.Context, conv *domain.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, ConversationChannel(conv.ID), data).Err(); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", conv.ID, err)
	}
	return r.client.Publish(ctx, InboxChannel, conv.ID).Err()
}

// Subscribe 先訂閱再讀取初始 snapshot, 避免兩者之間的更新遺失
func (r *RedisPubSub) Subscribe(ctx context.Context, conversationID string, handler SnapshotHandler) (func(), error) {
	channel := ConversationChannel(conversationID)

	sub, err := r.subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}

	initial, err := r.load(ctx, conversationID)
	if err != nil {
		sub.Close()
		return nil, err
	}
	handler(initial)

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		r.deliver(subCtx, sub, channel, func(payload string) {
			var conv domain.Conversation
			if err := json.Unmarshal([]byte(payload), &conv); err != nil {
				logger.Log.Error("decode snapshot failed", zap.String("channel", channel), zap.Error(err))
				return
			}
			handler(&conv)
		}, func() {
			// 重新訂閱期間可能漏掉更新, 補讀一次
			if conv, err := r.load(subCtx, conversationID); err == nil {
				handler(conv)
			}
		})
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// SubscribeInbox 收到任一對話變更的 id
func (r *RedisPubSub) SubscribeInbox(ctx context.Context, handler func(conversationID string)) (func(), error) {
	sub, err := r.subscribe(ctx, InboxChannel)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.deliver(subCtx, sub, InboxChannel, handler, func() {})
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (r *RedisPubSub) subscribe(ctx context.Context, channel string) (*redis.PubSub, error) {
	sub := r.client.Subscribe(ctx, channel)
	// 等待 subscribe 確認
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return sub, nil
}

// deliver 讀取 channel 直到 ctx 結束, channel 被關閉時以 backoff 重新訂閱
func (r *RedisPubSub) deliver(ctx context.Context, sub *redis.PubSub, channel string, handle func(payload string), resubscribed func()) {
	defer func() {
		if sub != nil {
			sub.Close()
		}
	}()

	for {
		ch := sub.Channel()
	loop:
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					break loop
				}
				handle(m.Payload)
			case <-ctx.Done():
				logger.Log.Debug("subscription closed", zap.String("channel", channel))
				return
			}
		}

		logger.Log.Warn("subscription dropped, resubscribing", zap.String("channel", channel))
		sub.Close()
		sub = nil

		err := backoff.Retry(func() error {
			s, err := r.subscribe(ctx, channel)
			if err != nil {
				if ctx.Err() != nil {
					return backoff.Permanent(ctx.Err())
				}
				logger.Log.Warn("resubscribe failed", zap.String("channel", channel), zap.Error(err))
				return err
			}
			sub = s
			return nil
		}, backoff.WithContext(r.newBackOff(), ctx))
		if err != nil {
			return
		}

		metrics.FeedResubscribesTotal.Inc()
		resubscribed()
	}
}

func (r *RedisPubSub) load(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := r.store.FindByID(ctx, id)
	if errors.Is(err, domain.ErrConversationNotFound) {
		return &domain.Conversation{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

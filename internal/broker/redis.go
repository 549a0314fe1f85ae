package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/models"
)

// RedisBroker fans out across API instances over Redis pub/sub. Redis
// delivery is at-most-once; readers close gaps from the persisted history.
type RedisBroker struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBroker(client *redis.Client, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

func channelName(roomID string) string {
	return "chat:room:" + roomID
}

func (b *RedisBroker) Publish(ctx context.Context, roomID string, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := b.client.Publish(ctx, channelName(roomID), payload).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, roomID string) (<-chan models.Message, func(), error) {
	ps := b.client.Subscribe(ctx, channelName(roomID))
	// Wait for the subscription confirmation so no message published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe to redis: %w", err)
	}

	out := make(chan models.Message, subscriberBuffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				msg, err := decodeMessage(raw.Payload)
				if err != nil {
					b.logger.Warn("dropping undecodable chat message", zap.String("room", roomID), zap.Error(err))
					continue
				}
				select {
				case out <- msg:
				case <-done:
					return
				case <-ctx.Done():
					cancel()
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

func decodeMessage(payload string) (models.Message, error) {
	var msg models.Message
	err := json.Unmarshal([]byte(payload), &msg)
	return msg, err
}

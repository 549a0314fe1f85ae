// Package tasks moves session notifications onto a Redis-backed asynq
// queue so SMS delivery survives restarts and is retried.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/models"
)

const (
	TypeSessionNotify  = "session:notify"
	QueueNotifications = "notifications"

	maxRetry = 5
)

// NewSessionNotifyTask snapshots the session as it was when it changed.
func NewSessionNotifyTask(s *models.Session) (*asynq.Task, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSessionNotify, payload,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(30*time.Second),
	), nil
}

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier satisfies services.Notifier by enqueuing a task per change.
type QueueNotifier struct {
	queue  Enqueuer
	logger *zap.Logger
}

func NewQueueNotifier(queue Enqueuer, logger *zap.Logger) *QueueNotifier {
	return &QueueNotifier{queue: queue, logger: logger}
}

func (n *QueueNotifier) SessionChanged(ctx context.Context, s *models.Session) {
	task, err := NewSessionNotifyTask(s)
	if err != nil {
		n.logger.Error("encode notification task", zap.String("sessionId", s.ID.Hex()), zap.Error(err))
		return
	}
	info, err := n.queue.EnqueueContext(ctx, task)
	if err != nil {
		n.logger.Warn("enqueue notification failed", zap.String("sessionId", s.ID.Hex()), zap.Error(err))
		return
	}
	n.logger.Debug("notification enqueued", zap.String("taskId", info.ID), zap.String("sessionId", s.ID.Hex()))
}

// Deliverer sends the notification for one session change.
type Deliverer interface {
	Deliver(ctx context.Context, s *models.Session) error
}

func NewServeMux(d Deliverer, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSessionNotify, handleSessionNotify(d, logger))
	return mux
}

func handleSessionNotify(d Deliverer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var s models.Session
		if err := json.Unmarshal(task.Payload(), &s); err != nil {
			logger.Error("invalid notification payload", zap.Error(err))
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
		if err := d.Deliver(ctx, &s); err != nil {
			logger.Warn("notification delivery failed, will retry",
				zap.String("sessionId", s.ID.Hex()), zap.Error(err))
			return err
		}
		return nil
	}
}

// NewServer builds the worker that drains the notification queue.
func NewServer(opt asynq.RedisClientOpt, logger *zap.Logger) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{QueueNotifications: 1},
		Logger:      logger.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
}

package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/models"
)

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type fakeDeliverer struct {
	got []models.Session
	err error
}

func (d *fakeDeliverer) Deliver(_ context.Context, s *models.Session) error {
	d.got = append(d.got, *s)
	return d.err
}

func session() *models.Session {
	start := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:           primitive.NewObjectID(),
		ClientID:     primitive.NewObjectID(),
		CounsellorID: primitive.NewObjectID(),
		Slot:         models.TimeSlot{Start: start, End: start.Add(time.Hour)},
		Status:       models.StatusConfirmed,
	}
}

func TestQueueNotifierRoundTrip(t *testing.T) {
	q := &fakeQueue{}
	n := NewQueueNotifier(q, zap.NewNop())
	s := session()

	n.SessionChanged(context.Background(), s)
	if len(q.tasks) != 1 || q.tasks[0].Type() != TypeSessionNotify {
		t.Fatalf("expected one %s task, got %+v", TypeSessionNotify, q.tasks)
	}

	d := &fakeDeliverer{}
	mux := NewServeMux(d, zap.NewNop())
	if err := mux.ProcessTask(context.Background(), q.tasks[0]); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(d.got) != 1 || d.got[0].ID != s.ID || d.got[0].Status != models.StatusConfirmed || !d.got[0].Slot.Start.Equal(s.Slot.Start) {
		t.Fatalf("unexpected delivery %+v", d.got)
	}
}

func TestQueueNotifierSwallowsEnqueueErrors(t *testing.T) {
	q := &fakeQueue{err: errors.New("redis down")}
	NewQueueNotifier(q, zap.NewNop()).SessionChanged(context.Background(), session())
	if len(q.tasks) != 0 {
		t.Fatalf("nothing should be queued")
	}
}

func TestHandlerRetriesDeliveryErrors(t *testing.T) {
	d := &fakeDeliverer{err: errors.New("textbelt down")}
	mux := NewServeMux(d, zap.NewNop())
	task, _ := NewSessionNotifyTask(session())

	err := mux.ProcessTask(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("delivery errors should be retried, got %v", err)
	}
}

func TestHandlerSkipsRetryOnBadPayload(t *testing.T) {
	mux := NewServeMux(&fakeDeliverer{}, zap.NewNop())
	err := mux.ProcessTask(context.Background(), asynq.NewTask(TypeSessionNotify, []byte("{not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

func slot(startHour, endHour int) models.TimeSlot {
	day := time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC)
	return models.TimeSlot{
		Start: day.Add(time.Duration(startHour) * time.Hour),
		End:   day.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestCreateIfFreeRejectsOverlapForSameCounsellorOnly(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	counsellor := primitive.NewObjectID()

	first := &models.Session{CounsellorID: counsellor, Slot: slot(10, 11), Status: models.StatusRequested}
	if err := store.CreateIfFree(ctx, first); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	clash := &models.Session{CounsellorID: counsellor, Slot: slot(10, 12), Status: models.StatusRequested}
	if err := store.CreateIfFree(ctx, clash); !errors.Is(err, repository.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	other := &models.Session{CounsellorID: primitive.NewObjectID(), Slot: slot(10, 11), Status: models.StatusRequested}
	if err := store.CreateIfFree(ctx, other); err != nil {
		t.Fatalf("another counsellor's identical slot should be free: %v", err)
	}
}

func TestCreateIfFreeIgnoresInactiveSessions(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	counsellor := primitive.NewObjectID()

	first := &models.Session{CounsellorID: counsellor, Slot: slot(10, 11), Status: models.StatusRequested}
	if err := store.CreateIfFree(ctx, first); err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := store.CompareAndSetStatus(ctx, first.ID, models.StatusRequested, models.StatusCancelled, time.Now()); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	again := &models.Session{CounsellorID: counsellor, Slot: slot(10, 11), Status: models.StatusRequested}
	if err := store.CreateIfFree(ctx, again); err != nil {
		t.Fatalf("slot should be free after cancellation: %v", err)
	}
}

func TestCreateIfFreeConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	counsellor := primitive.NewObjectID()

	const attempts = 32
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := &models.Session{CounsellorID: counsellor, Slot: slot(9, 10), Status: models.StatusRequested}
			if err := store.CreateIfFree(ctx, s); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("expected exactly one booking to win, got %d", accepted)
	}
}

func TestCompareAndSetStatus(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	s := &models.Session{CounsellorID: primitive.NewObjectID(), Slot: slot(10, 11), Status: models.StatusRequested}
	if err := store.CreateIfFree(ctx, s); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := store.CompareAndSetStatus(ctx, s.ID, models.StatusConfirmed, models.StatusCompleted, time.Now()); !errors.Is(err, repository.ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}
	got, _ := store.GetByID(ctx, s.ID)
	if got.Status != models.StatusRequested {
		t.Fatalf("failed CAS must not change status, got %s", got.Status)
	}

	if _, err := store.CompareAndSetStatus(ctx, primitive.NewObjectID(), models.StatusRequested, models.StatusConfirmed, time.Now()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChatStoreListMessagesAfter(t *testing.T) {
	ctx := context.Background()
	store := NewChatStore()
	room := &models.ChatRoom{SessionID: primitive.NewObjectID()}
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if err := store.CreateRoom(ctx, &models.ChatRoom{SessionID: room.SessionID}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("second room for a session should be a duplicate, got %v", err)
	}

	base := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		m := &models.Message{RoomID: room.ID, Body: "hi", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.AppendMessage(ctx, m); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	msgs, err := store.ListMessages(ctx, room.ID, base)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages strictly after base, got %d", len(msgs))
	}
}

package mongostore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

// newTestStore connects to MONGO_TEST_URI, which must point at a replica set.
// Each test gets its own database, dropped afterwards.
func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := client.Database("counsel_test_" + primitive.NewObjectID().Hex())
	if err := EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return NewStore(db)
}

func testSession(counsellor primitive.ObjectID, start time.Time, d time.Duration) *models.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Session{
		ID:           primitive.NewObjectID(),
		ClientID:     primitive.NewObjectID(),
		CounsellorID: counsellor,
		Slot:         models.TimeSlot{Start: start, End: start.Add(d)},
		Status:       models.StatusRequested,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCreateIfFreeConcurrentBookingsOnMongo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	counsellor := primitive.NewObjectID()
	base := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		taken   int
		others  []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every slot overlaps 10:30-11:00.
			start := base.Add(time.Duration(i) * 4 * time.Minute)
			err := store.Sessions.CreateIfFree(ctx, testSession(counsellor, start, time.Hour))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, repository.ErrSlotTaken):
				taken++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if winners != 1 || taken != attempts-1 {
		t.Fatalf("expected one winner and %d rejections, got %d and %d", attempts-1, winners, taken)
	}

	active, err := store.Sessions.List(ctx, repository.SessionFilter{CounsellorID: &counsellor})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected one stored session, got %d", len(active))
	}

	// Another counsellor is unaffected.
	other := primitive.NewObjectID()
	if err := store.Sessions.CreateIfFree(ctx, testSession(other, base, time.Hour)); err != nil {
		t.Fatalf("other counsellor should book freely: %v", err)
	}
}

func TestCreateIfFreeIgnoresCancelledOnMongo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	counsellor := primitive.NewObjectID()
	start := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)

	first := testSession(counsellor, start, time.Hour)
	if err := store.Sessions.CreateIfFree(ctx, first); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := store.Sessions.CompareAndSetStatus(ctx, first.ID, models.StatusRequested, models.StatusCancelled, time.Now().UTC()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := store.Sessions.CreateIfFree(ctx, testSession(counsellor, start.Add(30*time.Minute), time.Hour)); err != nil {
		t.Fatalf("cancelled session should free the slot: %v", err)
	}
}

func TestCompareAndSetStatusOnMongo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	s := testSession(primitive.NewObjectID(), time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC), time.Hour)
	if err := store.Sessions.CreateIfFree(ctx, s); err != nil {
		t.Fatalf("book: %v", err)
	}

	at := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	updated, err := store.Sessions.CompareAndSetStatus(ctx, s.ID, models.StatusRequested, models.StatusConfirmed, at)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if updated.Status != models.StatusConfirmed || !updated.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected updated session %+v", updated)
	}

	if _, err := store.Sessions.CompareAndSetStatus(ctx, s.ID, models.StatusRequested, models.StatusCancelled, at); !errors.Is(err, repository.ErrStatusChanged) {
		t.Fatalf("stale from-status should give ErrStatusChanged, got %v", err)
	}
	if _, err := store.Sessions.CompareAndSetStatus(ctx, primitive.NewObjectID(), models.StatusRequested, models.StatusCancelled, at); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing session should give ErrNotFound, got %v", err)
	}

	stored, err := store.Sessions.GetByID(ctx, s.ID)
	if err != nil || stored.Status != models.StatusConfirmed {
		t.Fatalf("status should stay confirmed: %v %+v", err, stored)
	}
}

func TestListMessagesSharingATimestampOnMongo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	room := &models.ChatRoom{ID: primitive.NewObjectID(), SessionID: primitive.NewObjectID()}
	if err := store.Chat.CreateRoom(ctx, room); err != nil {
		t.Fatalf("create room: %v", err)
	}

	at := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)
	var ids []primitive.ObjectID
	for i := 0; i < 250; i++ {
		m := &models.Message{ID: primitive.NewObjectID(), RoomID: room.ID, Body: "x", CreatedAt: at}
		if err := store.Chat.AppendMessage(ctx, m); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		ids = append(ids, m.ID)
	}

	got, err := store.Chat.ListMessages(ctx, room.ID, at.Add(-time.Millisecond))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != len(ids) {
		t.Fatalf("expected %d messages, got %d", len(ids), len(got))
	}
	for i := range got {
		if got[i].ID != ids[i] {
			t.Fatalf("message %d out of order", i)
		}
	}
}

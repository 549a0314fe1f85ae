package services

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/broker"
	"github.com/harentsoaR/counsel-api/internal/cache"
	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
	"github.com/harentsoaR/counsel-api/internal/repository/memory"
)

// All fixtures run on the morning of the same fixed day.
var today = time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return today.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func slotAt(h1, m1, h2, m2 int) models.TimeSlot {
	return models.TimeSlot{Start: at(h1, m1), End: at(h2, m2)}
}

type fixture struct {
	store    *repository.Store
	broker   *broker.MemoryBroker
	audit    *AuditService
	booking  *BookingService
	reviews  *ReviewService
	profiles *ProfileService
	chat     *ChatService

	client      models.Actor
	otherClient models.Actor
	counsellor  models.Actor
	otherCouns  models.Actor
	admin       models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	audit := NewAuditService(store.Audit, logger)
	b := broker.NewMemoryBroker()

	f := &fixture{
		store:    store,
		broker:   b,
		audit:    audit,
		booking:  NewBookingService(store.Users, store.Profiles, store.Sessions, audit, nil, logger),
		reviews:  NewReviewService(store.Reviews, store.Sessions, audit),
		profiles: NewProfileService(store.Users, store.Profiles, store.Sessions, audit),
		chat:     NewChatService(store.Chat, store.Sessions, store.Profiles, b, audit, logger, "test-salt"),
	}
	f.booking.now = func() time.Time { return at(7, 0) }

	f.client = f.addUser(t, models.RoleClient, "Thandi Client")
	f.otherClient = f.addUser(t, models.RoleClient, "Sipho Client")
	f.counsellor = f.addUser(t, models.RoleCounsellor, "Dr Naidoo")
	f.otherCouns = f.addUser(t, models.RoleCounsellor, "Dr Botha")
	f.admin = f.addUser(t, models.RoleAdmin, "Admin")

	for _, c := range []models.Actor{f.counsellor, f.otherCouns} {
		err := store.Profiles.UpsertCounsellor(context.Background(), &models.CounsellorProfile{
			UserID:       c.UserID,
			Availability: []models.TimeSlot{slotAt(9, 0, 17, 0)},
		})
		if err != nil {
			t.Fatalf("seed profile: %v", err)
		}
	}
	return f
}

func (f *fixture) addUser(t *testing.T, role models.Role, name string) models.Actor {
	t.Helper()
	u := &models.User{
		ID:       primitive.NewObjectID(),
		FullName: name,
		Email:    primitive.NewObjectID().Hex() + "@example.com",
		Role:     role,
	}
	if err := f.store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return models.Actor{UserID: u.ID, Role: role}
}

func (f *fixture) book(t *testing.T, slot models.TimeSlot) *models.Session {
	t.Helper()
	s, err := f.booking.BookSession(context.Background(), f.client, BookingRequest{
		ClientID:     f.client.UserID,
		CounsellorID: f.counsellor.UserID,
		Slot:         slot,
	})
	if err != nil {
		t.Fatalf("book %v: %v", slot, err)
	}
	return s
}

func (f *fixture) completed(t *testing.T) *models.Session {
	t.Helper()
	ctx := context.Background()
	s := f.book(t, slotAt(10, 0, 11, 0))
	if _, err := f.booking.ConfirmSession(ctx, f.counsellor, s.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	done, err := f.booking.CompleteSession(ctx, f.counsellor, s.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return done
}

func newHotlines(url string) *HotlineService {
	return NewHotlineService(cache.NewMemoryCache(), url, time.Hour, zap.NewNop())
}

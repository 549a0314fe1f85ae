package mongostore

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

func TestSessionFilter(t *testing.T) {
	client := primitive.NewObjectID()
	counsellor := primitive.NewObjectID()
	from := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	got := sessionFilter(repository.SessionFilter{
		ClientID:     &client,
		CounsellorID: &counsellor,
		Status:       models.StatusConfirmed,
		From:         from,
		To:           to,
	})

	if got["status"] != models.StatusConfirmed {
		t.Fatalf("expected status filter, got %v", got["status"])
	}
	if got["clientId"] != client || got["counsellorId"] != counsellor {
		t.Fatalf("expected both participant filters, got %#v", got)
	}
	start, ok := got["slot.start"].(bson.M)
	if !ok || start["$gte"] != from || start["$lt"] != to {
		t.Fatalf("unexpected slot.start range %#v", got["slot.start"])
	}
}

func TestSessionFilterEmpty(t *testing.T) {
	if got := sessionFilter(repository.SessionFilter{}); len(got) != 0 {
		t.Fatalf("empty filter should match everything, got %#v", got)
	}
}

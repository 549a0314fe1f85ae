package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

type SessionRepo struct {
	coll   *mongo.Collection
	guards *mongo.Collection
}

// CreateIfFree runs check-then-insert in a transaction that first bumps a
// per-counsellor guard document. Two bookings for the same counsellor then
// write-conflict on the guard; WithTransaction retries the loser, whose
// retry sees the winner's session.
func (r *SessionRepo) CreateIfFree(ctx context.Context, s *models.Session) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}

	sess, err := r.coll.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		_, err := r.guards.UpdateOne(sc,
			bson.M{"_id": s.CounsellorID},
			bson.M{"$inc": bson.M{"version": 1}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return nil, fmt.Errorf("bump booking guard: %w", err)
		}

		clashes, err := r.coll.CountDocuments(sc, bson.M{
			"counsellorId": s.CounsellorID,
			"status":       bson.M{"$in": models.ActiveStatuses},
			"slot.start":   bson.M{"$lt": s.Slot.End},
			"slot.end":     bson.M{"$gt": s.Slot.Start},
		})
		if err != nil {
			return nil, fmt.Errorf("count overlapping sessions: %w", err)
		}
		if clashes > 0 {
			return nil, repository.ErrSlotTaken
		}

		if _, err := r.coll.InsertOne(sc, s); err != nil {
			return nil, fmt.Errorf("insert session: %w", err)
		}
		return nil, nil
	}, txnOpts)

	if errors.Is(err, repository.ErrSlotTaken) {
		return repository.ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("booking transaction failed: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error) {
	var s models.Session
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *SessionRepo) List(ctx context.Context, f repository.SessionFilter) ([]models.Session, error) {
	cursor, err := r.coll.Find(ctx, sessionFilter(f), options.Find().SetSort(bson.D{{Key: "slot.start", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Session{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return out, nil
}

func (r *SessionRepo) CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.SessionStatus, at time.Time) (*models.Session, error) {
	var updated models.Session
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update session status: %w", err)
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("count session: %w", err)
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrStatusChanged
}

func sessionFilter(f repository.SessionFilter) bson.M {
	filter := bson.M{}
	if f.ClientID != nil {
		filter["clientId"] = *f.ClientID
	}
	if f.CounsellorID != nil {
		filter["counsellorId"] = *f.CounsellorID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	start := bson.M{}
	if !f.From.IsZero() {
		start["$gte"] = f.From
	}
	if !f.To.IsZero() {
		start["$lt"] = f.To
	}
	if len(start) > 0 {
		filter["slot.start"] = start
	}
	return filter
}

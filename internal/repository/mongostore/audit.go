package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

type AuditRepo struct {
	coll *mongo.Collection
}

func (r *AuditRepo) Append(ctx context.Context, l *models.AuditLog) error {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, l); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *AuditRepo) List(ctx context.Context, f repository.AuditFilter) ([]models.AuditLog, error) {
	filter := bson.M{}
	if f.ActorID != nil {
		filter["actorId"] = *f.ActorID
	}
	if f.SubjectID != nil {
		filter["subjectId"] = *f.SubjectID
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.AuditLog{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode audit logs: %w", err)
	}
	return out, nil
}

package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/counsel-api/internal/models"
)

type EmergencyRepo struct {
	coll *mongo.Collection
}

func (r *EmergencyRepo) Create(ctx context.Context, e *models.EmergencyRequest) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert emergency request: %w", err)
	}
	return nil
}

func (r *EmergencyRepo) List(ctx context.Context) ([]models.EmergencyRequest, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find emergency requests: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.EmergencyRequest{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode emergency requests: %w", err)
	}
	return out, nil
}

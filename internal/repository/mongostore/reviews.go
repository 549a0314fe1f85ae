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

type ReviewRepo struct {
	coll *mongo.Collection
}

// Create relies on the unique sessionId index for one review per session.
func (r *ReviewRepo) Create(ctx context.Context, rv *models.Review) error {
	if rv.ID.IsZero() {
		rv.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, rv); err != nil {
		return fmt.Errorf("insert review: %w", translate(err))
	}
	return nil
}

func (r *ReviewRepo) GetBySession(ctx context.Context, sessionID primitive.ObjectID) (*models.Review, error) {
	var rv models.Review
	if err := r.coll.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&rv); err != nil {
		return nil, translate(err)
	}
	return &rv, nil
}

func (r *ReviewRepo) ListByCounsellor(ctx context.Context, counsellorID primitive.ObjectID) ([]models.Review, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"counsellorId": counsellorID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Review{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	return out, nil
}

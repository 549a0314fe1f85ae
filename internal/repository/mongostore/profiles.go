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

type ProfileRepo struct {
	counsellors *mongo.Collection
	clients     *mongo.Collection
}

func (r *ProfileRepo) GetCounsellor(ctx context.Context, userID primitive.ObjectID) (*models.CounsellorProfile, error) {
	var p models.CounsellorProfile
	if err := r.counsellors.FindOne(ctx, bson.M{"_id": userID}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProfileRepo) ListCounsellors(ctx context.Context, f repository.CounsellorFilter) ([]models.CounsellorProfile, error) {
	filter := bson.M{}
	// Matching a scalar against an array field tests membership.
	if f.Specialty != "" {
		filter["specialties"] = f.Specialty
	}
	if f.Language != "" {
		filter["languages"] = f.Language
	}

	cursor, err := r.counsellors.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find counsellors: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.CounsellorProfile{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode counsellors: %w", err)
	}
	return out, nil
}

func (r *ProfileRepo) UpsertCounsellor(ctx context.Context, p *models.CounsellorProfile) error {
	_, err := r.counsellors.ReplaceOne(ctx, bson.M{"_id": p.UserID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert counsellor profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) GetClient(ctx context.Context, userID primitive.ObjectID) (*models.ClientProfile, error) {
	var p models.ClientProfile
	if err := r.clients.FindOne(ctx, bson.M{"_id": userID}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProfileRepo) UpsertClient(ctx context.Context, p *models.ClientProfile) error {
	_, err := r.clients.ReplaceOne(ctx, bson.M{"_id": p.UserID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert client profile: %w", err)
	}
	return nil
}

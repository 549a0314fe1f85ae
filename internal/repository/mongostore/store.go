// Package mongostore implements the repositories on MongoDB. Booking relies
// on multi-document transactions, so the deployment must be a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/counsel-api/internal/repository"
)

const (
	usersCollection       = "users"
	counsellorsCollection = "counsellor_profiles"
	clientsCollection     = "client_profiles"
	sessionsCollection    = "sessions"
	guardsCollection      = "booking_guards"
	reviewsCollection     = "reviews"
	roomsCollection       = "chat_rooms"
	messagesCollection    = "chat_messages"
	auditCollection       = "audit_logs"
	emergencyCollection   = "emergency_requests"
)

// Connect opens and pings a client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

func NewStore(db *mongo.Database) *repository.Store {
	return &repository.Store{
		Users:       &UserRepo{coll: db.Collection(usersCollection)},
		Profiles:    &ProfileRepo{counsellors: db.Collection(counsellorsCollection), clients: db.Collection(clientsCollection)},
		Sessions:    &SessionRepo{coll: db.Collection(sessionsCollection), guards: db.Collection(guardsCollection)},
		Reviews:     &ReviewRepo{coll: db.Collection(reviewsCollection)},
		Chat:        &ChatRepo{rooms: db.Collection(roomsCollection), messages: db.Collection(messagesCollection)},
		Audit:       &AuditRepo{coll: db.Collection(auditCollection)},
		Emergencies: &EmergencyRepo{coll: db.Collection(emergencyCollection)},
	}
}

// EnsureIndexes creates the indexes every repository relies on. It also
// materialises the collections, which transactions cannot always do themselves.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_email")},
		},
		counsellorsCollection: {
			{Keys: bson.D{{Key: "specialties", Value: 1}}, Options: options.Index().SetName("specialties_idx")},
			{Keys: bson.D{{Key: "languages", Value: 1}}, Options: options.Index().SetName("languages_idx")},
		},
		sessionsCollection: {
			// Serves the per-counsellor overlap scan.
			{
				Keys:    bson.D{{Key: "counsellorId", Value: 1}, {Key: "status", Value: 1}, {Key: "slot.start", Value: 1}},
				Options: options.Index().SetName("counsellor_status_start_idx"),
			},
			{
				Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "slot.start", Value: 1}},
				Options: options.Index().SetName("client_start_idx"),
			},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_session")},
			{Keys: bson.D{{Key: "counsellorId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("counsellor_created_idx")},
		},
		roomsCollection: {
			{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_session")},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}, Options: options.Index().SetName("room_created_idx")},
		},
		auditCollection: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: options.Index().SetName("timestamp_idx")},
			{Keys: bson.D{{Key: "actorId", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("actor_timestamp_idx")},
		},
	}

	for name, idx := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}

	// Guards carry no index beyond _id but must exist before the first booking transaction.
	err := db.CreateCollection(ctx, guardsCollection)
	var cmdErr mongo.CommandError
	if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists") {
		return fmt.Errorf("failed to create %s: %w", guardsCollection, err)
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	default:
		return err
	}
}

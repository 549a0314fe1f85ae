package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/counsel-api/internal/models"
)

type ChatRepo struct {
	rooms    *mongo.Collection
	messages *mongo.Collection
}

func (r *ChatRepo) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	if room.ID.IsZero() {
		room.ID = primitive.NewObjectID()
	}
	if _, err := r.rooms.InsertOne(ctx, room); err != nil {
		return fmt.Errorf("insert chat room: %w", translate(err))
	}
	return nil
}

func (r *ChatRepo) GetRoom(ctx context.Context, id primitive.ObjectID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (r *ChatRepo) GetRoomBySession(ctx context.Context, sessionID primitive.ObjectID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.rooms.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&room); err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (r *ChatRepo) AppendMessage(ctx context.Context, m *models.Message) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, err := r.messages.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *ChatRepo) ListMessages(ctx context.Context, roomID primitive.ObjectID, after time.Time) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.messages.Find(ctx, bson.M{"roomId": roomID, "createdAt": bson.M{"$gt": after}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Message{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return out, nil
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatRoom struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	SessionID      primitive.ObjectID   `bson:"sessionId" json:"sessionId"`
	ParticipantIDs []primitive.ObjectID `bson:"participantIds" json:"participantIds"`
	Anonymous      bool                 `bson:"anonymous" json:"anonymous"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
}

func (r *ChatRoom) HasParticipant(id primitive.ObjectID) bool {
	for _, p := range r.ParticipantIDs {
		if p == id {
			return true
		}
	}
	return false
}

// Message is append-only. SenderID is nil for anonymous senders, who are
// identified by SenderAlias alone.
type Message struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RoomID      primitive.ObjectID  `bson:"roomId" json:"roomId"`
	SenderID    *primitive.ObjectID `bson:"senderId,omitempty" json:"senderId,omitempty"`
	SenderAlias string              `bson:"senderAlias,omitempty" json:"senderAlias,omitempty"`
	Body        string              `bson:"body" json:"body"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

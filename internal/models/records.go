package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID    primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	CounsellorID primitive.ObjectID `bson:"counsellorId" json:"counsellorId"`
	ClientID     primitive.ObjectID `bson:"clientId" json:"clientId"`
	Rating       int                `bson:"rating" json:"rating"`
	Text         string             `bson:"text" json:"text"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ActorID   primitive.ObjectID `bson:"actorId" json:"actorId"`
	Action    string             `bson:"action" json:"action"`
	SubjectID primitive.ObjectID `bson:"subjectId" json:"subjectId"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

type Hotline struct {
	Name        string `bson:"name" json:"name"`
	Phone       string `bson:"phone" json:"phone"`
	Description string `bson:"description" json:"description,omitempty"`
	Hours       string `bson:"hours" json:"hours,omitempty"`
}

type EmergencyRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID  primitive.ObjectID `bson:"clientId" json:"clientId"`
	Details   string             `bson:"details" json:"details"`
	Status    string             `bson:"status" json:"status"`
	Hotlines  []Hotline          `bson:"hotlines" json:"hotlines"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SessionStatus string

const (
	StatusRequested SessionStatus = "requested"
	StatusConfirmed SessionStatus = "confirmed"
	StatusCancelled SessionStatus = "cancelled"
	StatusCompleted SessionStatus = "completed"
)

// ActiveStatuses hold a counsellor's time.
var ActiveStatuses = []SessionStatus{StatusRequested, StatusConfirmed}

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

func (s SessionStatus) Active() bool {
	return s == StatusRequested || s == StatusConfirmed
}

func (s SessionStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransition encodes requested -> confirmed -> completed and
// requested|confirmed -> cancelled. Nothing leaves a terminal state.
func CanTransition(from, to SessionStatus) bool {
	switch to {
	case StatusConfirmed:
		return from == StatusRequested
	case StatusCompleted:
		return from == StatusConfirmed
	case StatusCancelled:
		return from.Active()
	default:
		return false
	}
}

type Session struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID     primitive.ObjectID `bson:"clientId" json:"clientId"`
	CounsellorID primitive.ObjectID `bson:"counsellorId" json:"counsellorId"`
	Slot         TimeSlot           `bson:"slot" json:"slot"`
	Status       SessionStatus      `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (s *Session) HasParticipant(id primitive.ObjectID) bool {
	return s.ClientID == id || s.CounsellorID == id
}

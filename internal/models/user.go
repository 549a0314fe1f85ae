package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of account kinds.
type Role string

const (
	RoleClient     Role = "client"
	RoleCounsellor Role = "counsellor"
	RoleAdmin      Role = "admin"
)

// ParseRole maps user input onto a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleCounsellor, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName  string             `bson:"fullName" json:"fullName"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"` // bcrypt hash, never serialised
	Role      Role               `bson:"role" json:"role"`
	Phone     string             `bson:"phone" json:"phone,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// PublicUser is what other users get to see of an account.
type PublicUser struct {
	ID       primitive.ObjectID `json:"id"`
	FullName string             `json:"fullName"`
	Role     Role               `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, FullName: u.FullName, Role: u.Role}
}

// Actor is the authenticated identity a request runs as.
type Actor struct {
	UserID primitive.ObjectID
	Role   Role
}

func (a Actor) Is(id primitive.ObjectID) bool {
	return a.UserID == id
}

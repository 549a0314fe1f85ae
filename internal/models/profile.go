package models

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CounsellorProfile struct {
	UserID       primitive.ObjectID `bson:"_id" json:"userId"`
	FullName     string             `bson:"fullName" json:"fullName"`
	Specialties  []string           `bson:"specialties" json:"specialties"`
	Languages    []string           `bson:"languages" json:"languages"`
	Bio          string             `bson:"bio" json:"bio"`
	Level        string             `bson:"level" json:"level"`
	Availability []TimeSlot         `bson:"availability" json:"availability"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Offers reports whether slot fits inside one published availability slot.
func (p *CounsellorProfile) Offers(slot TimeSlot) bool {
	for _, a := range p.Availability {
		if slot.Within(a) {
			return true
		}
	}
	return false
}

type ClientProfile struct {
	UserID               primitive.ObjectID `bson:"_id" json:"userId"`
	Bio                  string             `bson:"bio" json:"bio"`
	Address              string             `bson:"address" json:"address"`
	Preferences          string             `bson:"preferences" json:"preferences"`
	AnonymousModeEnabled bool               `bson:"anonymousModeEnabled" json:"anonymousModeEnabled"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeTags gives tag lists set semantics: trimmed, lower-cased, unique, sorted.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

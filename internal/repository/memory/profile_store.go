package memory

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

type ProfileStore struct {
	mu          sync.RWMutex
	counsellors map[primitive.ObjectID]models.CounsellorProfile
	clients     map[primitive.ObjectID]models.ClientProfile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		counsellors: make(map[primitive.ObjectID]models.CounsellorProfile),
		clients:     make(map[primitive.ObjectID]models.ClientProfile),
	}
}

func (s *ProfileStore) GetCounsellor(_ context.Context, userID primitive.ObjectID) (*models.CounsellorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.counsellors[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = cloneCounsellor(p)
	return &p, nil
}

func (s *ProfileStore) ListCounsellors(_ context.Context, f repository.CounsellorFilter) ([]models.CounsellorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CounsellorProfile, 0, len(s.counsellors))
	for _, p := range s.counsellors {
		if f.Specialty != "" && !contains(p.Specialties, f.Specialty) {
			continue
		}
		if f.Language != "" && !contains(p.Languages, f.Language) {
			continue
		}
		out = append(out, cloneCounsellor(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *ProfileStore) UpsertCounsellor(_ context.Context, p *models.CounsellorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counsellors[p.UserID] = cloneCounsellor(*p)
	return nil
}

func (s *ProfileStore) GetClient(_ context.Context, userID primitive.ObjectID) (*models.ClientProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.clients[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *ProfileStore) UpsertClient(_ context.Context, p *models.ClientProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[p.UserID] = *p
	return nil
}

func cloneCounsellor(p models.CounsellorProfile) models.CounsellorProfile {
	p.Specialties = append([]string(nil), p.Specialties...)
	p.Languages = append([]string(nil), p.Languages...)
	p.Availability = append([]models.TimeSlot(nil), p.Availability...)
	return p
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

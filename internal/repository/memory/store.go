// Package memory keeps every repository in process memory. It backs local
// mode and the test suites.
package memory

import "github.com/harentsoaR/counsel-api/internal/repository"

func NewStore() *repository.Store {
	return &repository.Store{
		Users:       NewUserStore(),
		Profiles:    NewProfileStore(),
		Sessions:    NewSessionStore(),
		Reviews:     NewReviewStore(),
		Chat:        NewChatStore(),
		Audit:       NewAuditStore(),
		Emergencies: NewEmergencyStore(),
	}
}

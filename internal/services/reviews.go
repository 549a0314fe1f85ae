package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

const (
	minRating = 1
	maxRating = 5
)

type ReviewService struct {
	reviews  repository.ReviewRepository
	sessions repository.SessionRepository
	audit    *AuditService
	now      func() time.Time
}

func NewReviewService(reviews repository.ReviewRepository, sessions repository.SessionRepository, audit *AuditService) *ReviewService {
	return &ReviewService{reviews: reviews, sessions: sessions, audit: audit, now: time.Now}
}

type ReviewInput struct {
	SessionID primitive.ObjectID
	Rating    int
	Text      string
}

// SubmitReview accepts one review per completed session, written by that
// session's client about that session's counsellor.
func (s *ReviewService) SubmitReview(ctx context.Context, actor models.Actor, counsellorID primitive.ObjectID, in ReviewInput) (*models.Review, error) {
	if in.Rating < minRating || in.Rating > maxRating {
		return nil, invalidInput("rating must be between %d and %d", minRating, maxRating)
	}
	if actor.Role != models.RoleClient {
		return nil, ErrUnauthorized
	}

	sess, err := s.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: session", ErrNotFound)
		}
		return nil, err
	}
	if !actor.Is(sess.ClientID) {
		return nil, ErrUnauthorized
	}
	if sess.CounsellorID != counsellorID {
		return nil, fmt.Errorf("%w: session was with another counsellor", ErrReviewNotAllowed)
	}
	if sess.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: only completed sessions can be reviewed", ErrReviewNotAllowed)
	}

	if _, err := s.reviews.GetBySession(ctx, sess.ID); err == nil {
		return nil, fmt.Errorf("%w: this session already has a review", ErrReviewNotAllowed)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up review: %w", err)
	}

	review := &models.Review{
		ID:           primitive.NewObjectID(),
		SessionID:    sess.ID,
		CounsellorID: sess.CounsellorID,
		ClientID:     sess.ClientID,
		Rating:       in.Rating,
		Text:         strings.TrimSpace(in.Text),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: this session already has a review", ErrReviewNotAllowed)
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.audit.Record(ctx, actor.UserID, ActionReviewSubmitted, review.ID)
	return review, nil
}

type ReviewSummary struct {
	Reviews       []models.Review `json:"reviews"`
	Count         int             `json:"count"`
	AverageRating float64         `json:"averageRating"`
}

func (s *ReviewService) ListReviews(ctx context.Context, counsellorID primitive.ObjectID) (*ReviewSummary, error) {
	reviews, err := s.reviews.ListByCounsellor(ctx, counsellorID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	summary := &ReviewSummary{Reviews: reviews, Count: len(reviews)}
	if len(reviews) > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Rating
		}
		summary.AverageRating = float64(total) / float64(len(reviews))
	}
	return summary, nil
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/middleware"
	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/services"
)

// Handler turns HTTP requests into service calls. It holds no state of its own.
type Handler struct {
	Auth        *services.AuthService
	Profiles    *services.ProfileService
	Booking     *services.BookingService
	Reviews     *services.ReviewService
	Chat        *services.ChatService
	Hotlines    *services.HotlineService
	Emergencies *services.EmergencyService
	Audit       *services.AuditService
	Logger      *zap.Logger
}

// respondError maps service errors onto HTTP statuses. Anything unexpected
// is logged and reported as a bare 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidRole):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrSlotUnavailable),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrReviewNotAllowed),
		errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	default:
		h.Logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// actor reads the caller set by the auth middleware. It writes the 401 itself.
func actor(c *gin.Context) (models.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return a, ok
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalObjectID parses a query parameter; an empty value yields nil.
func optionalObjectID(c *gin.Context, name string) (*primitive.ObjectID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		badRequest(c, "Invalid "+name)
		return nil, false
	}
	return &id, true
}

// optionalTime parses an RFC 3339 query parameter; an empty value yields
// the zero time.
func optionalTime(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		badRequest(c, "Invalid "+name+", use RFC3339")
		return time.Time{}, false
	}
	return t, true
}

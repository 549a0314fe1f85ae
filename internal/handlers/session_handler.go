package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/services"
)

type createSessionRequest struct {
	CounsellorID string `json:"counsellorId" binding:"required"`
	// ClientID lets an admin book on a client's behalf; clients omit it.
	ClientID  string `json:"clientId"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	counsellorID, err := primitive.ObjectIDFromHex(req.CounsellorID)
	if err != nil {
		badRequest(c, "Invalid counsellorId")
		return
	}
	clientID := a.UserID
	if req.ClientID != "" {
		if clientID, err = primitive.ObjectIDFromHex(req.ClientID); err != nil {
			badRequest(c, "Invalid clientId")
			return
		}
	}
	startTime, err1 := time.Parse(time.RFC3339, req.StartTime)
	endTime, err2 := time.Parse(time.RFC3339, req.EndTime)
	if err1 != nil || err2 != nil {
		badRequest(c, "Invalid time format, use RFC3339")
		return
	}

	session, err := h.Booking.BookSession(c.Request.Context(), a, services.BookingRequest{
		ClientID:     clientID,
		CounsellorID: counsellorID,
		Slot:         models.TimeSlot{Start: startTime, End: endTime},
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// ListSessions supports ?status=&counsellorId=&clientId=&from=&to=. Clients
// and counsellors only ever see their own sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	q := services.SessionQuery{Status: models.SessionStatus(c.Query("status"))}
	if q.ClientID, ok = optionalObjectID(c, "clientId"); !ok {
		return
	}
	if q.CounsellorID, ok = optionalObjectID(c, "counsellorId"); !ok {
		return
	}
	if q.From, ok = optionalTime(c, "from"); !ok {
		return
	}
	if q.To, ok = optionalTime(c, "to"); !ok {
		return
	}

	sessions, err := h.Booking.ListSessions(c.Request.Context(), a, q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = make([]models.Session, 0)
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) GetSession(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	session, err := h.Booking.GetSession(c.Request.Context(), a, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// UpdateSession drives the status machine: {"status": "confirmed"|"cancelled"|"completed"}.
func (h *Handler) UpdateSession(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	session, err := h.Booking.ApplyStatus(c.Request.Context(), a, id, models.SessionStatus(req.Status))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

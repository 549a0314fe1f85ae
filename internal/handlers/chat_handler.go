package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
)

const streamHeartbeat = 25 * time.Second

func (h *Handler) CreateChatRoom(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
		Anonymous bool   `json:"anonymous"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(req.SessionID)
	if err != nil {
		badRequest(c, "Invalid sessionId")
		return
	}

	room, err := h.Chat.CreateRoom(c.Request.Context(), a, sessionID, req.Anonymous)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// ListMessages returns history, optionally only messages after ?after=RFC3339.
func (h *Handler) ListMessages(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	roomID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	after, ok := optionalTime(c, "after")
	if !ok {
		return
	}

	messages, err := h.Chat.ListMessages(c.Request.Context(), a, roomID, after)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if messages == nil {
		messages = make([]models.Message, 0)
	}
	c.JSON(http.StatusOK, messages)
}

func (h *Handler) PostMessage(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	roomID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	msg, err := h.Chat.PostMessage(c.Request.Context(), a, roomID, req.Body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// StreamMessages serves the room as Server-Sent Events: history after
// ?after= first, then live messages until the client disconnects.
func (h *Handler) StreamMessages(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	roomID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	after, ok := optionalTime(c, "after")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	stream, err := h.Chat.Follow(ctx, a, roomID, after)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, open := <-stream:
			if !open {
				return false
			}
			c.SSEvent("message", msg)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}

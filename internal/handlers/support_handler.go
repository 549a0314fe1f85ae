package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

func (h *Handler) ListHotlines(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hotlines.List(c.Request.Context()))
}

func (h *Handler) CreateEmergency(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req struct {
		Details string `json:"details" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	emergency, err := h.Emergencies.RaiseEmergency(c.Request.Context(), a, req.Details)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, emergency)
}

func (h *Handler) ListEmergencies(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	requests, err := h.Emergencies.ListEmergencies(c.Request.Context(), a)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if requests == nil {
		requests = make([]models.EmergencyRequest, 0)
	}
	c.JSON(http.StatusOK, requests)
}

// ListAuditLogs supports ?actorId=&subjectId=&action=&limit=.
func (h *Handler) ListAuditLogs(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var f repository.AuditFilter
	if f.ActorID, ok = optionalObjectID(c, "actorId"); !ok {
		return
	}
	if f.SubjectID, ok = optionalObjectID(c, "subjectId"); !ok {
		return
	}
	f.Action = c.Query("action")
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			badRequest(c, "Invalid limit")
			return
		}
		f.Limit = limit
	}

	logs, err := h.Audit.List(c.Request.Context(), a, f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if logs == nil {
		logs = make([]models.AuditLog, 0)
	}
	c.JSON(http.StatusOK, logs)
}

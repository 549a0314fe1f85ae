package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
	"github.com/harentsoaR/counsel-api/internal/services"
)

func (h *Handler) ListCounsellors(c *gin.Context) {
	profiles, err := h.Profiles.ListCounsellors(c.Request.Context(), repository.CounsellorFilter{
		Specialty: c.Query("specialty"),
		Language:  c.Query("language"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if profiles == nil {
		profiles = make([]models.CounsellorProfile, 0)
	}
	c.JSON(http.StatusOK, profiles)
}

func (h *Handler) GetCounsellor(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	profile, err := h.Profiles.GetCounsellor(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Omitted fields are left unchanged.
type updateCounsellorRequest struct {
	Specialties  *[]string          `json:"specialties"`
	Languages    *[]string          `json:"languages"`
	Bio          *string            `json:"bio"`
	Level        *string            `json:"level"`
	Availability *[]models.TimeSlot `json:"availability"`
}

func (h *Handler) UpdateCounsellor(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req updateCounsellorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	profile, err := h.Profiles.UpdateCounsellor(c.Request.Context(), a, id, services.CounsellorUpdate{
		Specialties:  req.Specialties,
		Languages:    req.Languages,
		Bio:          req.Bio,
		Level:        req.Level,
		Availability: req.Availability,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) GetClient(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	profile, err := h.Profiles.GetClient(c.Request.Context(), a, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdateClient(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Bio                  *string `json:"bio"`
		Address              *string `json:"address"`
		Preferences          *string `json:"preferences"`
		AnonymousModeEnabled *bool   `json:"anonymousModeEnabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	profile, err := h.Profiles.UpdateClient(c.Request.Context(), a, id, services.ClientUpdate{
		Bio:                  req.Bio,
		Address:              req.Address,
		Preferences:          req.Preferences,
		AnonymousModeEnabled: req.AnonymousModeEnabled,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) SubmitReview(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	counsellorID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
		Rating    int    `json:"rating"`
		Text      string `json:"text"`
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

	review, err := h.Reviews.SubmitReview(c.Request.Context(), a, counsellorID, services.ReviewInput{
		SessionID: sessionID,
		Rating:    req.Rating,
		Text:      req.Text,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) ListReviews(c *gin.Context) {
	counsellorID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.Reviews.ListReviews(c.Request.Context(), counsellorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	emaildomain "schoolsync-backend/internal/email/domain"
	"schoolsync-backend/internal/email/usecase"
)

// EmailHandler handles mailbox, event and action HTTP requests
type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(emailUsecase usecase.EmailUsecase) *EmailHandler {
	return &EmailHandler{emailUsecase: emailUsecase}
}

// GetEmails returns processed emails for the authenticated user
// GET /api/emails?limit=50&offset=0
func (h *EmailHandler) GetEmails(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	emails, total, err := h.emailUsecase.ListEmails(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if emails == nil {
		emails = []*emaildomain.Email{}
	}
	c.JSON(http.StatusOK, gin.H{"emails": emails, "total": total})
}

// GetEmailByID returns one processed email
// GET /api/emails/:id
func (h *EmailHandler) GetEmailByID(c *gin.Context) {
	userID := c.GetString("userID")

	email, err := h.emailUsecase.GetEmail(userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrEmailNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, email)
}

// DraftReply generates an AI reply draft for an email
// POST /api/emails/:id/draft-reply
func (h *EmailHandler) DraftReply(c *gin.Context) {
	userID := c.GetString("userID")

	draft, err := h.emailUsecase.DraftReply(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrEmailNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Email not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate draft"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// GetEvents returns extracted school events
// GET /api/events
func (h *EmailHandler) GetEvents(c *gin.Context) {
	userID := c.GetString("userID")

	events, err := h.emailUsecase.ListEvents(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if events == nil {
		events = []*emaildomain.SchoolEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetActions returns extracted action items
// GET /api/actions
func (h *EmailHandler) GetActions(c *gin.Context) {
	userID := c.GetString("userID")

	actions, err := h.emailUsecase.ListActions(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if actions == nil {
		actions = []*emaildomain.ActionItem{}
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// ToggleAction flips an action item's completed state
// PATCH /api/actions/:id/toggle
func (h *EmailHandler) ToggleAction(c *gin.Context) {
	userID := c.GetString("userID")

	action, err := h.emailUsecase.ToggleAction(userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrActionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Action not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, action)
}

package delivery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	childdomain "schoolsync-backend/internal/child/domain"
	"schoolsync-backend/internal/child/usecase"
)

// ChildHandler handles child-profile HTTP requests
type ChildHandler struct {
	childUsecase usecase.ChildUsecase
}

// NewChildHandler creates a new ChildHandler
func NewChildHandler(childUsecase usecase.ChildUsecase) *ChildHandler {
	return &ChildHandler{childUsecase: childUsecase}
}

// ListChildren returns all children for the authenticated user
// GET /api/children
func (h *ChildHandler) ListChildren(c *gin.Context) {
	userID := c.GetString("userID")

	children, err := h.childUsecase.ListChildren(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if children == nil {
		children = []*childdomain.Child{}
	}
	c.JSON(http.StatusOK, gin.H{"children": children})
}

// CreateChild creates a new child profile
// POST /api/children
func (h *ChildHandler) CreateChild(c *gin.Context) {
	userID := c.GetString("userID")

	var req usecase.ChildInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	child, err := h.childUsecase.CreateChild(userID, req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, child)
}

// GetChild returns a specific child
// GET /api/children/:id
func (h *ChildHandler) GetChild(c *gin.Context) {
	userID := c.GetString("userID")

	child, err := h.childUsecase.GetChild(userID, c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, child)
}

// UpdateChild updates a child profile
// PUT /api/children/:id
func (h *ChildHandler) UpdateChild(c *gin.Context) {
	userID := c.GetString("userID")

	var req usecase.ChildInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	child, err := h.childUsecase.UpdateChild(userID, c.Param("id"), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, child)
}

// DeleteChild removes a child profile
// DELETE /api/children/:id
func (h *ChildHandler) DeleteChild(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.childUsecase.DeleteChild(userID, c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Child deleted"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrChildNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrDuplicateName):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

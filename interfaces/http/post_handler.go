package http

import (
	"net/http"

	"social-scheduler/domain/dto"
	"social-scheduler/infrastructure/logger"
	"social-scheduler/usecase"

	"github.com/gin-gonic/gin"
)

type IPostHandler interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Schedule(c *gin.Context)
}

type PostHandler struct {
	PostUsecase usecase.IPostUsecase
}

func NewPostHandler(postUsecase usecase.IPostUsecase) IPostHandler {
	return &PostHandler{PostUsecase: postUsecase}
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
}

// Create handles POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	post, err := h.PostUsecase.Create(c.Request.Context(), owner, req)
	if err != nil {
		logger.GetLogger().WithField("user_id", owner).WithField("error", err).Warn("Failed to create post")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// List handles GET /api/posts
func (h *PostHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	posts, err := h.PostUsecase.List(c.Request.Context(), owner)
	if err != nil {
		logger.GetLogger().WithField("user_id", owner).WithField("error", err).Error("Failed to list posts")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Get handles GET /api/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	post, err := h.PostUsecase.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Update handles PUT /api/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req dto.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	post, err := h.PostUsecase.Update(c.Request.Context(), owner, c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Schedule handles POST /api/posts/:id/schedule
func (h *PostHandler) Schedule(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req dto.SchedulePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	post, err := h.PostUsecase.Schedule(c.Request.Context(), owner, c.Param("id"), req.ScheduledAt)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

package handler

import (
	"net/http"

	"eventstage/internal/model"
	"eventstage/internal/service"

	"github.com/gin-gonic/gin"
)

type StagePostHandler struct {
	service service.StagePostService
}

func NewStagePostHandler(service service.StagePostService) *StagePostHandler {
	return &StagePostHandler{service: service}
}

func (h *StagePostHandler) RegisterRoutes(router *gin.RouterGroup) {
	posts := router.Group("events/:id/stage-posts", RequireUser())
	{
		posts.POST("", h.AddStagePost)
		posts.PUT("order", h.ReorderStagePosts)
		posts.PATCH(":postId", h.UpdateStagePost)
		posts.DELETE(":postId", h.DeleteStagePost)
		posts.POST(":postId/like", h.ToggleLike)
		posts.POST(":postId/comments", h.AddComment)
		posts.PATCH(":postId/comments/:commentId", h.EditComment)
		posts.DELETE(":postId/comments/:commentId", h.DeleteComment)
	}
}

type reorderRequest struct {
	PostIDs []string `json:"post_ids" binding:"required"`
}

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *StagePostHandler) AddStagePost(c *gin.Context) {
	var in model.StagePostInput
	if err := BindJson(c, &in); err != nil {
		return
	}

	post, err := h.service.AddStagePost(c, c.Param("id"), currentUser(c), in)
	if err != nil {
		handleError(c, err, "AddStagePost")
		return
	}

	handleSuccess(c, post, http.StatusCreated)
}

func (h *StagePostHandler) UpdateStagePost(c *gin.Context) {
	var patch model.StagePostPatch
	if err := BindJson(c, &patch); err != nil {
		return
	}

	post, err := h.service.UpdateStagePost(c, c.Param("id"), currentUser(c), c.Param("postId"), patch)
	if err != nil {
		handleError(c, err, "UpdateStagePost")
		return
	}

	handleSuccess(c, post, http.StatusOK)
}

func (h *StagePostHandler) DeleteStagePost(c *gin.Context) {
	if err := h.service.DeleteStagePost(c, c.Param("id"), currentUser(c), c.Param("postId")); err != nil {
		handleError(c, err, "DeleteStagePost")
		return
	}

	handleSuccess(c, nil, http.StatusNoContent)
}

func (h *StagePostHandler) ReorderStagePosts(c *gin.Context) {
	var req reorderRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	posts, err := h.service.ReorderStagePosts(c, c.Param("id"), currentUser(c), req.PostIDs)
	if err != nil {
		handleError(c, err, "ReorderStagePosts")
		return
	}

	handleSuccess(c, posts, http.StatusOK)
}

func (h *StagePostHandler) ToggleLike(c *gin.Context) {
	post, liked, err := h.service.ToggleLike(c, c.Param("id"), currentUser(c), c.Param("postId"))
	if err != nil {
		handleError(c, err, "ToggleLike")
		return
	}

	handleSuccess(c, gin.H{"post": post, "liked": liked}, http.StatusOK)
}

func (h *StagePostHandler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	comment, err := h.service.AddComment(c, c.Param("id"), currentUser(c), c.Param("postId"), req.Text)
	if err != nil {
		handleError(c, err, "AddComment")
		return
	}

	handleSuccess(c, comment, http.StatusCreated)
}

func (h *StagePostHandler) EditComment(c *gin.Context) {
	var req commentRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	comment, err := h.service.EditComment(c, c.Param("id"), currentUser(c), c.Param("postId"), c.Param("commentId"), req.Text)
	if err != nil {
		handleError(c, err, "EditComment")
		return
	}

	handleSuccess(c, comment, http.StatusOK)
}

func (h *StagePostHandler) DeleteComment(c *gin.Context) {
	if err := h.service.DeleteComment(c, c.Param("id"), currentUser(c), c.Param("postId"), c.Param("commentId")); err != nil {
		handleError(c, err, "DeleteComment")
		return
	}

	handleSuccess(c, nil, http.StatusNoContent)
}

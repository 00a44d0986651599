package handler

import (
	"errors"
	"net/http"

	apperrors "eventstage/pkg/app_errors"
	"eventstage/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable maps domain errors to responses. Anything else is a 500.
var errorTable = []errorMapping{
	{apperrors.ErrEventNotFound, http.StatusNotFound, "event_not_found"},
	{apperrors.ErrTierNotFound, http.StatusNotFound, "tier_not_found"},
	{apperrors.ErrPurchaseNotFound, http.StatusNotFound, "purchase_not_found"},
	{apperrors.ErrGroupNotFound, http.StatusNotFound, "group_not_found"},
	{apperrors.ErrStagePostNotFound, http.StatusNotFound, "stage_post_not_found"},
	{apperrors.ErrCommentNotFound, http.StatusNotFound, "comment_not_found"},

	{apperrors.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{apperrors.ErrNotGroupAdmin, http.StatusForbidden, "not_group_admin"},

	{apperrors.ErrSoldOut, http.StatusConflict, "sold_out"},
	{apperrors.ErrHasSales, http.StatusConflict, "has_sales"},
	{apperrors.ErrEventCancelled, http.StatusConflict, "event_cancelled"},
	{apperrors.ErrAlreadyInvited, http.StatusConflict, "already_invited"},

	{apperrors.ErrInvalidIndex, http.StatusBadRequest, "invalid_index"},
	{apperrors.ErrInvalidVoteType, http.StatusBadRequest, "invalid_vote_type"},
	{apperrors.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{apperrors.ErrNotInvited, http.StatusBadRequest, "not_invited"},
	{apperrors.ErrOrderMismatch, http.StatusBadRequest, "order_mismatch"},
	{apperrors.ErrTitleRequired, http.StatusBadRequest, "title_required"},
	{apperrors.ErrQuantityBelowSold, http.StatusBadRequest, "quantity_below_sold"},
	{apperrors.ErrInvalidToken, http.StatusBadRequest, "invalid_token"},
	{apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
}

func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			log.Warn("Request rejected", zap.String("code", m.code))
			c.JSON(m.status, gin.H{
				"error": m.err.Error(),
				"code":  m.code,
			})
			return
		}
	}
	log.Error("Unexpected error")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}

func handleSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}

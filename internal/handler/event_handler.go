package handler

import (
	"net/http"
	"time"

	"eventstage/internal/model"
	"eventstage/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := RequireUser()
	{
		router.GET("events", h.ListEvents)
		router.GET("events/:id", h.GetEvent)
		router.GET("groups/:groupId/events", h.ListGroupEvents)

		router.POST("events", auth, h.CreateEvent)
		router.PATCH("events/:id", auth, h.EditEvent)
		router.DELETE("events/:id", auth, h.DeleteEvent)
		router.POST("events/:id/cancel", auth, h.CancelEvent)

		router.POST("events/:id/like", auth, h.LikeEvent)
		router.DELETE("events/:id/like", auth, h.UnlikeEvent)
		router.POST("events/:id/votes", auth, h.Vote)
		router.DELETE("events/:id/votes", auth, h.Unvote)

		router.POST("events/:id/invites", auth, h.InviteUsers)
		router.PUT("events/:id/rsvp", auth, h.RespondToInvite)

		router.PUT("events/:id/team/:userId", auth, h.SetTeamMember)
		router.DELETE("events/:id/team/:userId", auth, h.RemoveTeamMember)
	}
}

type createEventRequest struct {
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	OrganizerName     string                 `json:"organizer_name"`
	GroupID           *string                `json:"group_id"`
	BannerImages      []string               `json:"banner_images"`
	Tags              []string               `json:"tags"`
	Categories        []string               `json:"categories"`
	Services          []string               `json:"services"`
	Access            *model.Access          `json:"access"`
	IsLive            *bool                  `json:"is_live"`
	Locations         []model.LocationOption `json:"locations"`
	LocationTBA       bool                   `json:"location_tba"`
	Dates             []model.DateGroup      `json:"dates"`
	DateTBA           bool                   `json:"date_tba"`
	LastDateForRefund *time.Time             `json:"last_date_for_refund"`
	Tiers             []model.TierSpec       `json:"tiers"`
}

type listEventsQuery struct {
	Category string `form:"category"`
	Query    string `form:"q"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

type voteRequest struct {
	Type  model.VoteType   `json:"type" binding:"required"`
	Index *model.PollIndex `json:"index" binding:"required"`
}

type inviteRequest struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

type rsvpRequest struct {
	Status model.RSVPStatus `json:"status" binding:"required"`
}

type teamRequest struct {
	Role model.TeamRole `json:"role" binding:"required"`
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	created, err := h.service.CreateEvent(c, model.CreateEventParams{
		OrganizerID:       currentUser(c),
		OrganizerName:     req.OrganizerName,
		GroupID:           req.GroupID,
		Title:             req.Title,
		Description:       req.Description,
		BannerImages:      req.BannerImages,
		Tags:              req.Tags,
		Categories:        req.Categories,
		Services:          req.Services,
		Access:            req.Access,
		IsLive:            req.IsLive,
		Locations:         req.Locations,
		LocationTBA:       req.LocationTBA,
		Dates:             req.Dates,
		DateTBA:           req.DateTBA,
		LastDateForRefund: req.LastDateForRefund,
		Tiers:             req.Tiers,
	})
	if err != nil {
		handleError(c, err, "CreateEvent")
		return
	}

	handleSuccess(c, created, http.StatusCreated)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.service.GetEvent(c, c.Param("id"), currentUser(c))
	if err != nil {
		handleError(c, err, "GetEvent")
		return
	}

	handleSuccess(c, event, http.StatusOK)
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	var q listEventsQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}

	events, err := h.service.ListPublicEvents(c, model.EventFilter{
		Category: q.Category,
		Query:    q.Query,
		Page:     q.Page,
		Limit:    q.Limit,
	})
	if err != nil {
		handleError(c, err, "ListEvents")
		return
	}

	handleSuccess(c, events, http.StatusOK)
}

func (h *EventHandler) ListGroupEvents(c *gin.Context) {
	events, err := h.service.ListGroupEvents(c, c.Param("groupId"), currentUser(c))
	if err != nil {
		handleError(c, err, "ListGroupEvents")
		return
	}

	handleSuccess(c, events, http.StatusOK)
}

func (h *EventHandler) EditEvent(c *gin.Context) {
	var patch model.EventPatch
	if err := BindJson(c, &patch); err != nil {
		return
	}

	event, err := h.service.EditEvent(c, c.Param("id"), currentUser(c), patch)
	if err != nil {
		handleError(c, err, "EditEvent")
		return
	}

	handleSuccess(c, event, http.StatusOK)
}

func (h *EventHandler) DeleteEvent(c *gin.Context) {
	if err := h.service.SoftDeleteEvent(c, c.Param("id"), currentUser(c)); err != nil {
		handleError(c, err, "DeleteEvent")
		return
	}

	handleSuccess(c, nil, http.StatusNoContent)
}

func (h *EventHandler) CancelEvent(c *gin.Context) {
	event, err := h.service.CancelEvent(c, c.Param("id"), currentUser(c))
	if err != nil {
		handleError(c, err, "CancelEvent")
		return
	}

	handleSuccess(c, event, http.StatusOK)
}

func (h *EventHandler) LikeEvent(c *gin.Context) {
	status, err := h.service.LikeEvent(c, c.Param("id"), currentUser(c))
	if err != nil {
		handleError(c, err, "LikeEvent")
		return
	}

	handleSuccess(c, status, http.StatusOK)
}

func (h *EventHandler) UnlikeEvent(c *gin.Context) {
	status, err := h.service.UnlikeEvent(c, c.Param("id"), currentUser(c))
	if err != nil {
		handleError(c, err, "UnlikeEvent")
		return
	}

	handleSuccess(c, status, http.StatusOK)
}

func (h *EventHandler) Vote(c *gin.Context) {
	var req voteRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	tally, err := h.service.Vote(c, c.Param("id"), currentUser(c), req.Type, *req.Index)
	if err != nil {
		handleError(c, err, "Vote")
		return
	}

	handleSuccess(c, tally, http.StatusOK)
}

func (h *EventHandler) Unvote(c *gin.Context) {
	var req voteRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	tally, err := h.service.Unvote(c, c.Param("id"), currentUser(c), req.Type, *req.Index)
	if err != nil {
		handleError(c, err, "Unvote")
		return
	}

	handleSuccess(c, tally, http.StatusOK)
}

func (h *EventHandler) InviteUsers(c *gin.Context) {
	var req inviteRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	invited, err := h.service.InviteUsers(c, c.Param("id"), currentUser(c), req.UserIDs)
	if err != nil {
		handleError(c, err, "InviteUsers")
		return
	}

	handleSuccess(c, gin.H{"invited": invited}, http.StatusOK)
}

func (h *EventHandler) RespondToInvite(c *gin.Context) {
	var req rsvpRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	rsvp, err := h.service.RespondToInvite(c, c.Param("id"), currentUser(c), req.Status)
	if err != nil {
		handleError(c, err, "RespondToInvite")
		return
	}

	handleSuccess(c, rsvp, http.StatusOK)
}

func (h *EventHandler) SetTeamMember(c *gin.Context) {
	var req teamRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	team, err := h.service.SetTeamMember(c, c.Param("id"), currentUser(c), c.Param("userId"), req.Role)
	if err != nil {
		handleError(c, err, "SetTeamMember")
		return
	}

	handleSuccess(c, team, http.StatusOK)
}

func (h *EventHandler) RemoveTeamMember(c *gin.Context) {
	team, err := h.service.RemoveTeamMember(c, c.Param("id"), currentUser(c), c.Param("userId"))
	if err != nil {
		handleError(c, err, "RemoveTeamMember")
		return
	}

	handleSuccess(c, team, http.StatusOK)
}

package handler

import (
	"net/http"

	"eventstage/internal/model"
	"eventstage/internal/redeem"
	"eventstage/internal/service"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	tickets   service.TicketService
	purchases service.PurchaseService
}

func NewTicketHandler(tickets service.TicketService, purchases service.PurchaseService) *TicketHandler {
	return &TicketHandler{tickets: tickets, purchases: purchases}
}

func (h *TicketHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := RequireUser()
	{
		router.GET("events/:id/tickets", h.ListTiers)
		router.POST("events/:id/tickets", auth, h.AddTier)
		router.PATCH("events/:id/tickets/:tierId", auth, h.UpdateTier)
		router.DELETE("events/:id/tickets/:tierId", auth, h.DeleteTier)
		router.POST("events/:id/tickets/:tierId/purchase", auth, h.Purchase)

		router.GET("me/passes", auth, h.GetPasses)
		router.POST("me/passes/reconcile", auth, h.ReconcilePasses)
		router.GET("passes/verify", auth, h.VerifyToken)
		router.GET("passes/:purchaseId", auth, h.GetPurchase)
		router.GET("passes/:purchaseId/qr", auth, h.GetPassQR)
	}
}

// PurchaseTicketRequest 購票請求
type PurchaseTicketRequest struct {
	Quantity int  `json:"quantity" binding:"required,min=1"`
	Paid     bool `json:"paid"`
}

type verifyQuery struct {
	Token string `form:"token" binding:"required"`
}

func (h *TicketHandler) ListTiers(c *gin.Context) {
	tiers, err := h.tickets.ListTiers(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "ListTiers")
		return
	}

	handleSuccess(c, tiers, http.StatusOK)
}

func (h *TicketHandler) AddTier(c *gin.Context) {
	var spec model.TierSpec
	if err := BindJson(c, &spec); err != nil {
		return
	}

	tier, err := h.tickets.AddTier(c, c.Param("id"), currentUser(c), spec)
	if err != nil {
		handleError(c, err, "AddTier")
		return
	}

	handleSuccess(c, tier, http.StatusCreated)
}

func (h *TicketHandler) UpdateTier(c *gin.Context) {
	var params model.UpdateTierParams
	if err := BindJson(c, &params); err != nil {
		return
	}

	tier, err := h.tickets.UpdateTier(c, c.Param("id"), currentUser(c), c.Param("tierId"), params)
	if err != nil {
		handleError(c, err, "UpdateTier")
		return
	}

	handleSuccess(c, tier, http.StatusOK)
}

func (h *TicketHandler) DeleteTier(c *gin.Context) {
	if err := h.tickets.DeleteTier(c, c.Param("id"), currentUser(c), c.Param("tierId")); err != nil {
		handleError(c, err, "DeleteTier")
		return
	}

	handleSuccess(c, nil, http.StatusNoContent)
}

func (h *TicketHandler) Purchase(c *gin.Context) {
	var req PurchaseTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	confirmation, err := h.purchases.Purchase(c, model.PurchaseRequest{
		EventID:  c.Param("id"),
		TierID:   c.Param("tierId"),
		BuyerID:  currentUser(c),
		Quantity: req.Quantity,
		Paid:     req.Paid,
	})
	if err != nil {
		handleError(c, err, "Purchase")
		return
	}

	handleSuccess(c, confirmation, http.StatusCreated)
}

func (h *TicketHandler) GetPasses(c *gin.Context) {
	passes, err := h.purchases.GetPasses(c, currentUser(c))
	if err != nil {
		handleError(c, err, "GetPasses")
		return
	}

	handleSuccess(c, passes, http.StatusOK)
}

func (h *TicketHandler) ReconcilePasses(c *gin.Context) {
	added, err := h.purchases.ReconcilePasses(c, currentUser(c))
	if err != nil {
		handleError(c, err, "ReconcilePasses")
		return
	}

	handleSuccess(c, gin.H{"added": added}, http.StatusOK)
}

func (h *TicketHandler) GetPurchase(c *gin.Context) {
	pass, err := h.purchases.GetPurchase(c, c.Param("purchaseId"), currentUser(c))
	if err != nil {
		handleError(c, err, "GetPurchase")
		return
	}

	handleSuccess(c, pass, http.StatusOK)
}

// GetPassQR 回傳入場 QR code 圖片
func (h *TicketHandler) GetPassQR(c *gin.Context) {
	pass, err := h.purchases.GetPurchase(c, c.Param("purchaseId"), currentUser(c))
	if err != nil {
		handleError(c, err, "GetPassQR")
		return
	}

	png, err := redeem.QR(pass.RedemptionToken)
	if err != nil {
		handleError(c, err, "GetPassQR")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *TicketHandler) VerifyToken(c *gin.Context) {
	var q verifyQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}

	pass, err := h.purchases.VerifyToken(c, q.Token, currentUser(c))
	if err != nil {
		handleError(c, err, "VerifyToken")
		return
	}

	handleSuccess(c, pass, http.StatusOK)
}

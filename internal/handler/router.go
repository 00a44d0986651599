package handler

import (
	"net/http"

	"eventstage/internal/metrics"
	"eventstage/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Events     service.EventService
	Tickets    service.TicketService
	Purchases  service.PurchaseService
	StagePosts service.StagePostService
}

func NewRouter(svc Services, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1", Authenticate(jwtSecret))
	NewEventHandler(svc.Events).RegisterRoutes(api)
	NewTicketHandler(svc.Tickets, svc.Purchases).RegisterRoutes(api)
	NewStagePostHandler(svc.StagePosts).RegisterRoutes(api)
	return r
}

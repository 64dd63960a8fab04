package http

import (
	"net/http"

	"social-scheduler/usecase"

	"github.com/gin-gonic/gin"
)

type IHealthHandler interface {
	Healthz(c *gin.Context)
}

type HealthHandler struct {
	Controller usecase.IServiceController
}

func NewHealthHandler(controller usecase.IServiceController) IHealthHandler {
	return &HealthHandler{Controller: controller}
}

// Healthz returns OK for health checks
func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "scheduler": h.Controller.IsRunning()})
}

package http

import (
	"net/http"
	"strconv"

	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
	"social-scheduler/usecase"

	"github.com/gin-gonic/gin"
)

type ISchedulerHandler interface {
	Status(c *gin.Context)
	Start(c *gin.Context)
	Stop(c *gin.Context)
	Run(c *gin.Context)
	Stream(c *gin.Context)
	History(c *gin.Context)
}

// EventStream serves a long-lived event stream to the caller.
type EventStream interface {
	Serve(c *gin.Context)
}

type SchedulerHandler struct {
	Controller   usecase.IServiceController
	Events       EventStream
	BatchHistory repository.IBatchHistory
}

// NewSchedulerHandler wires the scheduler endpoints. history may be nil when no
// batch history store is configured.
func NewSchedulerHandler(controller usecase.IServiceController, events EventStream, history repository.IBatchHistory) ISchedulerHandler {
	return &SchedulerHandler{Controller: controller, Events: events, BatchHistory: history}
}

// Status handles GET /api/scheduler/status
func (h *SchedulerHandler) Status(c *gin.Context) {
	res := gin.H{"running": h.Controller.IsRunning(), "lastBatch": nil}
	if last, ok := h.Controller.LastBatch(); ok {
		res["lastBatch"] = last
	}
	c.JSON(http.StatusOK, res)
}

// Start handles POST /api/scheduler/start
func (h *SchedulerHandler) Start(c *gin.Context) {
	started := h.Controller.Start()
	logger.GetLogger().WithField("user_id", c.GetString("user_id")).WithField("started", started).Info("Scheduler start requested")
	c.JSON(http.StatusOK, gin.H{"running": h.Controller.IsRunning(), "changed": started})
}

// Stop handles POST /api/scheduler/stop. It returns once any in-flight tick has finished.
func (h *SchedulerHandler) Stop(c *gin.Context) {
	stopped := h.Controller.Stop()
	logger.GetLogger().WithField("user_id", c.GetString("user_id")).WithField("stopped", stopped).Info("Scheduler stop requested")
	c.JSON(http.StatusOK, gin.H{"running": h.Controller.IsRunning(), "changed": stopped})
}

// Run handles POST /api/scheduler/run and processes one batch synchronously.
func (h *SchedulerHandler) Run(c *gin.Context) {
	result := h.Controller.RunOnce(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"batch": result, "outcomes": result.Outcomes})
}

// Stream handles GET /api/scheduler/stream
func (h *SchedulerHandler) Stream(c *gin.Context) {
	h.Events.Serve(c)
}

// History handles GET /api/scheduler/history?limit=n
func (h *SchedulerHandler) History(c *gin.Context) {
	if h.BatchHistory == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history_unavailable", "message": "batch history store not configured"})
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}
	batches, err := h.BatchHistory.Latest(c.Request.Context(), limit)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to read batch history")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

package api

import (
	"fmt"
	"net/http"
	"time"

	"canvas-analytics-etl/internal/config"
	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/internal/model"
	"canvas-analytics-etl/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handler struct {
	producer *queue.Producer
	status   *queue.StatusStore
	cfg      *config.Config
	log      zerolog.Logger
}

func NewHandler(
	producer *queue.Producer,
	status *queue.StatusStore,
	cfg *config.Config,
) *Handler {
	return &Handler{
		producer: producer,
		status:   status,
		cfg:      cfg,
		log:      logger.Get(),
	}
}

// TriggerRun enqueues a full pipeline run.
func (h *Handler) TriggerRun(c *gin.Context) {
	// The request body is optional.
	var req model.RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	job := model.RunJob{
		RunID:       newRunID(),
		RequestedAt: time.Now().UTC(),
		RequestedBy: req.RequestedBy,
	}

	if err := h.producer.EnqueueRunJob(c.Request.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue run job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue run"})
		return
	}

	h.log.Info().Str("run_id", job.RunID).Str("requested_by", job.RequestedBy).Msg("Run job enqueued")

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Run queued successfully",
		"job":     job,
	})
}

// LatestRun reports the summary of the most recent pipeline run.
func (h *Handler) LatestRun(c *gin.Context) {
	summary, err := h.status.GetLatestRun(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read latest run summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No runs recorded yet"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

func newRunID() string {
	return fmt.Sprintf("run-%s", time.Now().UTC().Format("20060102T150405.000"))
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/service"
	appErrors "github.com/abdoElHodaky/sasscolmng-sub001/pkg/errors"
	"github.com/abdoElHodaky/sasscolmng-sub001/pkg/response"
)

// JobHandler exposes the asynchronous solve queue.
type JobHandler struct {
	service *service.SolveJobService
}

// NewJobHandler constructs handler.
func NewJobHandler(svc *service.SolveJobService) *JobHandler {
	return &JobHandler{service: svc}
}

// Enqueue accepts a scheduling job and queues it for background execution.
func (h *JobHandler) Enqueue(c *gin.Context) {
	var req dto.EnqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	ack, err := h.service.Enqueue(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, ack)
}

// Status reports a job's current state and, when finished, its result.
func (h *JobHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !status.Found {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "job not found"))
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// Cancel aborts a job that has not started yet.
func (h *JobHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats reports per-state queue depths.
func (h *JobHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

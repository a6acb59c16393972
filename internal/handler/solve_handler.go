package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/service"
	appErrors "github.com/abdoElHodaky/sasscolmng-sub001/pkg/errors"
	"github.com/abdoElHodaky/sasscolmng-sub001/pkg/response"
)

// SolveHandler exposes synchronous solving endpoints.
type SolveHandler struct {
	service *service.SolverService
}

// NewSolveHandler constructs handler.
func NewSolveHandler(svc *service.SolverService) *SolveHandler {
	return &SolveHandler{service: svc}
}

// Solve runs a scheduling request to completion and returns its result.
func (h *SolveHandler) Solve(c *gin.Context) {
	var req dto.SchedulingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.service.Solve(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Validate checks a request's existing sessions against the constraint
// engines without producing new placements.
func (h *SolveHandler) Validate(c *gin.Context) {
	var req dto.SchedulingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.service.ValidateOnly(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Capabilities advertises the solving surface.
func (h *SolveHandler) Capabilities(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Capabilities())
}

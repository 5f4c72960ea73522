package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// KPIRunner is the service surface the handler needs.
type KPIRunner interface {
	Run(ctx context.Context, req domain.RunRequest) (domain.RunResult, error)
	Latest(ctx context.Context, tenantID, asOfDate string) (*domain.RunResult, error)
}

type KPIHandler struct {
	service KPIRunner
}

func NewKPIHandler(service KPIRunner) *KPIHandler {
	return &KPIHandler{service: service}
}

// Run triggers the engine for one tenant. The request is read from a JSON
// body, or from the query string when the body is empty. Every response,
// failures included, carries the RunResult shape.
func (h *KPIHandler) Run(c *gin.Context) {
	var req domain.RunRequest
	var err error
	if c.Request.ContentLength == 0 {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.RunResult{
			Success: false,
			Errors:  []string{"invalid request body: " + err.Error()},
		})
		return
	}

	result, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("run_id", result.RunID).Str("tenant_id", req.TenantID).Msg("kpi handler: run failed")
		}
		result.Success = false
		if len(result.Errors) == 0 {
			result.Errors = []string{err.Error()}
		}
		c.JSON(status, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Latest returns the newest run summary of a tenant.
func (h *KPIHandler) Latest(c *gin.Context) {
	result, err := h.service.Latest(c.Request.Context(), c.Query("tenant_id"), c.Query("as_of_date"))
	if err != nil {
		errorResponse(c, statusFor(err), err)
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no kpi run found"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingTenant), errors.Is(err, domain.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("kpi handler: request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

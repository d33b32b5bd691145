// Package handler holds the gin handlers of the pipeline API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/unify/internal/domain/shared"
	"github.com/erp/unify/internal/infrastructure/logger"
	"github.com/erp/unify/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides the response helpers shared by all handlers
type BaseHandler struct{}

// Success responds 200 with data
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created responds 201 with data
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// List responds 200 with a list and its total
func (h *BaseHandler) List(c *gin.Context, data any, total int64) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, total))
}

// ErrorWithCode responds with code, its mapped status and message
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, requestID(c)))
}

// BadRequest responds 400
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeInvalidInput, message)
}

// HandleError maps err to a response. Domain errors keep their wrapped
// message, everything else is logged and hidden behind a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.HandleErrorWithData(c, err, nil)
}

// HandleErrorWithData is HandleError carrying a partial result in data
func (h *BaseHandler) HandleErrorWithData(c *gin.Context, err error, data any) {
	code, message := classify(err)
	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("request failed", zap.String("code", code), zap.Error(err))
		if code == dto.ErrCodeInternal {
			message = "An internal error occurred"
		}
	}
	_ = c.Error(err)

	resp := dto.NewErrorResponseWithRequestID(code, message, requestID(c))
	resp.Data = data
	c.JSON(status, resp)
}

func classify(err error) (code, message string) {
	var de *shared.DomainError
	switch {
	case errors.As(err, &de):
		return dto.NormalizeErrorCode(de.Code), err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return dto.ErrCodeTimeout, "Request timed out"
	case errors.Is(err, context.Canceled):
		return dto.ErrCodeServiceUnavailable, "Request cancelled"
	default:
		return dto.ErrCodeInternal, err.Error()
	}
}

func requestID(c *gin.Context) string {
	if id := logger.RequestID(c.Request.Context()); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

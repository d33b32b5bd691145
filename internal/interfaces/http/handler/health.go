package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/unify/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger checks a backing service
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness
type HealthHandler struct {
	BaseHandler
	db      Pinger
	breaker func() string
	timeout time.Duration
}

// NewHealthHandler creates a health handler. breaker, when set, reports the
// schema advisor breaker state.
func NewHealthHandler(db Pinger, breaker func() string) *HealthHandler {
	return &HealthHandler{db: db, breaker: breaker, timeout: 2 * time.Second}
}

// Live always answers 200
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready answers 503 while the database is unreachable
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	body := gin.H{"status": "ok", "database": "ok"}
	if h.breaker != nil {
		body["advisor_breaker"] = h.breaker()
	}
	if err := h.db.Ping(ctx); err != nil {
		body["status"] = "unavailable"
		body["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    body,
			Error:   &dto.ErrorInfo{Code: dto.ErrCodeServiceUnavailable, Message: "database unreachable", RequestID: requestID(c)},
		})
		return
	}
	h.Success(c, body)
}

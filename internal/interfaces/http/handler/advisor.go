package handler

import (
	"context"

	"github.com/erp/unify/internal/infrastructure/advisor"
	"github.com/erp/unify/internal/interfaces/http/dto"
	"github.com/erp/unify/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// SchemaAdvisor suggests column mappings. A nil suggestion means none is available.
type SchemaAdvisor interface {
	Enabled() bool
	SuggestSchemaMapping(ctx context.Context, req advisor.Request) *advisor.Suggestion
}

var _ SchemaAdvisor = (*advisor.Client)(nil)

// AdvisorHandler serves schema mapping suggestions
type AdvisorHandler struct {
	BaseHandler
	advisor SchemaAdvisor
}

// NewAdvisorHandler creates an advisor handler
func NewAdvisorHandler(a SchemaAdvisor) *AdvisorHandler {
	return &AdvisorHandler{advisor: a}
}

// Suggest godoc
// POST /schema-suggestions
// Answers 503 when the advisor is not configured or returns nothing.
func (h *AdvisorHandler) Suggest(c *gin.Context) {
	var req advisor.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if !h.advisor.Enabled() {
		h.ErrorWithCode(c, dto.ErrCodeServiceUnavailable, "schema advisor is not configured")
		return
	}
	s := h.advisor.SuggestSchemaMapping(c.Request.Context(), req)
	if s == nil {
		h.ErrorWithCode(c, dto.ErrCodeServiceUnavailable, "no schema mapping suggestion available")
		return
	}
	h.Success(c, s)
}

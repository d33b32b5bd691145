package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/erp/unify/internal/application/pipeline"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/shared"
	"github.com/erp/unify/internal/interfaces/http/dto"
	"github.com/erp/unify/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// PipelineService is the part of the pipeline runner the API drives
type PipelineService interface {
	RunFull(ctx context.Context, src pipeline.Sources) (*pipeline.RunReport, error)
	RegisterFile(ctx context.Context, path string, guess commerce.EntityType) (*commerce.SourceFile, error)
	RunFile(ctx context.Context, fileID int64, override commerce.EntityType) (*pipeline.FileResult, error)
	ListFiles(ctx context.Context, filter commerce.FileFilter) ([]commerce.SourceFile, error)
	File(ctx context.Context, id int64) (*commerce.SourceFile, error)
}

var _ PipelineService = (*pipeline.Runner)(nil)

// PipelineHandler serves full runs and the source file registry
type PipelineHandler struct {
	BaseHandler
	svc     PipelineService
	sources pipeline.Sources
}

// NewPipelineHandler creates a handler. sources are the configured raw
// files a run request falls back to.
func NewPipelineHandler(svc PipelineService, sources pipeline.Sources) *PipelineHandler {
	return &PipelineHandler{svc: svc, sources: sources}
}

// Run godoc
// POST /runs
// Runs the whole pipeline. The body is optional.
func (h *PipelineHandler) Run(c *gin.Context) {
	var req dto.RunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}
	report, err := h.svc.RunFull(c.Request.Context(), req.Apply(h.sources))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ListFiles godoc
// GET /files
func (h *PipelineHandler) ListFiles(c *gin.Context) {
	var q dto.ListFilesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	files, err := h.svc.ListFiles(c.Request.Context(), q.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.List(c, dto.ToSourceFileResponses(files), int64(len(files)))
}

// RegisterFile godoc
// POST /files
func (h *PipelineHandler) RegisterFile(c *gin.Context) {
	var req dto.RegisterFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	f, err := h.svc.RegisterFile(c.Request.Context(), req.Path, commerce.EntityType(req.EntityType))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToSourceFileResponse(f))
}

// GetFile godoc
// GET /files/:id
func (h *PipelineHandler) GetFile(c *gin.Context) {
	id, err := fileID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	f, err := h.svc.File(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToSourceFileResponse(f))
}

// ProcessFile godoc
// POST /files/:id/process
// A failed run still answers with the recorded result in data.
func (h *PipelineHandler) ProcessFile(c *gin.Context) {
	id, err := fileID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req dto.ProcessFileRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}
	res, err := h.svc.RunFile(c.Request.Context(), id, commerce.EntityType(req.EntityType))
	if err != nil {
		if res != nil {
			h.HandleErrorWithData(c, err, res)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

func fileID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("file id %q: %w", c.Param("id"), shared.ErrInvalidInput)
	}
	return id, nil
}

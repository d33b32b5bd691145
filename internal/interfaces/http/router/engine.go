package router

import (
	"fmt"

	"github.com/erp/unify/internal/infrastructure/logger"
	"github.com/erp/unify/internal/interfaces/http/handler"
	"github.com/erp/unify/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// EngineConfig holds the middleware settings of the engine
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	Tracing        bool
	MaxBodySize    int64
	TrustedProxies []string
	// Metrics, when set, records every request
	Metrics *middleware.HTTPMetrics
	// Gatherer, when set, is served on /metrics
	Gatherer prometheus.Gatherer
}

// Handlers are the endpoints mounted by NewEngine. A nil Advisor leaves
// the suggestion route out.
type Handlers struct {
	Pipeline *handler.PipelineHandler
	Advisor  *handler.AdvisorHandler
	Health   *handler.HealthHandler
}

// NewEngine builds the gin engine with its middleware chain and routes
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	engine.Use(
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing}),
		logger.GinMiddleware(log),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
	)
	if cfg.Metrics != nil {
		engine.Use(cfg.Metrics.Middleware())
	}

	engine.GET("/health/live", h.Health.Live)
	engine.GET("/health/ready", h.Health.Ready)
	if cfg.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	groups := []RouteRegistrar{PipelineRoutes(h.Pipeline).Use(middleware.BodyLimit(cfg.MaxBodySize))}
	if h.Advisor != nil {
		groups = append(groups, AdvisorRoutes(h.Advisor).Use(middleware.BodyLimit(cfg.MaxBodySize)))
	}
	Mount(engine, DefaultAPIVersion, groups...)
	return engine, nil
}

// PipelineRoutes mounts full runs and the file registry
func PipelineRoutes(h *handler.PipelineHandler) *DomainGroup {
	g := NewDomainGroup("pipeline", "")
	g.POST("/runs", h.Run)

	files := g.Group("files", "/files")
	files.GET("", h.ListFiles)
	files.POST("", h.RegisterFile)
	files.GET("/:id", h.GetFile)
	files.POST("/:id/process", h.ProcessFile)
	return g
}

// AdvisorRoutes mounts schema mapping suggestions
func AdvisorRoutes(h *handler.AdvisorHandler) *DomainGroup {
	return NewDomainGroup("advisor", "/schema-suggestions").
		POST("", h.Suggest)
}

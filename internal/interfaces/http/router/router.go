// Package router assembles the gin engine and the versioned API routes.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultAPIVersion is the path segment after /api
const DefaultAPIVersion = "v1"

// RouteRegistrar mounts its routes on a router group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount registers every registrar under /api/<version>. An empty version
// mounts under DefaultAPIVersion.
func Mount(engine *gin.Engine, version string, registrars ...RouteRegistrar) *gin.RouterGroup {
	if version == "" {
		version = DefaultAPIVersion
	}
	api := engine.Group("/api/" + version)
	for _, r := range registrars {
		r.RegisterRoutes(api)
	}
	return api
}

// DomainGroup is a named set of routes sharing a path prefix and middleware.
// Routes are recorded and only attached to gin by RegisterRoutes.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	mounts     []func(*gin.RouterGroup)
}

// NewDomainGroup creates a route group mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Name returns the group name
func (g *DomainGroup) Name() string { return g.name }

// Prefix returns the path prefix relative to the parent group
func (g *DomainGroup) Prefix() string { return g.prefix }

// Use adds middleware applied to the group and its subgroups
func (g *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, mw...)
	return g
}

func (g *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.route(http.MethodGet, path, handlers)
}

func (g *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.route(http.MethodPost, path, handlers)
}

func (g *DomainGroup) route(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	g.mounts = append(g.mounts, func(rg *gin.RouterGroup) {
		rg.Handle(method, path, handlers...)
	})
	return g
}

// Group returns a subgroup nested under this one
func (g *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	g.mounts = append(g.mounts, sub.RegisterRoutes)
	return sub
}

// RegisterRoutes implements RouteRegistrar
func (g *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix, g.middleware...)
	for _, mount := range g.mounts {
		mount(group)
	}
}

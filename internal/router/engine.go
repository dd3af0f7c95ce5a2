package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/lessonhub/internal/container"
	"github.com/oksasatya/lessonhub/internal/interface/middleware"
)

// NewEngine builds the gin engine with the global middleware chain. Proxy
// trust is set here so every c.ClientIP() downstream honours it.
func NewEngine(c *container.Container) (*gin.Engine, error) {
	cfg := c.Config
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxyList()); err != nil {
		return nil, err
	}
	if cfg.BehindCloudflare {
		r.TrustedPlatform = gin.PlatformCloudflare
	}
	r.MaxMultipartMemory = 8 << 20

	r.Use(middleware.Recovery(c.Logger))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	if cfg.HTTPLogEnabled {
		r.Use(middleware.RequestLogger(c.Logger))
	}
	r.Use(middleware.ErrorHandler(c.Logger, cfg.IsDevelopment()))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	return r, nil
}

// New returns a fully routed engine.
func New(c *container.Container) (*gin.Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	engine, err := NewEngine(c)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry(engine)
	InitModules(reg, c)
	reg.RegisterAll()
	return engine, nil
}

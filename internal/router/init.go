package router

import (
	"github.com/oksasatya/lessonhub/internal/application"
	"github.com/oksasatya/lessonhub/internal/container"
	handlers "github.com/oksasatya/lessonhub/internal/interface/http"
	"github.com/oksasatya/lessonhub/internal/interface/middleware"
	"github.com/oksasatya/lessonhub/internal/router/modules"
	tpl "github.com/oksasatya/lessonhub/pkg/mailer/templates"
)

// InitModules builds services and handlers from the container and registers
// every module with the registry. Call once at startup.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config
	guard := middleware.NewGuard(c.Users, c.JWT, c.Cookies, c.Logger)

	users := application.NewService(c.Users, c.Hasher, c.JWT, c.Logger)
	materials := application.NewMaterialService(c.Materials, c.Storage, c.Logger)
	lessons := application.NewLessonPlanService(c.Materials, c.Generator, cfg.LLMMaxExcerpt, c.Logger)

	notifier := handlers.NewNotifier(c.Publisher, tpl.Branding{
		AppName:     cfg.AppName,
		CompanyName: cfg.CompanyName,
		SupportURL:  cfg.SupportURL,
	}, c.Logger)

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(c.DB)))
	r.Add(modules.NewAuthModule(
		handlers.NewAuthHandler(users, c.Cookies, notifier, c.Logger),
		guard,
		middleware.RateLimit(c.Limiter, middleware.KeyByIP("auth"), c.Logger),
	))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(users, notifier, c.Logger), guard))
	r.Add(modules.NewMaterialModule(
		handlers.NewMaterialHandler(materials, lessons, cfg.MaxUploadBytes, c.Logger),
		guard,
		c.Materials,
	))
}

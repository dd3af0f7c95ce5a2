package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
	handlers "github.com/oksasatya/lessonhub/internal/interface/http"
	"github.com/oksasatya/lessonhub/internal/interface/middleware"
)

// MaterialModule routes:
// Public (identity optional): GET /api/materials/:id, GET /api/materials/:id/download
// Members: POST /api/materials, POST /api/materials/:id/lesson-plan
// Owner only: PUT /api/materials/:id, DELETE /api/materials/:id
type MaterialModule struct {
	Handler *handlers.MaterialHandler
	Guard   *middleware.Guard
	Owners  middleware.OwnerLookup
}

func NewMaterialModule(h *handlers.MaterialHandler, guard *middleware.Guard, owners middleware.OwnerLookup) *MaterialModule {
	return &MaterialModule{Handler: h, Guard: guard, Owners: owners}
}

func (m *MaterialModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/materials")

	optional := m.Guard.AuthenticateOptional()
	g.GET("/:id", optional, m.Handler.Get)
	g.GET("/:id/download", optional, m.Handler.Download)

	auth := g.Group("")
	auth.Use(m.Guard.Authenticate(), m.Guard.RequireRole(entity.RoleMember))
	{
		auth.POST("", m.Handler.Create)
		auth.POST("/:id/lesson-plan", m.Handler.DraftLessonPlan)

		owner := m.Guard.RequireOwnership(m.Owners, "id")
		auth.PUT("/:id", owner, m.Handler.Update)
		auth.DELETE("/:id", owner, m.Handler.Delete)
	}
}

package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/lessonhub/internal/interface/http"
	"github.com/oksasatya/lessonhub/internal/interface/middleware"
)

// UserModule routes:
// Protected: GET /api/profile, PUT /api/profile, PUT /api/profile/password
// Public: GET /api/users/:id
type UserModule struct {
	Handler *handlers.UserHandler
	Guard   *middleware.Guard
}

func NewUserModule(h *handlers.UserHandler, guard *middleware.Guard) *UserModule {
	return &UserModule{Handler: h, Guard: guard}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.GET("/users/:id", m.Guard.AuthenticateOptional(), m.Handler.PublicProfile)

	auth := rg.Group("/profile")
	auth.Use(m.Guard.Authenticate())
	{
		auth.GET("", m.Handler.GetProfile)
		auth.PUT("", m.Handler.UpdateProfile)
		auth.PUT("/password", m.Handler.ChangePassword)
	}
}

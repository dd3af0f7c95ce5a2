package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/lessonhub/internal/interface/http"
	"github.com/oksasatya/lessonhub/internal/interface/middleware"
)

// AuthModule routes:
// Public, rate limited per IP (one shared bucket): POST /api/auth/register, POST /api/auth/login
// Public: POST /api/auth/logout
// Protected: GET /api/auth/verify
type AuthModule struct {
	Handler *handlers.AuthHandler
	Guard   *middleware.Guard
	Limit   gin.HandlerFunc
}

func NewAuthModule(h *handlers.AuthHandler, guard *middleware.Guard, limit gin.HandlerFunc) *AuthModule {
	return &AuthModule{Handler: h, Guard: guard, Limit: limit}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/register", m.Limit, m.Handler.Register)
	auth.POST("/login", m.Limit, m.Handler.Login)
	auth.POST("/logout", m.Handler.Logout)
	auth.GET("/verify", m.Guard.Authenticate(), m.Handler.Verify)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/internal/application"
	"github.com/oksasatya/lessonhub/internal/session"
	"github.com/oksasatya/lessonhub/pkg/response"
)

type UserHandler struct {
	Svc      *application.Service
	Notifier *Notifier
	Logger   *logrus.Logger
}

func NewUserHandler(svc *application.Service, notifier *Notifier, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Notifier: notifier, Logger: logger}
}

type updateProfileRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=120"`
	Institution *string `json:"institution" binding:"omitempty,max=200"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,pwd"`
}

// GetProfile GET /api/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	id := session.MustFromContext(c)
	u, err := h.Svc.Profile(c.Request.Context(), id.ID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "profile", nil)
}

// UpdateProfile PUT /api/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	id := session.MustFromContext(c)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), id.ID, application.UpdateProfileInput{
		Name:        req.Name,
		Institution: req.Institution,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "profile updated", nil)
}

// ChangePassword PUT /api/profile/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	id := session.MustFromContext(c)
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	u, err := h.Svc.ChangePassword(c.Request.Context(), id.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.Notifier.PasswordChanged(c, u)
	response.Success[any](c, http.StatusOK, nil, "password changed", nil)
}

// PublicProfile GET /api/users/:id
// The email is only included when viewers look at themselves.
func (h *UserHandler) PublicProfile(c *gin.Context) {
	u, err := h.Svc.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	out := publicUserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Institution:   u.Institution,
		MaterialCount: u.MaterialCount,
	}
	if viewer, ok := session.FromContext(c); ok && viewer.ID == u.ID {
		out.Email = u.Email
	}
	response.Success(c, http.StatusOK, out, "user", nil)
}

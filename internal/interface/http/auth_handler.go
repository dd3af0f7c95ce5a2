package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/internal/application"
	"github.com/oksasatya/lessonhub/internal/session"
	"github.com/oksasatya/lessonhub/pkg/apperror"
	"github.com/oksasatya/lessonhub/pkg/helpers"
	"github.com/oksasatya/lessonhub/pkg/response"
	"github.com/oksasatya/lessonhub/pkg/validation"
)

type AuthHandler struct {
	Svc      *application.Service
	Cookies  *helpers.SessionCookie
	Notifier *Notifier
	Logger   *logrus.Logger
}

func NewAuthHandler(svc *application.Service, cookies *helpers.SessionCookie, notifier *Notifier, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Cookies: cookies, Notifier: notifier, Logger: logger}
}

type registerRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required,pwd"`
	Institution string `json:"institution" binding:"max=200"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func bindError(err error) error {
	return apperror.Validation("invalid payload", validation.ToDetails(err))
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	u, sess, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Institution: req.Institution,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.Cookies.Set(c, sess.Token)
	h.Notifier.Welcome(c, u)
	response.Success(c, http.StatusCreated, toUserResponse(u), "registration successful", nil)
}

// Login POST /api/auth/login
// Any credential failure, including a malformed payload, answers the same 401.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, application.ErrInvalidCredentials)
		return
	}
	u, sess, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.Cookies.Set(c, sess.Token)
	response.Success(c, http.StatusOK, toUserResponse(u), "login successful", nil)
}

// Logout POST /api/auth/logout
// Always succeeds, with or without a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "logged out", nil)
}

// Verify GET /api/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	id := session.MustFromContext(c)
	response.Success(c, http.StatusOK, identityResponse(id), "session valid", nil)
}

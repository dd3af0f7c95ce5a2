package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/internal/application"
	"github.com/oksasatya/lessonhub/internal/domain/entity"
	"github.com/oksasatya/lessonhub/internal/session"
	"github.com/oksasatya/lessonhub/pkg/apperror"
	"github.com/oksasatya/lessonhub/pkg/response"
)

// multipartOverhead is the room left for form fields next to the file.
const multipartOverhead = 1 << 20

type MaterialHandler struct {
	Svc            *application.MaterialService
	Lessons        *application.LessonPlanService
	MaxUploadBytes int64
	Logger         *logrus.Logger
}

func NewMaterialHandler(svc *application.MaterialService, lessons *application.LessonPlanService, maxUpload int64, logger *logrus.Logger) *MaterialHandler {
	return &MaterialHandler{Svc: svc, Lessons: lessons, MaxUploadBytes: maxUpload, Logger: logger}
}

type createMaterialRequest struct {
	Title       string `form:"title" binding:"required,max=200"`
	Description string `form:"description" binding:"max=2000"`
	Subject     string `form:"subject" binding:"required,max=100"`
	Grade       string `form:"grade" binding:"max=50"`
	Difficulty  string `form:"difficulty" binding:"omitempty,difficulty"`
}

type updateMaterialRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Subject     *string `json:"subject" binding:"omitempty,min=1,max=100"`
	Grade       *string `json:"grade" binding:"omitempty,max=50"`
	Difficulty  *string `json:"difficulty" binding:"omitempty,difficulty"`
}

func viewerID(c *gin.Context) string {
	if id, ok := session.FromContext(c); ok {
		return id.ID
	}
	return ""
}

// Create POST /api/materials (multipart: file + metadata)
func (h *MaterialHandler) Create(c *gin.Context) {
	id := session.MustFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+multipartOverhead)

	var req createMaterialRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, h.fileTooLarge())
			return
		}
		response.Fail(c, bindError(err))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, apperror.Validation("invalid payload", map[string]string{"file": "is required"}))
		return
	}
	if fh.Size > h.MaxUploadBytes {
		response.Fail(c, h.fileTooLarge())
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Fail(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	m, err := h.Svc.Create(c.Request.Context(), application.CreateMaterialInput{
		OwnerID:     id.ID,
		Title:       req.Title,
		Description: req.Description,
		Subject:     req.Subject,
		Grade:       req.Grade,
		Difficulty:  entity.Difficulty(req.Difficulty),
		FileName:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		File:        f,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toMaterialResponse(m, id.ID), "material created", nil)
}

func (h *MaterialHandler) fileTooLarge() error {
	return apperror.Validation("invalid payload", map[string]string{
		"file": fmt.Sprintf("must be at most %d bytes", h.MaxUploadBytes),
	})
}

// Get GET /api/materials/:id
func (h *MaterialHandler) Get(c *gin.Context) {
	m, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toMaterialResponse(m, viewerID(c)), "material", nil)
}

// Update PUT /api/materials/:id (owner only)
func (h *MaterialHandler) Update(c *gin.Context) {
	var req updateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	in := application.UpdateMaterialInput{
		Title:       req.Title,
		Description: req.Description,
		Subject:     req.Subject,
		Grade:       req.Grade,
	}
	if req.Difficulty != nil {
		d := entity.Difficulty(*req.Difficulty)
		in.Difficulty = &d
	}
	m, err := h.Svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toMaterialResponse(m, viewerID(c)), "material updated", nil)
}

// Delete DELETE /api/materials/:id (owner only)
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "material deleted", nil)
}

// Download GET /api/materials/:id/download
func (h *MaterialHandler) Download(c *gin.Context) {
	url, err := h.Svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url}, "download", nil)
}

// DraftLessonPlan POST /api/materials/:id/lesson-plan
func (h *MaterialHandler) DraftLessonPlan(c *gin.Context) {
	plan, err := h.Lessons.Draft(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, plan, "lesson plan drafted", nil)
}

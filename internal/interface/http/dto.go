package handlers

import (
	"time"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
	"github.com/oksasatya/lessonhub/internal/session"
)

// userResponse never carries the password hash.
type userResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Institution   string    `json:"institution"`
	MaterialCount int       `json:"material_count"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Institution:   u.Institution,
		MaterialCount: u.MaterialCount,
		Role:          u.Role.String(),
		CreatedAt:     u.CreatedAt,
	}
}

func identityResponse(id session.Identity) userResponse {
	return userResponse{
		ID:            id.ID,
		Email:         id.Email,
		Name:          id.Name,
		Institution:   id.Institution,
		MaterialCount: id.MaterialCount,
		Role:          id.Role.String(),
	}
}

type publicUserResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Institution   string `json:"institution"`
	MaterialCount int    `json:"material_count"`
	Email         string `json:"email,omitempty"`
}

type materialResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	Grade       string    `json:"grade"`
	Difficulty  string    `json:"difficulty"`
	FileURL     string    `json:"file_url"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	HasText     bool      `json:"has_text"`
	Downloads   int       `json:"downloads"`
	IsOwner     bool      `json:"is_owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toMaterialResponse(m *entity.Material, viewerID string) materialResponse {
	return materialResponse{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Title:       m.Title,
		Description: m.Description,
		Subject:     m.Subject,
		Grade:       m.Grade,
		Difficulty:  string(m.Difficulty),
		FileURL:     m.FileURL,
		FileName:    m.FileName,
		ContentType: m.ContentType,
		SizeBytes:   m.SizeBytes,
		HasText:     m.ExtractedText != "",
		Downloads:   m.Downloads,
		IsOwner:     viewerID != "" && viewerID == m.OwnerID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

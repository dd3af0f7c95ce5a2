package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
	"github.com/oksasatya/lessonhub/internal/domain/gateway"
	repo "github.com/oksasatya/lessonhub/internal/domain/repository"
	"github.com/oksasatya/lessonhub/pkg/apperror"
)

// MaxExtractedText is how much of a text upload is kept for lesson drafting.
const MaxExtractedText = 64 << 10

var (
	ErrMaterialNotFound   = apperror.New(apperror.KindNotFound, "material not found")
	ErrStorageUnavailable = apperror.New(apperror.KindUpstream, "file storage temporarily unavailable")
)

type MaterialService struct {
	Repo    repo.MaterialRepository
	Storage gateway.ObjectStorage
	Logger  *logrus.Logger
}

func NewMaterialService(repo repo.MaterialRepository, storage gateway.ObjectStorage, logger *logrus.Logger) *MaterialService {
	return &MaterialService{Repo: repo, Storage: storage, Logger: logger}
}

type CreateMaterialInput struct {
	OwnerID     string
	Title       string
	Description string
	Subject     string
	Grade       string
	Difficulty  entity.Difficulty
	FileName    string
	ContentType string
	Size        int64
	File        io.Reader
}

func (s *MaterialService) Create(ctx context.Context, in CreateMaterialInput) (*entity.Material, error) {
	if s.Storage == nil {
		return nil, ErrStorageUnavailable
	}
	if in.Difficulty == "" {
		in.Difficulty = entity.DifficultyBeginner
	}

	body := in.File
	var extracted string
	if isText(in.ContentType) {
		head, err := io.ReadAll(io.LimitReader(in.File, MaxExtractedText))
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		// drops a rune cut in half at the limit as well as invalid bytes
		extracted = strings.ToValidUTF8(string(head), "")
		body = io.MultiReader(bytes.NewReader(head), in.File)
	}

	objectPath := fmt.Sprintf("materials/%s/%s%s", in.OwnerID, uuid.NewString(), strings.ToLower(filepath.Ext(in.FileName)))
	url, err := s.Storage.Upload(ctx, objectPath, in.ContentType, body)
	if err != nil {
		s.Logger.WithError(err).WithField("object", objectPath).Error("upload failed")
		return nil, apperror.Wrap(apperror.KindUpstream, ErrStorageUnavailable.Message, err)
	}

	m := &entity.Material{
		OwnerID:       in.OwnerID,
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Subject:       strings.TrimSpace(in.Subject),
		Grade:         strings.TrimSpace(in.Grade),
		Difficulty:    in.Difficulty,
		FileURL:       url,
		FileName:      filepath.Base(in.FileName),
		ContentType:   in.ContentType,
		SizeBytes:     in.Size,
		ExtractedText: extracted,
	}
	if err := s.Repo.Create(ctx, m); err != nil {
		// No delete on ObjectStorage yet; the path is logged for manual cleanup.
		s.Logger.WithError(err).WithFields(logrus.Fields{"object": objectPath, "owner_id": in.OwnerID}).
			Error("material insert failed, uploaded object orphaned")
		return nil, fmt.Errorf("create material: %w", err)
	}
	s.Logger.WithFields(logrus.Fields{"material_id": m.ID, "owner_id": m.OwnerID}).Info("material created")
	return m, nil
}

func (s *MaterialService) Get(ctx context.Context, id string) (*entity.Material, error) {
	m, err := s.Repo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMaterialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find material: %w", err)
	}
	return m, nil
}

type UpdateMaterialInput struct {
	Title       *string
	Description *string
	Subject     *string
	Grade       *string
	Difficulty  *entity.Difficulty
}

func (s *MaterialService) Update(ctx context.Context, id string, in UpdateMaterialInput) (*entity.Material, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		m.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		m.Description = strings.TrimSpace(*in.Description)
	}
	if in.Subject != nil {
		m.Subject = strings.TrimSpace(*in.Subject)
	}
	if in.Grade != nil {
		m.Grade = strings.TrimSpace(*in.Grade)
	}
	if in.Difficulty != nil {
		m.Difficulty = *in.Difficulty
	}
	if err := s.Repo.Update(ctx, m); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, fmt.Errorf("update material: %w", err)
	}
	return m, nil
}

func (s *MaterialService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrMaterialNotFound
		}
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}

// Download counts the download and returns the file URL.
func (s *MaterialService) Download(ctx context.Context, id string) (string, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.Repo.IncrementDownloads(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrMaterialNotFound
		}
		return "", fmt.Errorf("count download: %w", err)
	}
	return m.FileURL, nil
}

func isText(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mt, "text/")
}

package repository

import (
	"context"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
)

// MaterialRepository persists materials. Create and Delete keep the owner's
// material_count in step within the same statement.
type MaterialRepository interface {
	Create(ctx context.Context, m *entity.Material) error
	FindByID(ctx context.Context, id string) (*entity.Material, error)
	OwnerOf(ctx context.Context, id string) (string, error)
	Update(ctx context.Context, m *entity.Material) error
	Delete(ctx context.Context, id string) error
	IncrementDownloads(ctx context.Context, id string) error
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
	"github.com/oksasatya/lessonhub/internal/domain/repository"
)

const materialColumns = `id, owner_id, title, description, subject, grade, difficulty, file_url, file_name,
	content_type, size_bytes, extracted_text, downloads, created_at, updated_at`

type MaterialRepository struct {
	db Querier
}

func NewMaterialRepository(db Querier) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// Create inserts the material and bumps the owner's material_count in one statement.
func (r *MaterialRepository) Create(ctx context.Context, m *entity.Material) error {
	row := r.db.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO materials (owner_id, title, description, subject, grade, difficulty,
				file_url, file_name, content_type, size_bytes, extracted_text)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, downloads, created_at, updated_at
		), bumped AS (
			UPDATE users SET material_count = material_count + 1 WHERE id = $1
		)
		SELECT id, downloads, created_at, updated_at FROM inserted
	`, m.OwnerID, m.Title, m.Description, m.Subject, m.Grade, string(m.Difficulty),
		m.FileURL, m.FileName, m.ContentType, m.SizeBytes, m.ExtractedText)

	if err := row.Scan(&m.ID, &m.Downloads, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*entity.Material, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	m := &entity.Material{}
	var difficulty string
	err := r.db.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id).Scan(
		&m.ID, &m.OwnerID, &m.Title, &m.Description, &m.Subject, &m.Grade, &difficulty,
		&m.FileURL, &m.FileName, &m.ContentType, &m.SizeBytes, &m.ExtractedText,
		&m.Downloads, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	m.Difficulty = entity.Difficulty(difficulty)
	return m, nil
}

func (r *MaterialRepository) OwnerOf(ctx context.Context, id string) (string, error) {
	if !validID(id) {
		return "", repository.ErrNotFound
	}
	var owner string
	if err := r.db.QueryRow(ctx, `SELECT owner_id FROM materials WHERE id = $1`, id).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return owner, nil
}

// Update writes the editable metadata.
func (r *MaterialRepository) Update(ctx context.Context, m *entity.Material) error {
	if !validID(m.ID) {
		return repository.ErrNotFound
	}
	err := r.db.QueryRow(ctx, `
		UPDATE materials
		SET title = $1, description = $2, subject = $3, grade = $4, difficulty = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`, m.Title, m.Description, m.Subject, m.Grade, string(m.Difficulty), m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the material and decrements the owner's material_count.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	res, err := r.db.Exec(ctx, `
		WITH removed AS (
			DELETE FROM materials WHERE id = $1 RETURNING owner_id
		)
		UPDATE users u SET material_count = GREATEST(u.material_count - 1, 0)
		FROM removed WHERE u.id = removed.owner_id
	`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MaterialRepository) IncrementDownloads(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	res, err := r.db.Exec(ctx, `UPDATE materials SET downloads = downloads + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.MaterialRepository = (*MaterialRepository)(nil)

package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/internal/domain/entity"
	"github.com/oksasatya/lessonhub/internal/domain/gateway"
	repo "github.com/oksasatya/lessonhub/internal/domain/repository"
	"github.com/oksasatya/lessonhub/pkg/apperror"
)

const lessonPlanSchema = `{
  "objective": "string, one sentence",
  "duration_minutes": "integer",
  "steps": ["string"],
  "activities": [{"title": "string", "kind": "exercise|discussion|quiz|project", "instructions": "string"}]
}`

var (
	ErrNoExtractedText       = apperror.New(apperror.KindValidation, "material has no text to draft a lesson plan from")
	ErrLessonPlanUnavailable = apperror.New(apperror.KindUpstream, "lesson plan service temporarily unavailable")
)

type LessonPlanService struct {
	Materials  repo.MaterialRepository
	Generator  gateway.TextGenerator
	MaxExcerpt int
	Logger     *logrus.Logger
}

func NewLessonPlanService(materials repo.MaterialRepository, gen gateway.TextGenerator, maxExcerpt int, logger *logrus.Logger) *LessonPlanService {
	return &LessonPlanService{Materials: materials, Generator: gen, MaxExcerpt: maxExcerpt, Logger: logger}
}

// Draft asks the text generator for a lesson plan built from the material's
// extracted text. Every generator failure, including an answer that does not
// fit the schema, is reported as ErrLessonPlanUnavailable. Nothing is retried.
func (s *LessonPlanService) Draft(ctx context.Context, materialID string) (*entity.LessonPlan, error) {
	m, err := s.Materials.FindByID(ctx, materialID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMaterialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find material: %w", err)
	}
	text := strings.TrimSpace(m.ExtractedText)
	if text == "" {
		return nil, ErrNoExtractedText
	}
	if s.Generator == nil {
		return nil, ErrLessonPlanUnavailable
	}

	raw, err := s.Generator.Generate(ctx, gateway.GenerationRequest{
		Excerpt:    truncateRunes(text, s.MaxExcerpt),
		Title:      m.Title,
		Subject:    m.Subject,
		Grade:      m.Grade,
		Difficulty: string(m.Difficulty),
		Schema:     lessonPlanSchema,
	})
	if err != nil {
		return nil, s.unavailable(m.ID, err)
	}
	plan, err := parseLessonPlan(raw)
	if err != nil {
		return nil, s.unavailable(m.ID, err)
	}
	return plan, nil
}

func (s *LessonPlanService) unavailable(materialID string, err error) error {
	s.Logger.WithError(err).WithField("material_id", materialID).Warn("lesson plan generation failed")
	return apperror.Wrap(apperror.KindUpstream, ErrLessonPlanUnavailable.Message, err)
}

func parseLessonPlan(raw []byte) (*entity.LessonPlan, error) {
	raw = bytes.TrimSpace(raw)
	raw = bytes.TrimPrefix(raw, []byte("```json"))
	raw = bytes.TrimPrefix(raw, []byte("```"))
	raw = bytes.TrimSuffix(raw, []byte("```"))

	var plan entity.LessonPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstreamResponse, err)
	}
	plan.Objective = strings.TrimSpace(plan.Objective)
	if plan.Objective == "" {
		return nil, fmt.Errorf("%w: missing objective", gateway.ErrUpstreamResponse)
	}
	if plan.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: negative duration", gateway.ErrUpstreamResponse)
	}

	steps := plan.Steps[:0]
	for _, st := range plan.Steps {
		if st = strings.TrimSpace(st); st != "" {
			steps = append(steps, st)
		}
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", gateway.ErrUpstreamResponse)
	}
	plan.Steps = steps

	if len(plan.Activities) == 0 {
		return nil, fmt.Errorf("%w: no activities", gateway.ErrUpstreamResponse)
	}
	for i, a := range plan.Activities {
		if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.Instructions) == "" {
			return nil, fmt.Errorf("%w: activity %d incomplete", gateway.ErrUpstreamResponse, i)
		}
	}
	return &plan, nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

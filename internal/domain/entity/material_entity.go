package entity

import "time"

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Material is an uploaded teaching resource. OwnerID is the only field the
// ownership guard looks at.
type Material struct {
	ID            string
	OwnerID       string
	Title         string
	Description   string
	Subject       string
	Grade         string
	Difficulty    Difficulty
	FileURL       string
	FileName      string
	ContentType   string
	SizeBytes     int64
	ExtractedText string
	Downloads     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

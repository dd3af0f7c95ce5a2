package entity

// LessonPlan is the structured draft returned by the text-generation service.
type LessonPlan struct {
	Objective       string     `json:"objective"`
	DurationMinutes int        `json:"duration_minutes"`
	Steps           []string   `json:"steps"`
	Activities      []Activity `json:"activities"`
}

type Activity struct {
	Title        string `json:"title"`
	Kind         string `json:"kind"`
	Instructions string `json:"instructions"`
}

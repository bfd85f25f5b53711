package exercises

import "time"

// Muscle vocabulary used by primary/secondary muscle tags.
var MuscleGroups = []string{
	"Chest", "Back", "Legs", "Arms", "Shoulders", "Core", "Cardio",
}

// bodyPartMuscles maps client-side body part filters to muscle tags.
var bodyPartMuscles = map[string][]string{
	"upper":  {"Chest", "Back", "Arms", "Shoulders"},
	"lower":  {"Legs"},
	"core":   {"Core"},
	"cardio": {"Cardio"},
}

type Exercise struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	PrimaryMuscles   []string  `json:"primaryMuscles"`
	SecondaryMuscles []string  `json:"secondaryMuscles,omitempty"`
	Equipment        []string  `json:"equipment,omitempty"`
	Duration         string    `json:"duration"`
	Difficulty       string    `json:"difficulty,omitempty"`
	Instructions     string    `json:"instructions,omitempty"`
	Sets             int       `json:"sets"`
	Reps             string    `json:"reps"`
	Rest             string    `json:"rest,omitempty"`
	Category         string    `json:"category,omitempty"`
	MediaURL         string    `json:"mediaUrl,omitempty"`
	UsageCount       int       `json:"usageCount"`
	CreatedAt        time.Time `json:"createdAt"`
}

type ListParams struct {
	Category string
	BodyPart string
	Search   string
	SortBy   string
	Page     int
	Size     int
}

package users

type Profile struct {
	UserID         string  `json:"userId"`
	Username       string  `json:"username,omitempty"`
	AvatarURL      string  `json:"avatarUrl,omitempty"`
	WeightKg       float64 `json:"weightKg"`
	HeightCm       float64 `json:"heightCm"`
	Goal           string  `json:"goal,omitempty"`
	TargetWorkouts int     `json:"targetWorkouts"`
	ActivityLevel  string  `json:"activityLevel,omitempty"`
}

package diet

import "time"

type Entry struct {
	ID            int       `json:"id"`
	UserID        string    `json:"userId"`
	EntryDate     time.Time `json:"date"`
	TotalCalories int       `json:"totalCalories"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

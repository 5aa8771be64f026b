package models

import "time"

// GPACategory is a named grading dimension owned by a single user.
type GPACategory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"size:64;not null;index" json:"user_id"`
	CategoryName string    `gorm:"size:128;not null" json:"category_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName pins the table shared with the rest of the onboarding flow.
func (GPACategory) TableName() string {
	return "gpa_categories"
}

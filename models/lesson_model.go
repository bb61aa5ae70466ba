package models

import (
	"time"

	"github.com/google/uuid"
)

type Lesson struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	StudentID uuid.UUID  `gorm:"type:uuid;not null;index" json:"student_id"`
	Date      time.Time  `gorm:"not null;index" json:"date"`
	Amount    float64    `gorm:"type:numeric(10,2);not null" json:"amount"`
	Comment   string     `gorm:"type:text" json:"comment,omitempty"`
	IsPaid    bool       `gorm:"default:false" json:"is_paid"`
	PackID    *uuid.UUID `gorm:"type:uuid;index" json:"pack_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LessonWithStudent is a lesson joined with its owning student.
type LessonWithStudent struct {
	Lesson
	Student Student `json:"student"`
}

type LessonCreate struct {
	StudentID string   `json:"student_id" validate:"required"`
	Date      string   `json:"date" validate:"required"`
	Amount    *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Comment   string   `json:"comment"`
	IsPaid    bool     `json:"is_paid"`
	PackID    string   `json:"pack_id"`
}

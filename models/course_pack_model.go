package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CoursePack struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	StudentID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"student_id"`
	TotalLessons     int        `gorm:"not null" json:"total_lessons"`
	RemainingLessons int        `gorm:"not null" json:"remaining_lessons"`
	PurchaseDate     time.Time  `gorm:"not null" json:"purchase_date"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
	Price            float64    `gorm:"type:numeric(10,2);not null" json:"price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p CoursePack) UsedLessons() int {
	return p.TotalLessons - p.RemainingLessons
}

// MarshalJSON adds the derived used_lessons count to the pack.
func (p CoursePack) MarshalJSON() ([]byte, error) {
	type pack CoursePack
	return json.Marshal(struct {
		pack
		UsedLessons int `json:"used_lessons"`
	}{pack(p), p.UsedLessons()})
}

// Active reports whether the pack still has lessons left and has not expired at t.
func (p CoursePack) Active(t time.Time) bool {
	if p.RemainingLessons <= 0 {
		return false
	}
	return p.ExpiryDate == nil || !t.After(*p.ExpiryDate)
}

type PackCreate struct {
	TotalLessons int     `json:"total_lessons" validate:"required,gt=0"`
	PurchaseDate string  `json:"purchase_date" validate:"required"`
	ExpiryDate   string  `json:"expiry_date"`
	Price        float64 `json:"price" validate:"gte=0"`
}

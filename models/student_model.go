package models

import (
	"time"

	"github.com/google/uuid"
)

type Student struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Rate       float64   `gorm:"type:numeric(10,2);not null" json:"rate"`
	Declared   bool      `gorm:"default:false" json:"declared"`
	Archived   bool      `gorm:"default:false;index" json:"archived"`
	CourseDay  *string   `gorm:"size:16" json:"course_day,omitempty"`
	CourseHour *string   `gorm:"size:5" json:"course_hour,omitempty"`
	Phone      *string   `gorm:"size:32" json:"phone,omitempty"`
	Address    *string   `gorm:"type:text" json:"address,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StudentCreate struct {
	Name       string  `json:"name" validate:"required,max=255"`
	Rate       float64 `json:"rate" validate:"gte=0"`
	CourseDay  string  `json:"course_day" validate:"courseday"`
	CourseHour string  `json:"course_hour" validate:"coursehour"`
	Phone      string  `json:"phone" validate:"max=32"`
	Address    string  `json:"address"`
}

// StudentUpdate is a partial update. Nil fields are left untouched; an empty
// string clears an optional field.
type StudentUpdate struct {
	Name       *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Rate       *float64 `json:"rate,omitempty" validate:"omitempty,gte=0"`
	Declared   *bool    `json:"declared,omitempty"`
	Archived   *bool    `json:"archived,omitempty"`
	CourseDay  *string  `json:"course_day,omitempty" validate:"omitempty,courseday"`
	CourseHour *string  `json:"course_hour,omitempty" validate:"omitempty,coursehour"`
	Phone      *string  `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address    *string  `json:"address,omitempty"`
}

func (u StudentUpdate) IsEmpty() bool {
	return u.Name == nil && u.Rate == nil && u.Declared == nil && u.Archived == nil &&
		u.CourseDay == nil && u.CourseHour == nil && u.Phone == nil && u.Address == nil
}

func (u StudentUpdate) Apply(s *Student) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Rate != nil {
		s.Rate = *u.Rate
	}
	if u.Declared != nil {
		s.Declared = *u.Declared
	}
	if u.Archived != nil {
		s.Archived = *u.Archived
	}
	if u.CourseDay != nil {
		s.CourseDay = Optional(*u.CourseDay)
	}
	if u.CourseHour != nil {
		s.CourseHour = Optional(*u.CourseHour)
	}
	if u.Phone != nil {
		s.Phone = Optional(*u.Phone)
	}
	if u.Address != nil {
		s.Address = Optional(*u.Address)
	}
}

// Optional maps the empty string to nil.
func Optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (s Student) HasCourseSlot() bool {
	return s.CourseDay != nil && s.CourseHour != nil
}

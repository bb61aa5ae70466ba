package mongo

import (
	"fmt"
	"time"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/google/uuid"
)

// Documents keep the camelCase field names of the historical collections.

type studentModel struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	Rate       float64   `bson:"rate"`
	Declared   bool      `bson:"declared"`
	Archived   bool      `bson:"archived"`
	CourseDay  *string   `bson:"courseDay"`
	CourseHour *string   `bson:"courseHour"`
	Phone      *string   `bson:"phone,omitempty"`
	Address    *string   `bson:"address,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func toStudentModel(s *models.Student) *studentModel {
	return &studentModel{
		ID:         s.ID.String(),
		Name:       s.Name,
		Rate:       s.Rate,
		Declared:   s.Declared,
		Archived:   s.Archived,
		CourseDay:  s.CourseDay,
		CourseHour: s.CourseHour,
		Phone:      s.Phone,
		Address:    s.Address,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func fromStudentModel(m *studentModel) (*models.Student, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse student id %q: %w", m.ID, err)
	}
	return &models.Student{
		ID:         id,
		Name:       m.Name,
		Rate:       m.Rate,
		Declared:   m.Declared,
		Archived:   m.Archived,
		CourseDay:  m.CourseDay,
		CourseHour: m.CourseHour,
		Phone:      m.Phone,
		Address:    m.Address,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

type lessonModel struct {
	ID        string    `bson:"_id"`
	StudentID string    `bson:"studentId"`
	Date      time.Time `bson:"date"`
	Amount    float64   `bson:"amount"`
	Comment   string    `bson:"comment,omitempty"`
	IsPaid    bool      `bson:"isPaid"`
	PackID    *string   `bson:"packId"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toLessonModel(l *models.Lesson) *lessonModel {
	m := &lessonModel{
		ID:        l.ID.String(),
		StudentID: l.StudentID.String(),
		Date:      l.Date,
		Amount:    l.Amount,
		Comment:   l.Comment,
		IsPaid:    l.IsPaid,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.PackID != nil {
		packID := l.PackID.String()
		m.PackID = &packID
	}
	return m
}

func fromLessonModel(m *lessonModel) (*models.Lesson, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse lesson id %q: %w", m.ID, err)
	}
	studentID, err := uuid.Parse(m.StudentID)
	if err != nil {
		return nil, fmt.Errorf("parse lesson student id %q: %w", m.StudentID, err)
	}
	l := &models.Lesson{
		ID:        id,
		StudentID: studentID,
		Date:      m.Date,
		Amount:    m.Amount,
		Comment:   m.Comment,
		IsPaid:    m.IsPaid,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.PackID != nil {
		packID, err := uuid.Parse(*m.PackID)
		if err != nil {
			return nil, fmt.Errorf("parse lesson pack id %q: %w", *m.PackID, err)
		}
		l.PackID = &packID
	}
	return l, nil
}

type packModel struct {
	ID               string     `bson:"_id"`
	StudentID        string     `bson:"studentId"`
	TotalLessons     int        `bson:"totalLessons"`
	RemainingLessons int        `bson:"remainingLessons"`
	PurchaseDate     time.Time  `bson:"purchaseDate"`
	ExpiryDate       *time.Time `bson:"expiryDate,omitempty"`
	Price            float64    `bson:"price"`
	CreatedAt        time.Time  `bson:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt"`
}

func toPackModel(p *models.CoursePack) *packModel {
	return &packModel{
		ID:               p.ID.String(),
		StudentID:        p.StudentID.String(),
		TotalLessons:     p.TotalLessons,
		RemainingLessons: p.RemainingLessons,
		PurchaseDate:     p.PurchaseDate,
		ExpiryDate:       p.ExpiryDate,
		Price:            p.Price,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func fromPackModel(m *packModel) (*models.CoursePack, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse pack id %q: %w", m.ID, err)
	}
	studentID, err := uuid.Parse(m.StudentID)
	if err != nil {
		return nil, fmt.Errorf("parse pack student id %q: %w", m.StudentID, err)
	}
	return &models.CoursePack{
		ID:               id,
		StudentID:        studentID,
		TotalLessons:     m.TotalLessons,
		RemainingLessons: m.RemainingLessons,
		PurchaseDate:     m.PurchaseDate,
		ExpiryDate:       m.ExpiryDate,
		Price:            m.Price,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

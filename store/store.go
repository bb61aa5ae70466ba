// Package store defines the persistence port used by the services and its
// query types. Adapters live in the memory, postgres and mongo subpackages.
package store

import (
	"context"
	"errors"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned by every adapter when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// LessonFilter selects lessons. Empty fields do not constrain the result.
type LessonFilter struct {
	StudentID *uuid.UUID
	PackID    *uuid.UUID
	IDs       []uuid.UUID
}

// IsEmpty reports whether the filter would match every lesson.
func (f LessonFilter) IsEmpty() bool {
	return f.StudentID == nil && f.PackID == nil && len(f.IDs) == 0
}

// LessonPatch is a partial update applied to every lesson matched by a filter.
// ClearPack takes precedence over PackID.
type LessonPatch struct {
	IsPaid    *bool
	PackID    *uuid.UUID
	ClearPack bool
}

type PackFilter struct {
	StudentID *uuid.UUID
}

type StudentStore interface {
	CreateStudent(ctx context.Context, s *models.Student) error
	GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error)
	// ListStudents returns students sorted newest first.
	ListStudents(ctx context.Context) ([]models.Student, error)
	UpdateStudent(ctx context.Context, id uuid.UUID, upd models.StudentUpdate) error
	DeleteStudent(ctx context.Context, id uuid.UUID) error
}

type LessonStore interface {
	CreateLesson(ctx context.Context, l *models.Lesson) error
	GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	// ListLessons returns matching lessons sorted by date, most recent first.
	ListLessons(ctx context.Context, f LessonFilter) ([]models.Lesson, error)
	CountLessons(ctx context.Context, f LessonFilter) (int64, error)
	UpdateLessons(ctx context.Context, f LessonFilter, p LessonPatch) (int64, error)
	DeleteLesson(ctx context.Context, id uuid.UUID) error
	DeleteLessons(ctx context.Context, f LessonFilter) (int64, error)
}

type PackStore interface {
	CreatePack(ctx context.Context, p *models.CoursePack) error
	GetPack(ctx context.Context, id uuid.UUID) (*models.CoursePack, error)
	// ListPacks returns matching packs sorted newest first.
	ListPacks(ctx context.Context, f PackFilter) ([]models.CoursePack, error)
	SetPackRemaining(ctx context.Context, id uuid.UUID, remaining int) error
	DeletePack(ctx context.Context, id uuid.UUID) error
	DeletePacks(ctx context.Context, f PackFilter) (int64, error)
}

// Store is the unified persistence interface.
type Store interface {
	StudentStore
	LessonStore
	PackStore

	// WithinTx runs fn against a Store scoped to a single transaction when the
	// backend supports one. Returning an error rolls the work back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store on top of a gorm connection.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the students, lessons and course_packs tables.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.Student{},
		&models.Lesson{},
		&models.CoursePack{},
	)
	if err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

// ==================== Students ====================

func (s *Store) CreateStudent(ctx context.Context, st *models.Student) error {
	if err := s.db.WithContext(ctx).Create(st).Error; err != nil {
		return fmt.Errorf("postgres: create student: %w", err)
	}
	return nil
}

func (s *Store) GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	var st models.Student
	if err := s.db.WithContext(ctx).First(&st, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&students).Error; err != nil {
		return nil, fmt.Errorf("postgres: list students: %w", err)
	}
	return students, nil
}

func (s *Store) UpdateStudent(ctx context.Context, id uuid.UUID, upd models.StudentUpdate) error {
	result := s.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		Updates(studentColumns(upd))
	if result.Error != nil {
		return fmt.Errorf("postgres: update student: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func studentColumns(upd models.StudentUpdate) map[string]interface{} {
	fields := map[string]interface{}{"updated_at": time.Now()}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.Rate != nil {
		fields["rate"] = *upd.Rate
	}
	if upd.Declared != nil {
		fields["declared"] = *upd.Declared
	}
	if upd.Archived != nil {
		fields["archived"] = *upd.Archived
	}
	if upd.CourseDay != nil {
		fields["course_day"] = models.Optional(*upd.CourseDay)
	}
	if upd.CourseHour != nil {
		fields["course_hour"] = models.Optional(*upd.CourseHour)
	}
	if upd.Phone != nil {
		fields["phone"] = models.Optional(*upd.Phone)
	}
	if upd.Address != nil {
		fields["address"] = models.Optional(*upd.Address)
	}
	return fields
}

func (s *Store) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Student{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("postgres: delete student: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ==================== Lessons ====================

func (s *Store) lessons(ctx context.Context, f store.LessonFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Lesson{})
	if f.StudentID != nil {
		q = q.Where("student_id = ?", *f.StudentID)
	}
	if f.PackID != nil {
		q = q.Where("pack_id = ?", *f.PackID)
	}
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}
	return q
}

func (s *Store) CreateLesson(ctx context.Context, l *models.Lesson) error {
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("postgres: create lesson: %w", err)
	}
	return nil
}

func (s *Store) GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	var l models.Lesson
	if err := s.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (s *Store) ListLessons(ctx context.Context, f store.LessonFilter) ([]models.Lesson, error) {
	var lessons []models.Lesson
	if err := s.lessons(ctx, f).Order("date desc").Find(&lessons).Error; err != nil {
		return nil, fmt.Errorf("postgres: list lessons: %w", err)
	}
	return lessons, nil
}

func (s *Store) CountLessons(ctx context.Context, f store.LessonFilter) (int64, error) {
	var n int64
	if err := s.lessons(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("postgres: count lessons: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateLessons(ctx context.Context, f store.LessonFilter, p store.LessonPatch) (int64, error) {
	fields := map[string]interface{}{"updated_at": time.Now()}
	if p.IsPaid != nil {
		fields["is_paid"] = *p.IsPaid
	}
	switch {
	case p.ClearPack:
		fields["pack_id"] = nil
	case p.PackID != nil:
		fields["pack_id"] = *p.PackID
	}

	result := s.lessons(ctx, f).Updates(fields)
	if result.Error != nil {
		return 0, fmt.Errorf("postgres: update lessons: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Lesson{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("postgres: delete lesson: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteLessons(ctx context.Context, f store.LessonFilter) (int64, error) {
	if f.IsEmpty() {
		return 0, errors.New("postgres: refusing to delete lessons without a filter")
	}
	result := s.lessons(ctx, f).Delete(&models.Lesson{})
	if result.Error != nil {
		return 0, fmt.Errorf("postgres: delete lessons: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ==================== Packs ====================

func (s *Store) CreatePack(ctx context.Context, p *models.CoursePack) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("postgres: create pack: %w", err)
	}
	return nil
}

func (s *Store) GetPack(ctx context.Context, id uuid.UUID) (*models.CoursePack, error) {
	var p models.CoursePack
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) ListPacks(ctx context.Context, f store.PackFilter) ([]models.CoursePack, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if f.StudentID != nil {
		q = q.Where("student_id = ?", *f.StudentID)
	}
	var packs []models.CoursePack
	if err := q.Find(&packs).Error; err != nil {
		return nil, fmt.Errorf("postgres: list packs: %w", err)
	}
	return packs, nil
}

func (s *Store) SetPackRemaining(ctx context.Context, id uuid.UUID, remaining int) error {
	result := s.db.WithContext(ctx).
		Model(&models.CoursePack{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"remaining_lessons": remaining, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("postgres: set pack remaining: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePack(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.CoursePack{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("postgres: delete pack: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePacks(ctx context.Context, f store.PackFilter) (int64, error) {
	if f.StudentID == nil {
		return 0, errors.New("postgres: refusing to delete packs without a filter")
	}
	result := s.db.WithContext(ctx).Where("student_id = ?", *f.StudentID).Delete(&models.CoursePack{})
	if result.Error != nil {
		return 0, fmt.Errorf("postgres: delete packs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

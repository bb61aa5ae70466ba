package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/anjiri1684/tutor_desk/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StudentService struct {
	store store.Store
	options
}

func NewStudentService(s store.Store, opts ...Option) *StudentService {
	return &StudentService{store: s, options: buildOptions(opts)}
}

// StudentBalance summarises what a student paid, owes and has left in packs.
type StudentBalance struct {
	TotalPaid             float64             `json:"total_paid"`
	TotalDue              float64             `json:"total_due"`
	UnpaidLessons         int                 `json:"unpaid_lessons"`
	TotalRemainingLessons int                 `json:"total_remaining_lessons"`
	ActivePacks           []models.CoursePack `json:"active_packs"`
}

func (s *StudentService) CreateStudent(ctx context.Context, in models.StudentCreate) (*models.Student, Invalidation, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, nil, invalidInput(err)
	}

	now := s.now()
	student := &models.Student{
		ID:         uuid.New(),
		Name:       in.Name,
		Rate:       in.Rate,
		Declared:   false,
		Archived:   false,
		CourseDay:  models.Optional(in.CourseDay),
		CourseHour: models.Optional(in.CourseHour),
		Phone:      models.Optional(in.Phone),
		Address:    models.Optional(in.Address),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateStudent(ctx, student); err != nil {
		return nil, nil, StorageFailure("create student", err)
	}
	return student, invalidate(KeyStudents, KeyAgenda), nil
}

func (s *StudentService) GetStudent(ctx context.Context, raw string) (*models.Student, error) {
	id, err := parseID("student_id", raw)
	if err != nil {
		return nil, err
	}
	student, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return nil, fromStore("get student", "student", err)
	}
	return student, nil
}

func (s *StudentService) ListStudents(ctx context.Context, includeArchived bool) ([]models.Student, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, StorageFailure("list students", err)
	}
	if includeArchived {
		return students, nil
	}
	active := make([]models.Student, 0, len(students))
	for _, st := range students {
		if !st.Archived {
			active = append(active, st)
		}
	}
	return active, nil
}

// UpdateStudent applies a partial update. Archiving is an update with Archived set.
func (s *StudentService) UpdateStudent(ctx context.Context, raw string, upd models.StudentUpdate) (*models.Student, Invalidation, error) {
	id, err := parseID("student_id", raw)
	if err != nil {
		return nil, nil, err
	}
	if upd.IsEmpty() {
		return nil, nil, ValidationFailure("update: no fields to change")
	}
	if err := utils.ValidateStruct(upd); err != nil {
		return nil, nil, invalidInput(err)
	}

	if err := s.store.UpdateStudent(ctx, id, upd); err != nil {
		return nil, nil, fromStore("update student", "student", err)
	}
	student, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return nil, nil, fromStore("get student", "student", err)
	}

	keys := []string{KeyStudents, StudentKey(id), KeyAgenda}
	if upd.Declared != nil || upd.Archived != nil {
		keys = append(keys, KeyFinances)
	}
	return student, invalidate(keys...), nil
}

// DeleteStudent removes the student with every lesson and pack they own.
func (s *StudentService) DeleteStudent(ctx context.Context, raw string) (Invalidation, error) {
	id, err := parseID("student_id", raw)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetStudent(ctx, id); err != nil {
		return nil, fromStore("get student", "student", err)
	}

	var lessons, packs int64
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		var err error
		if lessons, err = tx.DeleteLessons(ctx, store.LessonFilter{StudentID: &id}); err != nil {
			return err
		}
		if packs, err = tx.DeletePacks(ctx, store.PackFilter{StudentID: &id}); err != nil {
			return err
		}
		return tx.DeleteStudent(ctx, id)
	})
	if err != nil {
		return nil, fromStore("delete student", "student", err)
	}

	s.logger.Info("student deleted",
		slog.String("student_id", id.String()),
		slog.Int64("lessons", lessons),
		slog.Int64("packs", packs))

	return invalidate(KeyStudents, StudentKey(id), LessonsKey(id), PacksKey(id), KeyLessons, KeyFinances, KeyAgenda), nil
}

func (s *StudentService) ListStudentLessons(ctx context.Context, raw string) ([]models.Lesson, error) {
	id, err := parseID("student_id", raw)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetStudent(ctx, id); err != nil {
		return nil, fromStore("get student", "student", err)
	}
	lessons, err := s.store.ListLessons(ctx, store.LessonFilter{StudentID: &id})
	if err != nil {
		return nil, StorageFailure("list lessons", err)
	}
	return lessons, nil
}

// ListLessons returns every lesson joined with its student, most recent first.
// Lessons whose student no longer exists are left out.
func (s *StudentService) ListLessons(ctx context.Context) ([]models.LessonWithStudent, error) {
	return lessonsWithStudents(ctx, s.store)
}

func (s *StudentService) Balance(ctx context.Context, raw string) (*StudentBalance, error) {
	id, err := parseID("student_id", raw)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetStudent(ctx, id); err != nil {
		return nil, fromStore("get student", "student", err)
	}
	lessons, err := s.store.ListLessons(ctx, store.LessonFilter{StudentID: &id})
	if err != nil {
		return nil, StorageFailure("list lessons", err)
	}
	packs, err := s.store.ListPacks(ctx, store.PackFilter{StudentID: &id})
	if err != nil {
		return nil, StorageFailure("list packs", err)
	}
	balance := ComputeBalance(lessons, packs, s.now())
	return &balance, nil
}

// ComputeBalance derives a student's balance. Pack balances are recomputed
// from the given lessons rather than trusted from storage.
func ComputeBalance(lessons []models.Lesson, packs []models.CoursePack, at time.Time) StudentBalance {
	paid, due := decimal.Zero, decimal.Zero
	used := make(map[uuid.UUID]int)
	unpaid := 0
	for _, l := range lessons {
		amount := decimal.NewFromFloat(l.Amount)
		if l.IsPaid {
			paid = paid.Add(amount)
		} else {
			due = due.Add(amount)
			unpaid++
		}
		if l.PackID != nil {
			used[*l.PackID]++
		}
	}

	balance := StudentBalance{
		TotalPaid:     paid.Round(2).InexactFloat64(),
		TotalDue:      due.Round(2).InexactFloat64(),
		UnpaidLessons: unpaid,
		ActivePacks:   make([]models.CoursePack, 0),
	}
	for _, p := range packs {
		p.RemainingLessons = p.TotalLessons - used[p.ID]
		if p.Active(at) {
			balance.ActivePacks = append(balance.ActivePacks, p)
			balance.TotalRemainingLessons += p.RemainingLessons
		}
	}
	return balance
}

func lessonsWithStudents(ctx context.Context, st store.Store) ([]models.LessonWithStudent, error) {
	students, err := st.ListStudents(ctx)
	if err != nil {
		return nil, StorageFailure("list students", err)
	}
	lessons, err := st.ListLessons(ctx, store.LessonFilter{})
	if err != nil {
		return nil, StorageFailure("list lessons", err)
	}

	byID := make(map[uuid.UUID]models.Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}
	joined := make([]models.LessonWithStudent, 0, len(lessons))
	for _, l := range lessons {
		student, ok := byID[l.StudentID]
		if !ok {
			continue
		}
		joined = append(joined, models.LessonWithStudent{Lesson: l, Student: student})
	}
	return joined, nil
}

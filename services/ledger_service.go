package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/anjiri1684/tutor_desk/utils"
	"github.com/google/uuid"
)

// LedgerService keeps lesson payment state and pack balances consistent.
// A pack's remaining count is always derived from the lessons referencing it.
type LedgerService struct {
	store store.Store
	options
}

func NewLedgerService(s store.Store, opts ...Option) *LedgerService {
	return &LedgerService{store: s, options: buildOptions(opts)}
}

// PackPayment is the outcome of paying lessons with a pack.
type PackPayment struct {
	UpdatedLessons   int `json:"updated_lessons"`
	RemainingLessons int `json:"remaining_lessons"`
}

func (s *LedgerService) CreateLesson(ctx context.Context, in models.LessonCreate) (*models.Lesson, Invalidation, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, nil, invalidInput(err)
	}
	studentID, err := parseID("student_id", in.StudentID)
	if err != nil {
		return nil, nil, err
	}
	date, err := utils.ParseDate(in.Date, s.location)
	if err != nil {
		return nil, nil, ValidationFailure("date: %v", err)
	}

	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, nil, fromStore("get student", "student", err)
	}

	now := s.now()
	lesson := &models.Lesson{
		ID:        uuid.New(),
		StudentID: studentID,
		Date:      date,
		Amount:    student.Rate,
		Comment:   in.Comment,
		IsPaid:    in.IsPaid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Amount != nil {
		lesson.Amount = *in.Amount
	}

	var pack *models.CoursePack
	if in.PackID != "" {
		packID, err := parseID("pack_id", in.PackID)
		if err != nil {
			return nil, nil, err
		}
		if pack, err = s.studentPack(ctx, s.store, studentID, packID); err != nil {
			return nil, nil, err
		}
		lesson.PackID = &packID
		lesson.IsPaid = true
	}

	err = s.withinTx(ctx, "create lesson", func(ctx context.Context, tx store.Store) error {
		if err := tx.CreateLesson(ctx, lesson); err != nil {
			return err
		}
		if pack == nil {
			return nil
		}
		_, err := s.recompute(ctx, tx, pack)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if pack != nil && pack.RemainingLessons < 0 {
		s.logger.Warn("pack over-allocated",
			slog.String("pack_id", pack.ID.String()),
			slog.Int("remaining_lessons", pack.RemainingLessons))
	}

	keys := []string{LessonsKey(studentID), KeyLessons, KeyFinances}
	if pack != nil {
		keys = append(keys, PacksKey(studentID))
	}
	return lesson, invalidate(keys...), nil
}

// PayWithPack marks unpaid lessons as paid by the given pack. It fails without
// mutating anything when the pack cannot cover every lesson.
func (s *LedgerService) PayWithPack(ctx context.Context, studentRaw, packRaw string, lessonRaws []string) (*PackPayment, Invalidation, error) {
	studentID, err := parseID("student_id", studentRaw)
	if err != nil {
		return nil, nil, err
	}
	packID, err := parseID("pack_id", packRaw)
	if err != nil {
		return nil, nil, err
	}
	if len(lessonRaws) == 0 {
		return nil, nil, ValidationFailure("lesson_ids: at least one lesson is required")
	}
	lessonIDs := make([]uuid.UUID, 0, len(lessonRaws))
	seen := make(map[uuid.UUID]struct{}, len(lessonRaws))
	for _, raw := range lessonRaws {
		id, err := parseID("lesson_id", raw)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		lessonIDs = append(lessonIDs, id)
	}

	var payment PackPayment
	err = s.withinTx(ctx, "pay with pack", func(ctx context.Context, tx store.Store) error {
		pack, err := s.studentPack(ctx, tx, studentID, packID)
		if err != nil {
			return err
		}
		if _, err := s.recompute(ctx, tx, pack); err != nil {
			return err
		}

		lessons, err := tx.ListLessons(ctx, store.LessonFilter{StudentID: &studentID, IDs: lessonIDs})
		if err != nil {
			return err
		}
		if len(lessons) != len(lessonIDs) {
			return NotFound("%d of %d lessons not found for student", len(lessonIDs)-len(lessons), len(lessonIDs))
		}
		for _, l := range lessons {
			if l.IsPaid {
				return ValidationFailure("lesson %s is already paid", l.ID)
			}
		}
		if pack.RemainingLessons < len(lessonIDs) {
			return InsufficientPackCapacity(pack.RemainingLessons, len(lessonIDs))
		}

		paid := true
		n, err := tx.UpdateLessons(ctx,
			store.LessonFilter{StudentID: &studentID, IDs: lessonIDs},
			store.LessonPatch{IsPaid: &paid, PackID: &packID},
		)
		if err != nil {
			return err
		}
		if _, err := s.recompute(ctx, tx, pack); err != nil {
			return err
		}

		payment = PackPayment{UpdatedLessons: int(n), RemainingLessons: pack.RemainingLessons}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("lessons paid with pack",
		slog.String("pack_id", packID.String()),
		slog.Int("lessons", payment.UpdatedLessons),
		slog.Int("remaining_lessons", payment.RemainingLessons))

	return &payment, invalidate(LessonsKey(studentID), PacksKey(studentID), KeyLessons, KeyFinances), nil
}

// SetLessonPaid toggles the paid flag of one lesson. Unpaying a pack-paid
// lesson gives the lesson back to its pack; paying never assigns a pack.
func (s *LedgerService) SetLessonPaid(ctx context.Context, lessonRaw string, paid bool) (*models.Lesson, Invalidation, error) {
	lessonID, err := parseID("lesson_id", lessonRaw)
	if err != nil {
		return nil, nil, err
	}
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, nil, fromStore("get lesson", "lesson", err)
	}
	previousPack := lesson.PackID

	patch := store.LessonPatch{IsPaid: &paid}
	if !paid {
		patch.ClearPack = true
	}

	err = s.withinTx(ctx, "set lesson payment", func(ctx context.Context, tx store.Store) error {
		if _, err := tx.UpdateLessons(ctx, store.LessonFilter{IDs: []uuid.UUID{lessonID}}, patch); err != nil {
			return err
		}
		if paid || previousPack == nil {
			return nil
		}
		return s.recomputeByID(ctx, tx, *previousPack)
	})
	if err != nil {
		return nil, nil, err
	}

	lesson.IsPaid = paid
	if !paid {
		lesson.PackID = nil
	}

	keys := []string{LessonsKey(lesson.StudentID), KeyLessons, KeyFinances}
	if !paid && previousPack != nil {
		keys = append(keys, PacksKey(lesson.StudentID))
	}
	return lesson, invalidate(keys...), nil
}

func (s *LedgerService) DeleteLesson(ctx context.Context, lessonRaw string) (Invalidation, error) {
	lessonID, err := parseID("lesson_id", lessonRaw)
	if err != nil {
		return nil, err
	}
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, fromStore("get lesson", "lesson", err)
	}

	err = s.withinTx(ctx, "delete lesson", func(ctx context.Context, tx store.Store) error {
		if err := tx.DeleteLesson(ctx, lessonID); err != nil {
			return err
		}
		if lesson.PackID == nil {
			return nil
		}
		return s.recomputeByID(ctx, tx, *lesson.PackID)
	})
	if err != nil {
		return nil, err
	}

	keys := []string{LessonsKey(lesson.StudentID), KeyLessons, KeyFinances}
	if lesson.PackID != nil {
		keys = append(keys, PacksKey(lesson.StudentID))
	}
	return invalidate(keys...), nil
}

// DeletePack detaches every lesson paid with the pack, then deletes it. It
// returns how many lessons became unpaid.
func (s *LedgerService) DeletePack(ctx context.Context, studentRaw, packRaw string) (int, Invalidation, error) {
	studentID, err := parseID("student_id", studentRaw)
	if err != nil {
		return 0, nil, err
	}
	packID, err := parseID("pack_id", packRaw)
	if err != nil {
		return 0, nil, err
	}

	var unpaid int64
	err = s.withinTx(ctx, "delete pack", func(ctx context.Context, tx store.Store) error {
		if _, err := s.studentPack(ctx, tx, studentID, packID); err != nil {
			return err
		}
		notPaid := false
		n, err := tx.UpdateLessons(ctx,
			store.LessonFilter{PackID: &packID},
			store.LessonPatch{IsPaid: &notPaid, ClearPack: true},
		)
		if err != nil {
			return err
		}
		unpaid = n
		return tx.DeletePack(ctx, packID)
	})
	if err != nil {
		return 0, nil, err
	}

	s.logger.Info("pack deleted",
		slog.String("pack_id", packID.String()),
		slog.Int64("unpaid_lessons", unpaid))

	return int(unpaid), invalidate(LessonsKey(studentID), PacksKey(studentID), KeyLessons, KeyFinances), nil
}

// ListPacks recomputes and persists every pack balance of the student before
// returning the packs, newest first.
func (s *LedgerService) ListPacks(ctx context.Context, studentRaw string) ([]models.CoursePack, error) {
	studentID, err := parseID("student_id", studentRaw)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, fromStore("get student", "student", err)
	}

	packs, err := s.store.ListPacks(ctx, store.PackFilter{StudentID: &studentID})
	if err != nil {
		return nil, StorageFailure("list packs", err)
	}
	for i := range packs {
		if _, err := s.recompute(ctx, s.store, &packs[i]); err != nil {
			return nil, fromStore("recompute pack", "course pack", err)
		}
	}
	return packs, nil
}

func (s *LedgerService) CreatePack(ctx context.Context, studentRaw string, in models.PackCreate) (*models.CoursePack, Invalidation, error) {
	studentID, err := parseID("student_id", studentRaw)
	if err != nil {
		return nil, nil, err
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, nil, invalidInput(err)
	}
	purchase, err := utils.ParseDate(in.PurchaseDate, s.location)
	if err != nil {
		return nil, nil, ValidationFailure("purchase_date: %v", err)
	}
	var expiry *time.Time
	if in.ExpiryDate != "" {
		t, err := utils.ParseDate(in.ExpiryDate, s.location)
		if err != nil {
			return nil, nil, ValidationFailure("expiry_date: %v", err)
		}
		if t.Before(purchase) {
			return nil, nil, ValidationFailure("expiry_date: must not be before purchase_date")
		}
		expiry = &t
	}

	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, nil, fromStore("get student", "student", err)
	}

	now := s.now()
	pack := &models.CoursePack{
		ID:               uuid.New(),
		StudentID:        studentID,
		TotalLessons:     in.TotalLessons,
		RemainingLessons: in.TotalLessons,
		PurchaseDate:     purchase,
		ExpiryDate:       expiry,
		Price:            in.Price,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreatePack(ctx, pack); err != nil {
		return nil, nil, StorageFailure("create pack", err)
	}
	return pack, invalidate(PacksKey(studentID)), nil
}

// ReconcileAll recomputes every pack in the store and returns how many
// balances were corrected.
func (s *LedgerService) ReconcileAll(ctx context.Context) (int, error) {
	packs, err := s.store.ListPacks(ctx, store.PackFilter{})
	if err != nil {
		return 0, StorageFailure("list packs", err)
	}

	corrected := 0
	for i := range packs {
		before := packs[i].RemainingLessons
		changed, err := s.recompute(ctx, s.store, &packs[i])
		if err != nil {
			return corrected, fromStore("recompute pack", "course pack", err)
		}
		if changed {
			corrected++
			s.logger.Warn("pack balance corrected",
				slog.String("pack_id", packs[i].ID.String()),
				slog.Int("was", before),
				slog.Int("now", packs[i].RemainingLessons))
		}
	}
	return corrected, nil
}

// recompute derives the pack balance from the lessons referencing it and
// persists it when it differs. pack is updated in place.
func (s *LedgerService) recompute(ctx context.Context, st store.Store, pack *models.CoursePack) (bool, error) {
	used, err := st.CountLessons(ctx, store.LessonFilter{PackID: &pack.ID})
	if err != nil {
		return false, err
	}
	remaining := pack.TotalLessons - int(used)
	if remaining == pack.RemainingLessons {
		return false, nil
	}
	if err := st.SetPackRemaining(ctx, pack.ID, remaining); err != nil {
		return false, err
	}
	pack.RemainingLessons = remaining
	return true, nil
}

// recomputeByID recomputes a pack referenced by a lesson. A dangling reference
// is ignored.
func (s *LedgerService) recomputeByID(ctx context.Context, st store.Store, packID uuid.UUID) error {
	pack, err := st.GetPack(ctx, packID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("lesson references a missing pack", slog.String("pack_id", packID.String()))
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.recompute(ctx, st, pack)
	return err
}

func (s *LedgerService) studentPack(ctx context.Context, st store.Store, studentID, packID uuid.UUID) (*models.CoursePack, error) {
	pack, err := st.GetPack(ctx, packID)
	if err != nil {
		return nil, fromStore("get pack", "course pack", err)
	}
	if pack.StudentID != studentID {
		return nil, NotFound("course pack not found for student")
	}
	return pack, nil
}

func (s *LedgerService) withinTx(ctx context.Context, op string, fn func(ctx context.Context, tx store.Store) error) error {
	if err := s.store.WithinTx(ctx, fn); err != nil {
		return fromStore(op, "record", err)
	}
	return nil
}

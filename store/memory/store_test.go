package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/google/uuid"
)

func seedLessons(t *testing.T, s *Store, studentID uuid.UUID, packID *uuid.UUID, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, n)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		l := &models.Lesson{
			ID:        uuid.New(),
			StudentID: studentID,
			Date:      base.AddDate(0, 0, i),
			Amount:    60,
			IsPaid:    packID != nil,
			PackID:    packID,
		}
		if err := s.CreateLesson(context.Background(), l); err != nil {
			t.Fatalf("CreateLesson: %v", err)
		}
		ids = append(ids, l.ID)
	}
	return ids
}

func TestListLessonsFilterAndOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	packID := uuid.New()

	seedLessons(t, s, alice, nil, 2)
	packed := seedLessons(t, s, alice, &packID, 3)
	seedLessons(t, s, bob, nil, 1)

	all, err := s.ListLessons(ctx, store.LessonFilter{})
	if err != nil {
		t.Fatalf("ListLessons: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("got %d lessons, want 6", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Date.After(all[i-1].Date) {
			t.Fatalf("lessons not sorted by date desc at %d", i)
		}
	}

	tests := []struct {
		name   string
		filter store.LessonFilter
		want   int64
	}{
		{"by student", store.LessonFilter{StudentID: &alice}, 5},
		{"by pack", store.LessonFilter{PackID: &packID}, 3},
		{"by ids", store.LessonFilter{IDs: packed[:2]}, 2},
		{"ids of other student", store.LessonFilter{StudentID: &bob, IDs: packed}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.CountLessons(ctx, tt.filter)
			if err != nil {
				t.Fatalf("CountLessons: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUpdateLessonsClearPack(t *testing.T) {
	s := New()
	ctx := context.Background()
	studentID, packID := uuid.New(), uuid.New()
	seedLessons(t, s, studentID, &packID, 2)

	unpaid := false
	n, err := s.UpdateLessons(ctx, store.LessonFilter{PackID: &packID}, store.LessonPatch{IsPaid: &unpaid, ClearPack: true})
	if err != nil {
		t.Fatalf("UpdateLessons: %v", err)
	}
	if n != 2 {
		t.Fatalf("got %d updated, want 2", n)
	}

	lessons, _ := s.ListLessons(ctx, store.LessonFilter{StudentID: &studentID})
	for _, l := range lessons {
		if l.IsPaid || l.PackID != nil {
			t.Errorf("lesson %s: is_paid=%v pack=%v, want unpaid without pack", l.ID, l.IsPaid, l.PackID)
		}
	}
}

func TestReturnedLessonsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	packID := uuid.New()
	ids := seedLessons(t, s, uuid.New(), &packID, 1)

	l, err := s.GetLesson(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetLesson: %v", err)
	}
	*l.PackID = uuid.New()

	again, _ := s.GetLesson(ctx, ids[0])
	if *again.PackID != packID {
		t.Errorf("stored pack id mutated through returned lesson")
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	studentID := uuid.New()
	if err := s.CreateStudent(ctx, &models.Student{ID: studentID, Name: "Alice"}); err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.DeleteStudent(ctx, studentID); err != nil {
			return err
		}
		seedLessons(t, s, studentID, nil, 2)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}

	if _, err := s.GetStudent(ctx, studentID); err != nil {
		t.Errorf("student not restored: %v", err)
	}
	if n, _ := s.CountLessons(ctx, store.LessonFilter{}); n != 0 {
		t.Errorf("got %d lessons after rollback, want 0", n)
	}
}

func TestNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := uuid.New()

	if _, err := s.GetStudent(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetStudent: got %v, want ErrNotFound", err)
	}
	if err := s.UpdateStudent(ctx, id, models.StudentUpdate{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateStudent: got %v, want ErrNotFound", err)
	}
	if err := s.SetPackRemaining(ctx, id, 3); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetPackRemaining: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteLesson(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteLesson: got %v, want ErrNotFound", err)
	}
}

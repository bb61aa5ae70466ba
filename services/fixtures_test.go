package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/anjiri1684/tutor_desk/store/memory"
	"github.com/google/uuid"
)

var fixedNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

var testIssuer = Issuer{
	CompanyName:     "Studio Lilas",
	CompanyAddress:  "5 place des Vosges 75004 Paris",
	Siret:           "12345678900011",
	AgreementNumber: "123456789",
}

func testOptions() []Option {
	return []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
	}
}

func seedStudent(t *testing.T, st store.Store, name string, rate float64, declared bool) models.Student {
	t.Helper()
	s := models.Student{
		ID:        uuid.New(),
		Name:      name,
		Rate:      rate,
		Declared:  declared,
		CreatedAt: fixedNow,
	}
	if err := st.CreateStudent(context.Background(), &s); err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	return s
}

func createPack(t *testing.T, led *LedgerService, studentID uuid.UUID, total int) *models.CoursePack {
	t.Helper()
	p, _, err := led.CreatePack(context.Background(), studentID.String(), models.PackCreate{
		TotalLessons: total,
		PurchaseDate: "2024-03-01",
		Price:        float64(total) * 50,
	})
	if err != nil {
		t.Fatalf("CreatePack: %v", err)
	}
	return p
}

func createLesson(t *testing.T, led *LedgerService, studentID uuid.UUID, date string, packID *uuid.UUID) *models.Lesson {
	t.Helper()
	in := models.LessonCreate{StudentID: studentID.String(), Date: date}
	if packID != nil {
		in.PackID = packID.String()
	}
	l, _, err := led.CreateLesson(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	return l
}

// assertLedgerInvariants checks every pack balance against its lessons and
// that pack-paid lessons are paid.
func assertLedgerInvariants(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	packs, err := st.ListPacks(ctx, store.PackFilter{})
	if err != nil {
		t.Fatalf("ListPacks: %v", err)
	}
	for _, p := range packs {
		used, err := st.CountLessons(ctx, store.LessonFilter{PackID: &p.ID})
		if err != nil {
			t.Fatalf("CountLessons: %v", err)
		}
		if want := p.TotalLessons - int(used); p.RemainingLessons != want {
			t.Errorf("pack %s: remaining %d, want %d", p.ID, p.RemainingLessons, want)
		}
	}

	lessons, err := st.ListLessons(ctx, store.LessonFilter{})
	if err != nil {
		t.Fatalf("ListLessons: %v", err)
	}
	for _, l := range lessons {
		if l.PackID != nil && !l.IsPaid {
			t.Errorf("lesson %s references pack %s but is unpaid", l.ID, *l.PackID)
		}
	}
}

func newMemoryLedger() (*memory.Store, *LedgerService) {
	st := memory.New()
	return st, NewLedgerService(st, testOptions()...)
}

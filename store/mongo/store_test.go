package mongo

import (
	"testing"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestLessonFilter(t *testing.T) {
	studentID, packID := uuid.New(), uuid.New()
	lessonID := uuid.New()

	got := lessonFilter(store.LessonFilter{StudentID: &studentID, PackID: &packID, IDs: []uuid.UUID{lessonID}})

	if got["studentId"] != studentID.String() {
		t.Errorf("studentId: got %v, want %v", got["studentId"], studentID)
	}
	if got["packId"] != packID.String() {
		t.Errorf("packId: got %v, want %v", got["packId"], packID)
	}
	in, ok := got["_id"].(bson.M)["$in"].(bson.A)
	if !ok || len(in) != 1 || in[0] != lessonID.String() {
		t.Errorf("_id: got %v, want $in [%s]", got["_id"], lessonID)
	}

	if empty := lessonFilter(store.LessonFilter{}); len(empty) != 0 {
		t.Errorf("empty filter: got %v, want no constraints", empty)
	}
}

func TestStudentFieldsClearsOptionalValues(t *testing.T) {
	empty := ""
	archived := true
	fields := studentFields(models.StudentUpdate{CourseDay: &empty, Archived: &archived})

	if v, ok := fields["courseDay"]; !ok || v.(*string) != nil {
		t.Errorf("courseDay: got %v, want explicit null", v)
	}
	if fields["archived"] != true {
		t.Errorf("archived: got %v, want true", fields["archived"])
	}
	if _, ok := fields["name"]; ok {
		t.Error("name must not be set when absent from the update")
	}
}

func TestLessonModelKeepsNullPack(t *testing.T) {
	l := &models.Lesson{ID: uuid.New(), StudentID: uuid.New(), Amount: 45}
	m := toLessonModel(l)
	if m.PackID != nil {
		t.Fatalf("got pack %v, want nil", *m.PackID)
	}

	back, err := fromLessonModel(m)
	if err != nil {
		t.Fatalf("fromLessonModel: %v", err)
	}
	if back.PackID != nil || back.ID != l.ID || back.StudentID != l.StudentID {
		t.Errorf("got %+v, want %+v", back, l)
	}
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/google/uuid"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps every collection in process memory. WithinTx is not reentrant.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	students map[uuid.UUID]models.Student
	lessons  map[uuid.UUID]models.Lesson
	packs    map[uuid.UUID]models.CoursePack
}

func New() *Store {
	return &Store{
		students: make(map[uuid.UUID]models.Student),
		lessons:  make(map[uuid.UUID]models.Lesson),
		packs:    make(map[uuid.UUID]models.CoursePack),
	}
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// WithinTx snapshots every collection and restores the snapshot when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	students map[uuid.UUID]models.Student
	lessons  map[uuid.UUID]models.Lesson
	packs    map[uuid.UUID]models.CoursePack
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		students: make(map[uuid.UUID]models.Student, len(s.students)),
		lessons:  make(map[uuid.UUID]models.Lesson, len(s.lessons)),
		packs:    make(map[uuid.UUID]models.CoursePack, len(s.packs)),
	}
	for k, v := range s.students {
		snap.students[k] = v
	}
	for k, v := range s.lessons {
		snap.lessons[k] = v
	}
	for k, v := range s.packs {
		snap.packs[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.students = snap.students
	s.lessons = snap.lessons
	s.packs = snap.packs
}

// ==================== Students ====================

func (s *Store) CreateStudent(_ context.Context, st *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.students[st.ID] = *st
	return nil
}

func (s *Store) GetStudent(_ context.Context, id uuid.UUID) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &st, nil
}

func (s *Store) ListStudents(_ context.Context) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Student, 0, len(s.students))
	for _, st := range s.students {
		result = append(result, st)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) UpdateStudent(_ context.Context, id uuid.UUID, upd models.StudentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[id]
	if !ok {
		return store.ErrNotFound
	}
	upd.Apply(&st)
	s.students[id] = st
	return nil
}

func (s *Store) DeleteStudent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.students, id)
	return nil
}

// ==================== Lessons ====================

func (s *Store) CreateLesson(_ context.Context, l *models.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lessons[l.ID] = copyLesson(*l)
	return nil
}

func (s *Store) GetLesson(_ context.Context, id uuid.UUID) (*models.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lessons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	l = copyLesson(l)
	return &l, nil
}

func (s *Store) ListLessons(_ context.Context, f store.LessonFilter) ([]models.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Lesson, 0)
	for _, l := range s.lessons {
		if matchLesson(l, f) {
			result = append(result, copyLesson(l))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].Date.After(result[j].Date)
	})
	return result, nil
}

func (s *Store) CountLessons(_ context.Context, f store.LessonFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, l := range s.lessons {
		if matchLesson(l, f) {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateLessons(_ context.Context, f store.LessonFilter, p store.LessonPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, l := range s.lessons {
		if !matchLesson(l, f) {
			continue
		}
		if p.IsPaid != nil {
			l.IsPaid = *p.IsPaid
		}
		switch {
		case p.ClearPack:
			l.PackID = nil
		case p.PackID != nil:
			packID := *p.PackID
			l.PackID = &packID
		}
		s.lessons[id] = l
		n++
	}
	return n, nil
}

func (s *Store) DeleteLesson(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lessons[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.lessons, id)
	return nil
}

func (s *Store) DeleteLessons(_ context.Context, f store.LessonFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, l := range s.lessons {
		if matchLesson(l, f) {
			delete(s.lessons, id)
			n++
		}
	}
	return n, nil
}

func matchLesson(l models.Lesson, f store.LessonFilter) bool {
	if f.StudentID != nil && l.StudentID != *f.StudentID {
		return false
	}
	if f.PackID != nil && (l.PackID == nil || *l.PackID != *f.PackID) {
		return false
	}
	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			if id == l.ID {
				return true
			}
		}
		return false
	}
	return true
}

func copyLesson(l models.Lesson) models.Lesson {
	if l.PackID != nil {
		packID := *l.PackID
		l.PackID = &packID
	}
	return l
}

// ==================== Packs ====================

func (s *Store) CreatePack(_ context.Context, p *models.CoursePack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.packs[p.ID] = *p
	return nil
}

func (s *Store) GetPack(_ context.Context, id uuid.UUID) (*models.CoursePack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListPacks(_ context.Context, f store.PackFilter) ([]models.CoursePack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.CoursePack, 0)
	for _, p := range s.packs {
		if f.StudentID == nil || p.StudentID == *f.StudentID {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) SetPackRemaining(_ context.Context, id uuid.UUID, remaining int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packs[id]
	if !ok {
		return store.ErrNotFound
	}
	p.RemainingLessons = remaining
	s.packs[id] = p
	return nil
}

func (s *Store) DeletePack(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packs[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.packs, id)
	return nil
}

func (s *Store) DeletePacks(_ context.Context, f store.PackFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, p := range s.packs {
		if f.StudentID == nil || p.StudentID == *f.StudentID {
			delete(s.packs, id)
			n++
		}
	}
	return n, nil
}

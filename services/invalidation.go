package services

import (
	"sort"

	"github.com/google/uuid"
)

const (
	KeyStudents = "students"
	KeyLessons  = "lessons"
	KeyFinances = "finances"
	KeyAgenda   = "agenda"
)

func StudentKey(id uuid.UUID) string { return "students:" + id.String() }

func LessonsKey(studentID uuid.UUID) string { return "lessons:" + studentID.String() }

func PacksKey(studentID uuid.UUID) string { return "packs:" + studentID.String() }

// Invalidation lists the cached views a mutation made stale.
type Invalidation []string

func invalidate(keys ...string) Invalidation {
	seen := make(map[string]struct{}, len(keys))
	out := make(Invalidation, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (inv Invalidation) Has(key string) bool {
	for _, k := range inv {
		if k == key {
			return true
		}
	}
	return false
}

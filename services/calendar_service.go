package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/anjiri1684/tutor_desk/utils"
	"github.com/google/uuid"
)

// LessonDuration is the fixed length of a recurring lesson, in minutes.
const LessonDuration = 45

type GroupingMode string

const (
	// GroupingPrevious joins a lesson to the current group when it starts
	// before the previous lesson ends.
	GroupingPrevious GroupingMode = "previous"
	// GroupingRunningMax joins a lesson when it starts before any lesson of
	// the group ends.
	GroupingRunningMax GroupingMode = "running"
)

func ParseGroupingMode(s string) (GroupingMode, error) {
	switch GroupingMode(s) {
	case GroupingPrevious, GroupingRunningMax:
		return GroupingMode(s), nil
	case "":
		return GroupingRunningMax, nil
	}
	return "", ValidationFailure("mode: must be one of running, previous")
}

type GridConfig struct {
	StartHour     int            `json:"start_hour"`
	EndHour       int            `json:"end_hour"`
	PixelsPerHour float64        `json:"pixels_per_hour"`
	Days          []time.Weekday `json:"-"`
	Grouping      GroupingMode   `json:"grouping"`
}

func DefaultGridConfig() GridConfig {
	return GridConfig{
		StartHour:     9,
		EndHour:       20,
		PixelsPerHour: 64,
		Days:          []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		Grouping:      GroupingRunningMax,
	}
}

// TimeLabels returns one "HH:00" label per grid hour, end hour included.
func (c GridConfig) TimeLabels() []string {
	labels := make([]string, 0, c.EndHour-c.StartHour+1)
	for h := c.StartHour; h <= c.EndHour; h++ {
		labels = append(labels, fmt.Sprintf("%02d:00", h))
	}
	return labels
}

// CalendarSlot is a lesson occurrence in minutes from midnight.
type CalendarSlot struct {
	StudentID   uuid.UUID
	StudentName string
	CourseHour  string
	Start       int
	End         int
}

type PlacedEvent struct {
	StudentID    uuid.UUID `json:"student_id"`
	StudentName  string    `json:"student_name"`
	CourseHour   string    `json:"course_hour"`
	Start        int       `json:"start"`
	End          int       `json:"end"`
	Columns      int       `json:"columns"`
	Left         int       `json:"left"`
	WidthPercent float64   `json:"width_percent"`
	LeftPercent  float64   `json:"left_percent"`
	TopPx        float64   `json:"top_px"`
	HeightPx     float64   `json:"height_px"`
}

// ParseCourseHour converts "HH:MM" to minutes from midnight.
func ParseCourseHour(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, fmt.Errorf("invalid course hour %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// LayoutDay places one day's lessons side by side when they overlap.
func LayoutDay(slots []CalendarSlot, cfg GridConfig, mode GroupingMode) []PlacedEvent {
	sorted := make([]CalendarSlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	placed := make([]PlacedEvent, 0, len(sorted))
	for _, group := range collisionGroups(sorted, mode) {
		for i, ev := range group {
			columns := 1
			for j := i + 1; j < len(group); j++ {
				if group[j].Start < ev.End {
					columns++
				}
			}
			left := 0
			for j := 0; j < i; j++ {
				if overlaps(group[j], ev) {
					left++
				}
			}
			// running mode keeps the slot index inside the column count
			if mode == GroupingRunningMax && columns < left+1 {
				columns = left + 1
			}

			width := 100 / float64(columns)
			placed = append(placed, PlacedEvent{
				StudentID:    ev.StudentID,
				StudentName:  ev.StudentName,
				CourseHour:   ev.CourseHour,
				Start:        ev.Start,
				End:          ev.End,
				Columns:      columns,
				Left:         left,
				WidthPercent: width,
				LeftPercent:  float64(left) * width,
				TopPx:        float64(ev.Start-cfg.StartHour*60) / 60 * cfg.PixelsPerHour,
				HeightPx:     float64(ev.End-ev.Start) / 60 * cfg.PixelsPerHour,
			})
		}
	}
	return placed
}

func collisionGroups(sorted []CalendarSlot, mode GroupingMode) [][]CalendarSlot {
	var groups [][]CalendarSlot
	var current []CalendarSlot
	groupEnd := 0
	for _, ev := range sorted {
		if len(current) > 0 && ev.Start < groupEnd {
			current = append(current, ev)
		} else {
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = []CalendarSlot{ev}
			groupEnd = ev.End
			continue
		}
		if mode == GroupingPrevious || ev.End > groupEnd {
			groupEnd = ev.End
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func overlaps(a, b CalendarSlot) bool {
	return a.Start < b.End && b.Start < a.End
}

type AgendaDay struct {
	Weekday string        `json:"weekday"`
	Date    string        `json:"date"`
	Events  []PlacedEvent `json:"events"`
}

type Agenda struct {
	WeekStart  string      `json:"week_start"`
	Grid       GridConfig  `json:"grid"`
	TimeLabels []string    `json:"time_labels"`
	Days       []AgendaDay `json:"days"`
	Skipped    []uuid.UUID `json:"skipped,omitempty"`
}

// WeekAgenda lays out the recurring slot of every active student for the
// week containing weekOf. Students with a malformed hour are reported in
// Skipped.
func WeekAgenda(students []models.Student, weekOf time.Time, cfg GridConfig) Agenda {
	monday := utils.StartOfWeek(weekOf)
	agenda := Agenda{
		WeekStart:  monday.Format(utils.DateLayout),
		Grid:       cfg,
		TimeLabels: cfg.TimeLabels(),
		Days:       make([]AgendaDay, 0, len(cfg.Days)),
	}

	byDay := make(map[time.Weekday][]CalendarSlot)
	for _, s := range students {
		if s.Archived || !s.HasCourseSlot() {
			continue
		}
		day, ok := utils.ParseWeekday(*s.CourseDay)
		if !ok {
			agenda.Skipped = append(agenda.Skipped, s.ID)
			continue
		}
		start, err := ParseCourseHour(*s.CourseHour)
		if err != nil {
			agenda.Skipped = append(agenda.Skipped, s.ID)
			continue
		}
		byDay[day] = append(byDay[day], CalendarSlot{
			StudentID:   s.ID,
			StudentName: s.Name,
			CourseHour:  *s.CourseHour,
			Start:       start,
			End:         start + LessonDuration,
		})
	}

	for _, d := range cfg.Days {
		offset := (int(d) + 6) % 7
		agenda.Days = append(agenda.Days, AgendaDay{
			Weekday: utils.WeekdayName(d),
			Date:    monday.AddDate(0, 0, offset).Format(utils.DateLayout),
			Events:  LayoutDay(byDay[d], cfg, cfg.Grouping),
		})
	}
	return agenda
}

type AgendaService struct {
	store store.Store
	grid  GridConfig
	options
}

func NewAgendaService(s store.Store, grid GridConfig, opts ...Option) *AgendaService {
	return &AgendaService{store: s, grid: grid, options: buildOptions(opts)}
}

// Week builds the agenda for the week containing weekOf. A zero weekOf means
// the current week; an empty mode keeps the configured grouping.
func (s *AgendaService) Week(ctx context.Context, weekOf time.Time, mode GroupingMode) (*Agenda, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, StorageFailure("list students", err)
	}
	if weekOf.IsZero() {
		weekOf = s.today()
	}
	cfg := s.grid
	if mode != "" {
		cfg.Grouping = mode
	}

	agenda := WeekAgenda(students, weekOf, cfg)
	for _, id := range agenda.Skipped {
		s.logger.Warn("student skipped from agenda: malformed course slot", slog.String("student_id", id.String()))
	}
	return &agenda, nil
}

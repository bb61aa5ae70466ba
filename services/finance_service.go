package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type PeriodKind string

const (
	PeriodMonth   PeriodKind = "month"
	PeriodQuarter PeriodKind = "quarter"
	PeriodYear    PeriodKind = "year"
)

// declaredAbatement is the flat deduction applied to declared revenue.
var declaredAbatement = decimal.RequireFromString("0.25")

// PeriodQuery selects a reporting window. Month is zero-based (0 = January).
type PeriodQuery struct {
	Kind  PeriodKind `json:"period"`
	Year  int        `json:"year"`
	Month *int       `json:"month,omitempty"`
}

// Window returns the inclusive zero-based month range covered by the query.
func (q PeriodQuery) Window() (start, end int) {
	m := 0
	if q.Month != nil {
		m = *q.Month
	}
	switch q.Kind {
	case PeriodQuarter:
		start = m - m%3
		return start, start + 2
	case PeriodYear:
		return 0, 11
	default:
		return m, m
	}
}

// Resolve fills defaults from now and validates the query.
func (q PeriodQuery) Resolve(now time.Time) (PeriodQuery, error) {
	if q.Kind == "" {
		q.Kind = PeriodMonth
	}
	switch q.Kind {
	case PeriodMonth, PeriodQuarter, PeriodYear:
	default:
		return q, ValidationFailure("period: must be one of month, quarter, year")
	}
	if q.Year == 0 {
		q.Year = now.Year()
	}
	if q.Month == nil {
		m := int(now.Month()) - 1
		q.Month = &m
	}
	if *q.Month < 0 || *q.Month > 11 {
		return q, ValidationFailure("month: must be between 0 and 11")
	}
	return q, nil
}

func (q PeriodQuery) includes(t time.Time) bool {
	start, end := q.Window()
	m := int(t.Month()) - 1
	return t.Year() == q.Year && m >= start && m <= end
}

// PricePointRule tags lessons billed at an exact price.
type PricePointRule struct {
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

var DefaultPricePoints = []PricePointRule{{Label: "nova", Price: 60}}

type PriceBucket struct {
	Price    float64 `json:"price"`
	Lessons  int     `json:"lessons"`
	Students int     `json:"students"`
}

type PricePointStats struct {
	Label   string  `json:"label"`
	Price   float64 `json:"price"`
	Lessons int     `json:"lessons"`
	Revenue float64 `json:"revenue"`
}

type FinanceReport struct {
	Period               PeriodKind        `json:"period"`
	Year                 int               `json:"year"`
	StartMonth           int               `json:"start_month"`
	EndMonth             int               `json:"end_month"`
	TotalLessons         int               `json:"total_lessons"`
	TotalRevenue         float64           `json:"total_revenue"`
	DeclaredRevenue      float64           `json:"declared_revenue"`
	TaxableRevenue       float64           `json:"taxable_revenue"`
	TotalNonTaxedLessons float64           `json:"total_non_taxed_lessons"`
	TotalTotal           float64           `json:"total_total"`
	ByPrice              []PriceBucket     `json:"by_price"`
	PricePoints          []PricePointStats `json:"price_points"`
}

// Aggregate rolls lessons up over the query window. Lesson dates are used as
// given; callers convert them to the reporting time zone first.
func Aggregate(lessons []models.LessonWithStudent, q PeriodQuery, rules []PricePointRule) FinanceReport {
	start, end := q.Window()
	report := FinanceReport{
		Period:     q.Kind,
		Year:       q.Year,
		StartMonth: start,
		EndMonth:   end,
		ByPrice:    make([]PriceBucket, 0),
	}

	total, declared, undeclared := decimal.Zero, decimal.Zero, decimal.Zero
	type bucket struct {
		lessons  int
		students map[string]struct{}
	}
	buckets := make(map[float64]*bucket)
	inWindow := make([]models.LessonWithStudent, 0, len(lessons))

	for _, l := range lessons {
		if !q.includes(l.Date) {
			continue
		}
		inWindow = append(inWindow, l)
		amount := decimal.NewFromFloat(l.Amount)
		total = total.Add(amount)
		if l.Student.Declared {
			declared = declared.Add(amount)
		} else {
			undeclared = undeclared.Add(amount)
		}

		b, ok := buckets[l.Amount]
		if !ok {
			b = &bucket{students: make(map[string]struct{})}
			buckets[l.Amount] = b
		}
		b.lessons++
		b.students[l.StudentID.String()] = struct{}{}
	}

	taxable := declared.Mul(decimal.NewFromInt(1).Sub(declaredAbatement))
	report.TotalLessons = len(inWindow)
	report.TotalRevenue = total.Round(2).InexactFloat64()
	report.DeclaredRevenue = declared.Round(2).InexactFloat64()
	report.TaxableRevenue = taxable.Round(2).InexactFloat64()
	report.TotalNonTaxedLessons = undeclared.Round(2).InexactFloat64()
	report.TotalTotal = taxable.Add(undeclared).Round(2).InexactFloat64()

	for price, b := range buckets {
		report.ByPrice = append(report.ByPrice, PriceBucket{Price: price, Lessons: b.lessons, Students: len(b.students)})
	}
	sort.Slice(report.ByPrice, func(i, j int) bool { return report.ByPrice[i].Price < report.ByPrice[j].Price })

	report.PricePoints = make([]PricePointStats, 0, len(rules))
	for _, r := range rules {
		report.PricePoints = append(report.PricePoints, PricePointStatsFor(inWindow, r))
	}
	return report
}

// PricePointStatsFor counts the lessons billed exactly at the rule's price.
func PricePointStatsFor(lessons []models.LessonWithStudent, rule PricePointRule) PricePointStats {
	revenue := decimal.Zero
	stats := PricePointStats{Label: rule.Label, Price: rule.Price}
	for _, l := range lessons {
		if l.Amount == rule.Price {
			stats.Lessons++
			revenue = revenue.Add(decimal.NewFromFloat(l.Amount))
		}
	}
	stats.Revenue = revenue.Round(2).InexactFloat64()
	return stats
}

// AvailableYears lists the distinct lesson years, newest first, always
// including the year of now.
func AvailableYears(lessons []models.LessonWithStudent, now time.Time) []int {
	seen := map[int]struct{}{now.Year(): {}}
	for _, l := range lessons {
		seen[l.Date.Year()] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

type Dashboard struct {
	ActiveStudents   int     `json:"active_students"`
	MonthlyRevenue   float64 `json:"monthly_revenue"`
	QuarterlyRevenue float64 `json:"quarterly_revenue"`
	Year             int     `json:"year"`
	Month            int     `json:"month"`
}

func BuildDashboard(students []models.Student, lessons []models.LessonWithStudent, now time.Time) Dashboard {
	d := Dashboard{Year: now.Year(), Month: int(now.Month()) - 1}
	for _, s := range students {
		if !s.Archived {
			d.ActiveStudents++
		}
	}
	month := Aggregate(lessons, PeriodQuery{Kind: PeriodMonth, Year: d.Year, Month: &d.Month}, nil)
	quarter := Aggregate(lessons, PeriodQuery{Kind: PeriodQuarter, Year: d.Year, Month: &d.Month}, nil)
	d.MonthlyRevenue = month.TotalRevenue
	d.QuarterlyRevenue = quarter.TotalRevenue
	return d
}

type FinanceService struct {
	store store.Store
	rules []PricePointRule
	options
}

func NewFinanceService(s store.Store, rules []PricePointRule, opts ...Option) *FinanceService {
	if len(rules) == 0 {
		rules = DefaultPricePoints
	}
	return &FinanceService{store: s, rules: rules, options: buildOptions(opts)}
}

func (s *FinanceService) Report(ctx context.Context, q PeriodQuery) (*FinanceReport, error) {
	q, err := q.Resolve(s.today())
	if err != nil {
		return nil, err
	}
	lessons, err := s.localLessons(ctx)
	if err != nil {
		return nil, err
	}
	report := Aggregate(lessons, q, s.rules)
	return &report, nil
}

func (s *FinanceService) Years(ctx context.Context) ([]int, error) {
	lessons, err := s.localLessons(ctx)
	if err != nil {
		return nil, err
	}
	return AvailableYears(lessons, s.today()), nil
}

func (s *FinanceService) Dashboard(ctx context.Context) (*Dashboard, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, StorageFailure("list students", err)
	}
	lessons, err := s.localLessons(ctx)
	if err != nil {
		return nil, err
	}
	d := BuildDashboard(students, lessons, s.today())
	return &d, nil
}

// Export renders the report for q as an xlsx workbook.
func (s *FinanceService) Export(ctx context.Context, q PeriodQuery) ([]byte, error) {
	report, err := s.Report(ctx, q)
	if err != nil {
		return nil, err
	}
	return ReportWorkbook(*report)
}

func (s *FinanceService) localLessons(ctx context.Context) ([]models.LessonWithStudent, error) {
	lessons, err := lessonsWithStudents(ctx, s.store)
	if err != nil {
		return nil, err
	}
	for i := range lessons {
		lessons[i].Date = lessons[i].Date.In(s.location)
	}
	return lessons, nil
}

// ReportWorkbook writes a summary sheet and a per-price sheet.
func ReportWorkbook(r FinanceReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Finances"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	rows := [][]interface{}{
		{"Période", string(r.Period)},
		{"Année", r.Year},
		{"Mois", fmt.Sprintf("%d-%d", r.StartMonth+1, r.EndMonth+1)},
		{"Nombre de cours", r.TotalLessons},
		{"Chiffre d'affaires", r.TotalRevenue},
		{"Revenus déclarés", r.DeclaredRevenue},
		{"Revenus imposables", r.TaxableRevenue},
		{"Cours non déclarés", r.TotalNonTaxedLessons},
		{"Total", r.TotalTotal},
	}
	if err := writeRows(f, summary, 1, rows); err != nil {
		return nil, err
	}

	const prices = "Tarifs"
	if _, err := f.NewSheet(prices); err != nil {
		return nil, err
	}
	priceRows := [][]interface{}{{"Tarif", "Cours", "Élèves"}}
	for _, b := range r.ByPrice {
		priceRows = append(priceRows, []interface{}{b.Price, b.Lessons, b.Students})
	}
	if err := writeRows(f, prices, 1, priceRows); err != nil {
		return nil, err
	}

	pointRows := make([][]interface{}, 0, len(r.PricePoints))
	for _, p := range r.PricePoints {
		pointRows = append(pointRows, []interface{}{p.Label, p.Lessons, p.Revenue})
	}
	if err := writeRows(f, prices, len(r.ByPrice)+3, pointRows); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, firstRow int, rows [][]interface{}) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, firstRow+i)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("xlsx %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

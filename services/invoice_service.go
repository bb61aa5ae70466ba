package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/anjiri1684/tutor_desk/utils"
	"github.com/shopspring/decimal"
)

const (
	DefaultServiceDescription = "Cours de musique à domicile"
	DefaultPaymentMethod      = "Virement bancaire"
)

//go:embed templates/*.html
var templateFS embed.FS

var postalCodeSplit = regexp.MustCompile(`\s+\d{5}`)

var documentTemplates = template.Must(template.New("documents").Funcs(template.FuncMap{
	"euros":        func(v float64) string { return fmt.Sprintf("%.2f €", v) },
	"addressLines": addressLines,
	"yearServices": servicesOfYear,
}).ParseFS(templateFS, "templates/*.html"))

// Issuer identifies the business issuing invoices and attestations.
type Issuer struct {
	CompanyName     string
	CompanyAddress  string
	Siret           string
	AgreementNumber string
}

// ComposeServices maps each lesson to one invoice line.
func ComposeServices(lessons []models.Lesson) []models.Service {
	services := make([]models.Service, 0, len(lessons))
	for _, l := range lessons {
		description := l.Comment
		if strings.TrimSpace(description) == "" {
			description = DefaultServiceDescription
		}
		services = append(services, models.Service{
			ID:              l.ID.String(),
			Date:            l.Date.Format(utils.DateLayout),
			Description:     description,
			NumberOfLessons: 1,
			Rate:            l.Amount,
		})
	}
	return services
}

func InvoiceTotal(services []models.Service) float64 {
	total := decimal.Zero
	for _, s := range services {
		total = total.Add(decimal.NewFromInt(int64(s.NumberOfLessons)).Mul(decimal.NewFromFloat(s.Rate)))
	}
	return total.Round(2).InexactFloat64()
}

// AttestationTotal sums the lines dated in year.
func AttestationTotal(services []models.Service, year int) float64 {
	return InvoiceTotal(servicesOfYear(services, year))
}

func servicesOfYear(services []models.Service, year int) []models.Service {
	prefix := strconv.Itoa(year)
	out := make([]models.Service, 0, len(services))
	for _, s := range services {
		if strings.HasPrefix(s.Date, prefix) {
			out = append(out, s)
		}
	}
	return out
}

// addressLines splits an address on commas and before a postal code.
func addressLines(address string) []string {
	var lines []string
	for _, part := range strings.Split(address, ",") {
		for {
			loc := postalCodeSplit.FindStringIndex(part)
			if loc == nil || loc[0] == 0 {
				break
			}
			lines = append(lines, strings.TrimSpace(part[:loc[0]]))
			part = part[loc[0]:]
		}
		if p := strings.TrimSpace(part); p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}

func RenderInvoiceHTML(data models.InvoiceData) (string, error) {
	return renderDocument("invoice.html", data)
}

func RenderAttestationHTML(data models.InvoiceData) (string, error) {
	return renderDocument("attestation.html", data)
}

func renderDocument(name string, data models.InvoiceData) (string, error) {
	var rendered bytes.Buffer
	if err := documentTemplates.ExecuteTemplate(&rendered, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return rendered.String(), nil
}

// InvoiceRequest carries the editable fields of an invoice. Zero values fall
// back to defaults derived from the student and the current date.
type InvoiceRequest struct {
	InvoiceNumber     string           `json:"invoice_number" validate:"max=32"`
	InvoiceDate       string           `json:"invoice_date"`
	PaymentMethod     string           `json:"payment_method" validate:"max=64"`
	AttestationYear   int              `json:"attestation_year" validate:"omitempty,gte=2000,lte=2100"`
	ShowAgreementInfo *bool            `json:"show_agreement_info"`
	ClientName        string           `json:"client_name" validate:"max=255"`
	ClientAddress     string           `json:"client_address"`
	LessonIDs         []string         `json:"lesson_ids"`
	Services          []models.Service `json:"services" validate:"dive"`
}

type Document struct {
	Filename string `json:"filename"`
	PDF      []byte `json:"-"`
	URL      string `json:"url,omitempty"`
}

type InvoiceService struct {
	store    store.Store
	issuer   Issuer
	renderer PDFRenderer
	archive  DocumentArchive
	options
}

// NewInvoiceService builds the composer. archive may be nil.
func NewInvoiceService(s store.Store, issuer Issuer, renderer PDFRenderer, archive DocumentArchive, opts ...Option) *InvoiceService {
	return &InvoiceService{
		store:    s,
		issuer:   issuer,
		renderer: renderer,
		archive:  archive,
		options:  buildOptions(opts),
	}
}

// Compose builds the invoice data for a student from their lessons, or from
// the lines given in the request.
func (s *InvoiceService) Compose(ctx context.Context, studentRaw string, req InvoiceRequest) (*models.InvoiceData, error) {
	studentID, err := parseID("student_id", studentRaw)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidInput(err)
	}
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fromStore("get student", "student", err)
	}

	services := req.Services
	if len(services) == 0 {
		filter := store.LessonFilter{StudentID: &studentID}
		for _, raw := range req.LessonIDs {
			id, err := parseID("lesson_id", raw)
			if err != nil {
				return nil, err
			}
			filter.IDs = append(filter.IDs, id)
		}
		lessons, err := s.store.ListLessons(ctx, filter)
		if err != nil {
			return nil, StorageFailure("list lessons", err)
		}
		sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Date.Before(lessons[j].Date) })
		services = ComposeServices(lessons)
	}

	today := s.today()
	data := &models.InvoiceData{
		CompanyName:       s.issuer.CompanyName,
		CompanyAddress:    s.issuer.CompanyAddress,
		Siret:             s.issuer.Siret,
		AgreementNumber:   s.issuer.AgreementNumber,
		ClientName:        firstNonEmpty(req.ClientName, student.Name),
		ClientAddress:     req.ClientAddress,
		InvoiceNumber:     firstNonEmpty(req.InvoiceNumber, utils.GenerateInvoiceNumber(today)),
		InvoiceDate:       firstNonEmpty(req.InvoiceDate, today.Format(utils.DateLayout)),
		PaymentMethod:     firstNonEmpty(req.PaymentMethod, DefaultPaymentMethod),
		AttestationYear:   req.AttestationYear,
		ShowAgreementInfo: true,
		Services:          services,
	}
	if data.ClientAddress == "" && student.Address != nil {
		data.ClientAddress = *student.Address
	}
	if data.AttestationYear == 0 {
		data.AttestationYear = today.Year()
	}
	if req.ShowAgreementInfo != nil {
		data.ShowAgreementInfo = *req.ShowAgreementInfo
	}
	data.Total = InvoiceTotal(services)
	data.AttestationTotal = AttestationTotal(services, data.AttestationYear)
	return data, nil
}

func (s *InvoiceService) InvoiceHTML(ctx context.Context, studentRaw string, req InvoiceRequest) (string, error) {
	data, err := s.Compose(ctx, studentRaw, req)
	if err != nil {
		return "", err
	}
	html, err := RenderInvoiceHTML(*data)
	if err != nil {
		return "", StorageFailure("render invoice", err)
	}
	return html, nil
}

func (s *InvoiceService) AttestationHTML(ctx context.Context, studentRaw string, req InvoiceRequest) (string, error) {
	data, err := s.Compose(ctx, studentRaw, req)
	if err != nil {
		return "", err
	}
	html, err := RenderAttestationHTML(*data)
	if err != nil {
		return "", StorageFailure("render attestation", err)
	}
	return html, nil
}

func (s *InvoiceService) InvoicePDF(ctx context.Context, studentRaw string, req InvoiceRequest) (*Document, error) {
	data, err := s.Compose(ctx, studentRaw, req)
	if err != nil {
		return nil, err
	}
	html, err := RenderInvoiceHTML(*data)
	if err != nil {
		return nil, StorageFailure("render invoice", err)
	}
	return s.printPDF(ctx, "facture_"+data.InvoiceNumber, html)
}

func (s *InvoiceService) AttestationPDF(ctx context.Context, studentRaw string, req InvoiceRequest) (*Document, error) {
	data, err := s.Compose(ctx, studentRaw, req)
	if err != nil {
		return nil, err
	}
	html, err := RenderAttestationHTML(*data)
	if err != nil {
		return nil, StorageFailure("render attestation", err)
	}
	name := fmt.Sprintf("attestation_%d_%s", data.AttestationYear, slug(data.ClientName))
	return s.printPDF(ctx, name, html)
}

func (s *InvoiceService) printPDF(ctx context.Context, name, html string) (*Document, error) {
	if s.renderer == nil {
		return nil, StorageFailure("render pdf", fmt.Errorf("no pdf renderer configured"))
	}
	pdf, err := s.renderer.RenderPDF(ctx, html)
	if err != nil {
		return nil, StorageFailure("render pdf", err)
	}

	doc := &Document{Filename: name + ".pdf", PDF: pdf}
	if s.archive != nil {
		url, err := s.archive.Upload(ctx, name, pdf)
		if err != nil {
			s.logger.Error("failed to archive document", slog.String("name", name), slog.Any("error", err))
		} else {
			doc.URL = url
		}
	}
	return doc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

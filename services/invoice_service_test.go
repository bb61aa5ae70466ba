package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store/memory"
	"github.com/google/uuid"
)

type fakeRenderer struct {
	html string
	err  error
}

func (r *fakeRenderer) RenderPDF(_ context.Context, html string) ([]byte, error) {
	r.html = html
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4"), nil
}

type fakeArchive struct {
	names []string
	err   error
}

func (a *fakeArchive) Upload(_ context.Context, name string, _ []byte) (string, error) {
	a.names = append(a.names, name)
	if a.err != nil {
		return "", a.err
	}
	return "https://files.example.com/" + name, nil
}

func TestComposeServices(t *testing.T) {
	lessons := []models.Lesson{
		{ID: uuid.New(), Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Amount: 60},
		{ID: uuid.New(), Date: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), Amount: 45, Comment: "Solfège"},
	}

	got := ComposeServices(lessons)
	if len(got) != 2 {
		t.Fatalf("got %d services, want 2", len(got))
	}
	if got[0].Description != DefaultServiceDescription || got[0].Date != "2024-03-04" || got[0].Rate != 60 {
		t.Errorf("first line: got %+v", got[0])
	}
	if got[1].Description != "Solfège" || got[1].NumberOfLessons != 1 {
		t.Errorf("second line: got %+v", got[1])
	}
}

func TestInvoiceTotals(t *testing.T) {
	services := []models.Service{
		{Date: "2023-12-18", NumberOfLessons: 1, Rate: 60},
		{Date: "2024-01-08", NumberOfLessons: 2, Rate: 30.1},
		{Date: "2024-01-15", NumberOfLessons: 1, Rate: 0.2},
	}

	if got := InvoiceTotal(services); got != 120.4 {
		t.Errorf("InvoiceTotal: got %v, want 120.4", got)
	}
	tests := []struct {
		year int
		want float64
	}{
		{2023, 60},
		{2024, 60.4},
		{2022, 0},
	}
	for _, tt := range tests {
		if got := AttestationTotal(services, tt.year); got != tt.want {
			t.Errorf("AttestationTotal(%d): got %v, want %v", tt.year, got, tt.want)
		}
	}
}

func TestAddressLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"12 rue des Lilas 75011 Paris", []string{"12 rue des Lilas", "75011 Paris"}},
		{"Bât. B, 12 rue des Lilas 75011 Paris", []string{"Bât. B", "12 rue des Lilas", "75011 Paris"}},
		{"75011 Paris", []string{"75011 Paris"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := addressLines(tt.in)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderDocuments(t *testing.T) {
	issuer := testIssuer
	data := models.InvoiceData{
		CompanyName:       issuer.CompanyName,
		CompanyAddress:    issuer.CompanyAddress,
		Siret:             issuer.Siret,
		AgreementNumber:   issuer.AgreementNumber,
		ClientName:        "Alice Martin",
		ClientAddress:     "12 rue des Lilas 75011 Paris",
		InvoiceNumber:     "F202403-ABCD",
		InvoiceDate:       "2024-03-20",
		PaymentMethod:     DefaultPaymentMethod,
		AttestationYear:   2024,
		ShowAgreementInfo: true,
		Services: []models.Service{
			{Date: "2023-12-18", Description: "Ancien cours", NumberOfLessons: 1, Rate: 60},
			{Date: "2024-03-04", Description: DefaultServiceDescription, NumberOfLessons: 1, Rate: 60},
		},
		Total:            120,
		AttestationTotal: 60,
	}

	invoice, err := RenderInvoiceHTML(data)
	if err != nil {
		t.Fatalf("RenderInvoiceHTML: %v", err)
	}
	for _, want := range []string{"FACTURE", "F202403-ABCD", "120.00 €", "N° Agrément SAP : 123456789", "75011 Paris"} {
		if !strings.Contains(invoice, want) {
			t.Errorf("invoice missing %q", want)
		}
	}

	data.ShowAgreementInfo = false
	invoice, err = RenderInvoiceHTML(data)
	if err != nil {
		t.Fatalf("RenderInvoiceHTML: %v", err)
	}
	if strings.Contains(invoice, "Agrément") {
		t.Error("invoice shows agreement info although disabled")
	}

	attestation, err := RenderAttestationHTML(data)
	if err != nil {
		t.Fatalf("RenderAttestationHTML: %v", err)
	}
	for _, want := range []string{"Attestation Fiscale Annuelle", "60.00 €", "199 sexdecies", "2024-03-04"} {
		if !strings.Contains(attestation, want) {
			t.Errorf("attestation missing %q", want)
		}
	}
	if strings.Contains(attestation, "Ancien cours") {
		t.Error("attestation lists a line from another year")
	}
}

func newInvoiceFixture(t *testing.T, renderer PDFRenderer, archive DocumentArchive) (*InvoiceService, models.Student, []*models.Lesson) {
	t.Helper()
	st := memory.New()
	led := NewLedgerService(st, testOptions()...)
	student := seedStudent(t, st, "Alice Martin", 60, true)
	lessons := []*models.Lesson{
		createLesson(t, led, student.ID, "2024-03-11", nil),
		createLesson(t, led, student.ID, "2024-03-04", nil),
		createLesson(t, led, student.ID, "2023-12-18", nil),
	}
	return NewInvoiceService(st, testIssuer, renderer, archive, testOptions()...), student, lessons
}

func TestInvoiceServiceComposeDefaults(t *testing.T) {
	svc, student, _ := newInvoiceFixture(t, nil, nil)

	data, err := svc.Compose(context.Background(), student.ID.String(), InvoiceRequest{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if data.ClientName != "Alice Martin" {
		t.Errorf("ClientName: got %q", data.ClientName)
	}
	if !strings.HasPrefix(data.InvoiceNumber, "F202403-") {
		t.Errorf("InvoiceNumber: got %q, want prefix F202403-", data.InvoiceNumber)
	}
	if data.InvoiceDate != "2024-03-20" || data.PaymentMethod != DefaultPaymentMethod || data.AttestationYear != 2024 {
		t.Errorf("defaults: got date=%q method=%q year=%d", data.InvoiceDate, data.PaymentMethod, data.AttestationYear)
	}
	if !data.ShowAgreementInfo {
		t.Error("ShowAgreementInfo should default to true")
	}
	if len(data.Services) != 3 || data.Services[0].Date != "2023-12-18" || data.Services[2].Date != "2024-03-11" {
		t.Errorf("Services not in ascending date order: %+v", data.Services)
	}
	if data.Total != 180 || data.AttestationTotal != 120 {
		t.Errorf("totals: got %v and %v, want 180 and 120", data.Total, data.AttestationTotal)
	}
}

func TestInvoiceServiceComposeOverrides(t *testing.T) {
	svc, student, lessons := newInvoiceFixture(t, nil, nil)
	hide := false

	data, err := svc.Compose(context.Background(), student.ID.String(), InvoiceRequest{
		InvoiceNumber:     "F2023-0042",
		ClientName:        "Famille Martin",
		AttestationYear:   2023,
		ShowAgreementInfo: &hide,
		LessonIDs:         []string{lessons[2].ID.String()},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if data.InvoiceNumber != "F2023-0042" || data.ClientName != "Famille Martin" || data.ShowAgreementInfo {
		t.Errorf("overrides ignored: %+v", data)
	}
	if len(data.Services) != 1 || data.Total != 60 || data.AttestationTotal != 60 {
		t.Errorf("got %d services, total %v, attestation %v", len(data.Services), data.Total, data.AttestationTotal)
	}

	data, err = svc.Compose(context.Background(), student.ID.String(), InvoiceRequest{
		Services: []models.Service{{Date: "2024-01-02", Description: "Stage", NumberOfLessons: 3, Rate: 50}},
	})
	if err != nil {
		t.Fatalf("Compose with lines: %v", err)
	}
	if data.Total != 150 {
		t.Errorf("Total: got %v, want 150", data.Total)
	}
}

func TestInvoiceServiceComposeErrors(t *testing.T) {
	svc, student, _ := newInvoiceFixture(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		student string
		req     InvoiceRequest
		want    ErrorKind
	}{
		{"malformed student", "nope", InvoiceRequest{}, KindInvalidReference},
		{"unknown student", uuid.NewString(), InvoiceRequest{}, KindNotFound},
		{"malformed lesson id", student.ID.String(), InvoiceRequest{LessonIDs: []string{"x"}}, KindInvalidReference},
		{"negative line", student.ID.String(), InvoiceRequest{Services: []models.Service{{NumberOfLessons: -1}}}, KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Compose(ctx, tt.student, tt.req)
			if !IsKind(err, tt.want) {
				t.Errorf("got %v, want %s", err, tt.want)
			}
		})
	}
}

func TestInvoiceServicePDF(t *testing.T) {
	renderer := &fakeRenderer{}
	archive := &fakeArchive{}
	svc, student, _ := newInvoiceFixture(t, renderer, archive)
	ctx := context.Background()

	doc, err := svc.InvoicePDF(ctx, student.ID.String(), InvoiceRequest{InvoiceNumber: "F202403-TEST"})
	if err != nil {
		t.Fatalf("InvoicePDF: %v", err)
	}
	if doc.Filename != "facture_F202403-TEST.pdf" {
		t.Errorf("Filename: got %q", doc.Filename)
	}
	if doc.URL != "https://files.example.com/facture_F202403-TEST" {
		t.Errorf("URL: got %q", doc.URL)
	}
	if !strings.Contains(renderer.html, "FACTURE") {
		t.Error("renderer did not receive the invoice html")
	}

	doc, err = svc.AttestationPDF(ctx, student.ID.String(), InvoiceRequest{})
	if err != nil {
		t.Fatalf("AttestationPDF: %v", err)
	}
	if doc.Filename != "attestation_2024_alice_martin.pdf" {
		t.Errorf("Filename: got %q", doc.Filename)
	}
}

func TestInvoiceServicePDFFailures(t *testing.T) {
	ctx := context.Background()

	archive := &fakeArchive{err: errors.New("quota exceeded")}
	svc, student, _ := newInvoiceFixture(t, &fakeRenderer{}, archive)
	doc, err := svc.InvoicePDF(ctx, student.ID.String(), InvoiceRequest{})
	if err != nil {
		t.Fatalf("archive failure should not fail the document: %v", err)
	}
	if doc.URL != "" || len(doc.PDF) == 0 {
		t.Errorf("got url=%q pdf=%d bytes", doc.URL, len(doc.PDF))
	}

	svc, student, _ = newInvoiceFixture(t, &fakeRenderer{err: errors.New("chrome missing")}, nil)
	if _, err := svc.InvoicePDF(ctx, student.ID.String(), InvoiceRequest{}); !IsKind(err, KindStorage) {
		t.Errorf("renderer failure: got %v, want storage failure", err)
	}

	svc, student, _ = newInvoiceFixture(t, nil, nil)
	if _, err := svc.AttestationPDF(ctx, student.ID.String(), InvoiceRequest{}); !IsKind(err, KindStorage) {
		t.Errorf("missing renderer: got %v, want storage failure", err)
	}
}

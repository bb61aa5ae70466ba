package models

// Service is one invoice line.
type Service struct {
	ID              string  `json:"id"`
	Date            string  `json:"date"`
	Description     string  `json:"description"`
	NumberOfLessons int     `json:"number_of_lessons" validate:"gte=0"`
	Rate            float64 `json:"rate" validate:"gte=0"`
}

func (s Service) Amount() float64 {
	return float64(s.NumberOfLessons) * s.Rate
}

// InvoiceData is composed on demand and never persisted.
type InvoiceData struct {
	CompanyName       string    `json:"company_name"`
	CompanyAddress    string    `json:"company_address"`
	Siret             string    `json:"siret"`
	AgreementNumber   string    `json:"agreement_number"`
	ClientName        string    `json:"client_name"`
	ClientAddress     string    `json:"client_address"`
	InvoiceNumber     string    `json:"invoice_number"`
	InvoiceDate       string    `json:"invoice_date"`
	PaymentMethod     string    `json:"payment_method"`
	AttestationYear   int       `json:"attestation_year"`
	ShowAgreementInfo bool      `json:"show_agreement_info"`
	Services          []Service `json:"services"`
	Total             float64   `json:"total"`
	AttestationTotal  float64   `json:"attestation_total"`
}

package utils

import (
	"fmt"
	"math/rand"
	"time"
)

const invoiceSuffixLength = 4
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// InvoiceNumberPrefix is the month prefix shared by every invoice issued in t's month.
func InvoiceNumberPrefix(t time.Time) string {
	return fmt.Sprintf("F%04d%02d-", t.Year(), int(t.Month()))
}

// GenerateInvoiceNumber returns F<YYYY><MM>-<XXXX> with a random suffix.
func GenerateInvoiceNumber(t time.Time) string {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	b := make([]byte, invoiceSuffixLength)
	for i := range b {
		b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
	}
	return InvoiceNumberPrefix(t) + string(b)
}

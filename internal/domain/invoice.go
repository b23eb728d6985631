package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of an invoice
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "Paid"
	PaymentStatusUnpaid PaymentStatus = "Unpaid"
)

// Valid reports whether the status is one of the known values
func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPaid || s == PaymentStatusUnpaid
}

// DefaultPDFMimeType is used when an upload does not report a content type
const DefaultPDFMimeType = "application/pdf"

// AmountScale is the number of fractional digits kept for invoice amounts
const AmountScale = 2

// Attachment is the PDF stored together with an invoice.
// Data is nil when the record was read without attachment bytes.
type Attachment struct {
	Data     []byte
	FileName string
	MimeType string
	Size     int64
}

// NewAttachment builds an attachment from an in-memory upload
func NewAttachment(data []byte, fileName, mimeType string, size int64) *Attachment {
	if mimeType == "" {
		mimeType = DefaultPDFMimeType
	}
	if size <= 0 {
		size = int64(len(data))
	}
	return &Attachment{
		Data:     data,
		FileName: fileName,
		MimeType: mimeType,
		Size:     size,
	}
}

// ContentLength returns the stored size, or the byte length when no size was stored
func (a *Attachment) ContentLength() int64 {
	if a.Size > 0 {
		return a.Size
	}
	return int64(len(a.Data))
}

// withoutData returns a copy that keeps the metadata but drops the bytes
func (a *Attachment) withoutData() *Attachment {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Data = nil
	return &cp
}

// Invoice is the single entity managed by the service
type Invoice struct {
	ID            string
	InvoiceNumber string
	CustomerEmail string
	InvoiceDate   time.Time
	DueDate       time.Time
	PaymentStatus PaymentStatus
	InvoiceAmount decimal.Decimal
	Attachment    *Attachment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasAttachment reports whether a PDF was uploaded for the invoice
func (i *Invoice) HasAttachment() bool {
	return i.Attachment != nil
}

// WithoutAttachmentData returns a copy of the invoice without the raw PDF bytes
func (i *Invoice) WithoutAttachmentData() *Invoice {
	cp := *i
	cp.Attachment = i.Attachment.withoutData()
	return &cp
}

// AttachmentFileName returns the original upload name or invoice-{number}.pdf
func (i *Invoice) AttachmentFileName() string {
	if i.Attachment != nil && i.Attachment.FileName != "" {
		return i.Attachment.FileName
	}
	return "invoice-" + i.InvoiceNumber + ".pdf"
}

// Factory supplies identifiers and timestamps to the store
type Factory struct {
	NewID func() string
	Now   func() time.Time
}

// DefaultFactory generates UUIDs and uses the wall clock
func DefaultFactory() Factory {
	return Factory{
		NewID: uuid.NewString,
		Now:   time.Now,
	}
}

// NormalizeInvoiceNumber trims and upper-cases an invoice number
func NormalizeInvoiceNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeAmount rounds an amount to the stored scale
func NormalizeAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(AmountScale)
}

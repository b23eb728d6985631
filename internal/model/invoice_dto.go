package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ridwanfathin/invoice-records-service/internal/domain"
)

// DateFormat is the calendar date layout accepted next to RFC3339
const DateFormat = "2006-01-02"

// InvoiceRequest is the JSON body of create and update requests.
// Omitted fields are nil; on create they take their defaults, on update they keep the stored value.
type InvoiceRequest struct {
	InvoiceNumber *string `json:"invoiceNumber" example:"INV-001"`
	CustomerEmail *string `json:"customerEmail" example:"customer@example.com"`
	InvoiceDate   *string `json:"invoiceDate" example:"2024-01-01"`
	DueDate       *string `json:"dueDate" example:"2024-01-31"`
	PaymentStatus *string `json:"paymentStatus" example:"Unpaid" enums:"Paid,Unpaid"`
	InvoiceAmount *Amount `json:"invoiceAmount" swaggertype:"string" example:"100.50"`
}

// Amount is a decimal amount sent either as a JSON number or a JSON string.
// It keeps the literal text so the handler parses it with full precision.
type Amount string

// UnmarshalJSON accepts 100.5 and "100.5" alike
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invoiceAmount must be a number or a string: %w", err)
	}
	*a = Amount(n)
	return nil
}

// InvoiceResponse is the wire form of an invoice. PDF bytes are never included.
type InvoiceResponse struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoiceNumber"`
	CustomerEmail string    `json:"customerEmail"`
	InvoiceDate   time.Time `json:"invoiceDate"`
	DueDate       time.Time `json:"dueDate"`
	PaymentStatus string    `json:"paymentStatus"`
	InvoiceAmount string    `json:"invoiceAmount"`
	HasPDF        bool      `json:"hasPdf"`
	PDFFileName   string    `json:"pdfFileName,omitempty"`
	PDFMimeType   string    `json:"pdfMimeType,omitempty"`
	PDFSize       int64     `json:"pdfSize,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// InvoiceListResponse wraps a list of invoices
type InvoiceListResponse struct {
	Invoices []InvoiceResponse `json:"invoices"`
	Total    int               `json:"total"`
}

// FromDomain converts a domain Invoice to an InvoiceResponse
func (r *InvoiceResponse) FromDomain(invoice *domain.Invoice) {
	r.ID = invoice.ID
	r.InvoiceNumber = invoice.InvoiceNumber
	r.CustomerEmail = invoice.CustomerEmail
	r.InvoiceDate = invoice.InvoiceDate
	r.DueDate = invoice.DueDate
	r.PaymentStatus = string(invoice.PaymentStatus)
	r.InvoiceAmount = invoice.InvoiceAmount.StringFixed(domain.AmountScale)
	r.CreatedAt = invoice.CreatedAt
	r.UpdatedAt = invoice.UpdatedAt

	if a := invoice.Attachment; a != nil {
		r.HasPDF = true
		r.PDFFileName = a.FileName
		r.PDFMimeType = a.MimeType
		r.PDFSize = a.ContentLength()
	}
}

// NewInvoiceResponse converts a single invoice
func NewInvoiceResponse(invoice *domain.Invoice) InvoiceResponse {
	var r InvoiceResponse
	r.FromDomain(invoice)
	return r
}

// NewInvoiceListResponse converts a list of invoices, keeping their order
func NewInvoiceListResponse(invoices []domain.Invoice) InvoiceListResponse {
	items := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		items[i].FromDomain(&invoices[i])
	}
	return InvoiceListResponse{
		Invoices: items,
		Total:    len(items),
	}
}

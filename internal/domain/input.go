package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// InvoiceInput carries the fields of a new invoice.
// Nil pointers select the documented defaults.
type InvoiceInput struct {
	InvoiceNumber string
	CustomerEmail string
	InvoiceDate   *time.Time
	DueDate       *time.Time
	PaymentStatus *PaymentStatus
	InvoiceAmount *decimal.Decimal
	Attachment    *Attachment
}

// InvoicePatch is a partial update. Every nil slot keeps the stored value.
// A non-nil Attachment replaces the stored one as a whole.
type InvoicePatch struct {
	InvoiceNumber *string
	CustomerEmail *string
	InvoiceDate   *time.Time
	DueDate       *time.Time
	PaymentStatus *PaymentStatus
	InvoiceAmount *decimal.Decimal
	Attachment    *Attachment
}

// IsEmpty reports whether the patch touches nothing
func (p InvoicePatch) IsEmpty() bool {
	return p.InvoiceNumber == nil && p.CustomerEmail == nil && p.InvoiceDate == nil &&
		p.DueDate == nil && p.PaymentStatus == nil && p.InvoiceAmount == nil && p.Attachment == nil
}

// NewInvoice normalizes and validates the input and returns the record to persist
func NewInvoice(in InvoiceInput, f Factory) (*Invoice, error) {
	return buildInvoice(in, f.NewID(), f.Now())
}

// Validate reports the errors NewInvoice would return, without drawing an id
func (in InvoiceInput) Validate() error {
	_, err := buildInvoice(in, "", time.Now())
	return err
}

func buildInvoice(in InvoiceInput, id string, now time.Time) (*Invoice, error) {
	inv := &Invoice{
		ID:            id,
		InvoiceNumber: NormalizeInvoiceNumber(in.InvoiceNumber),
		CustomerEmail: NormalizeEmail(in.CustomerEmail),
		InvoiceDate:   now,
		PaymentStatus: PaymentStatusUnpaid,
		InvoiceAmount: NormalizeAmount(decimal.Zero),
		Attachment:    in.Attachment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.InvoiceDate != nil {
		inv.InvoiceDate = *in.InvoiceDate
	}
	if in.DueDate != nil {
		inv.DueDate = *in.DueDate
	}
	if in.PaymentStatus != nil {
		inv.PaymentStatus = *in.PaymentStatus
	}
	if in.InvoiceAmount != nil {
		inv.InvoiceAmount = NormalizeAmount(*in.InvoiceAmount)
	}

	if err := inv.validate(in.Attachment); err != nil {
		return nil, err
	}
	return inv, nil
}

// Apply merges the patch into a copy of inv, normalizing touched fields
func (p InvoicePatch) Apply(inv *Invoice, now time.Time) (*Invoice, error) {
	next := *inv
	if p.InvoiceNumber != nil {
		next.InvoiceNumber = NormalizeInvoiceNumber(*p.InvoiceNumber)
	}
	if p.CustomerEmail != nil {
		next.CustomerEmail = NormalizeEmail(*p.CustomerEmail)
	}
	if p.InvoiceDate != nil {
		next.InvoiceDate = *p.InvoiceDate
	}
	if p.DueDate != nil {
		next.DueDate = *p.DueDate
	}
	if p.PaymentStatus != nil {
		next.PaymentStatus = *p.PaymentStatus
	}
	if p.InvoiceAmount != nil {
		next.InvoiceAmount = NormalizeAmount(*p.InvoiceAmount)
	}
	if p.Attachment != nil {
		next.Attachment = p.Attachment
	}
	next.UpdatedAt = now

	if err := next.validate(p.Attachment); err != nil {
		return nil, err
	}
	return &next, nil
}

// validate checks the required fields and formats of a normalized invoice.
// Only an attachment about to be written is inspected since reads may omit the stored bytes.
func (i *Invoice) validate(upload *Attachment) error {
	verr := &ValidationError{}

	if i.InvoiceNumber == "" {
		verr.Add("invoiceNumber", "Invoice number is required")
	}
	if i.CustomerEmail == "" {
		verr.Add("customerEmail", "Customer email is required")
	} else if err := validate.Var(i.CustomerEmail, "email"); err != nil {
		verr.Add("customerEmail", "Customer email must be a valid email address")
	}
	if i.DueDate.IsZero() {
		verr.Add("dueDate", "Due date is required")
	}
	if !i.PaymentStatus.Valid() {
		verr.Add("paymentStatus", "Payment status must be one of: Paid, Unpaid")
	}
	if upload != nil {
		if len(upload.Data) == 0 {
			verr.Add("pdf", "Attachment is empty")
		}
		if upload.MimeType == "" {
			verr.Add("pdf", "Attachment mime type is required")
		}
	}

	return verr.OrNil()
}

package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedFactory() Factory {
	return Factory{
		NewID: func() string { return "00000000-0000-0000-0000-000000000001" },
		Now:   func() time.Time { return fixedNow },
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestNewInvoiceDefaults(t *testing.T) {
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	inv, err := NewInvoice(InvoiceInput{
		InvoiceNumber: "A-1",
		CustomerEmail: "c@d.com",
		DueDate:       &due,
		InvoiceAmount: ptr(decimal.RequireFromString("100.00")),
	}, fixedFactory())
	require.NoError(t, err)

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", inv.ID)
	assert.Equal(t, PaymentStatusUnpaid, inv.PaymentStatus)
	assert.Equal(t, fixedNow, inv.InvoiceDate)
	assert.Equal(t, due, inv.DueDate)
	assert.Equal(t, "100.00", inv.InvoiceAmount.StringFixed(AmountScale))
	assert.Equal(t, fixedNow, inv.CreatedAt)
	assert.Equal(t, fixedNow, inv.UpdatedAt)
	assert.False(t, inv.HasAttachment())
}

func TestNewInvoiceNormalizes(t *testing.T) {
	due := fixedNow.AddDate(0, 1, 0)

	inv, err := NewInvoice(InvoiceInput{
		InvoiceNumber: "  inv-001 ",
		CustomerEmail: " User@Example.COM ",
		DueDate:       &due,
		InvoiceAmount: ptr(decimal.RequireFromString("10.005")),
	}, fixedFactory())
	require.NoError(t, err)

	assert.Equal(t, "INV-001", inv.InvoiceNumber)
	assert.Equal(t, "user@example.com", inv.CustomerEmail)
	assert.Equal(t, "10.01", inv.InvoiceAmount.StringFixed(AmountScale))
}

func TestNewInvoiceDefaultAmount(t *testing.T) {
	due := fixedNow.AddDate(0, 1, 0)

	inv, err := NewInvoice(InvoiceInput{
		InvoiceNumber: "A-2",
		CustomerEmail: "c@d.com",
		DueDate:       &due,
	}, fixedFactory())
	require.NoError(t, err)

	assert.Equal(t, "0.00", inv.InvoiceAmount.StringFixed(AmountScale))
}

func TestNewInvoiceValidation(t *testing.T) {
	due := fixedNow.AddDate(0, 1, 0)

	tests := []struct {
		name   string
		input  InvoiceInput
		fields []string
	}{
		{
			name:   "missing everything",
			input:  InvoiceInput{},
			fields: []string{"invoiceNumber", "customerEmail", "dueDate"},
		},
		{
			name:   "whitespace number",
			input:  InvoiceInput{InvoiceNumber: "   ", CustomerEmail: "c@d.com", DueDate: &due},
			fields: []string{"invoiceNumber"},
		},
		{
			name:   "malformed email",
			input:  InvoiceInput{InvoiceNumber: "A-1", CustomerEmail: "not-an-email", DueDate: &due},
			fields: []string{"customerEmail"},
		},
		{
			name: "unknown status",
			input: InvoiceInput{
				InvoiceNumber: "A-1",
				CustomerEmail: "c@d.com",
				DueDate:       &due,
				PaymentStatus: ptr(PaymentStatus("Overdue")),
			},
			fields: []string{"paymentStatus"},
		},
		{
			name: "empty attachment",
			input: InvoiceInput{
				InvoiceNumber: "A-1",
				CustomerEmail: "c@d.com",
				DueDate:       &due,
				Attachment:    &Attachment{MimeType: DefaultPDFMimeType},
			},
			fields: []string{"pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInvoice(tt.input, fixedFactory())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestInvoiceInputValidate(t *testing.T) {
	due := fixedNow.AddDate(0, 1, 0)
	drawn := 0
	f := Factory{
		NewID: func() string { drawn++; return "id" },
		Now:   func() time.Time { return fixedNow },
	}

	valid := InvoiceInput{InvoiceNumber: "a-1", CustomerEmail: "a@x.com", DueDate: &due}
	assert.NoError(t, valid.Validate())

	invalid := valid
	invalid.CustomerEmail = "nope"
	invalid.Attachment = &Attachment{FileName: "empty.pdf", MimeType: DefaultPDFMimeType}
	err := invalid.Validate()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	_, createErr := NewInvoice(invalid, f)
	assert.Equal(t, err, createErr)
	assert.Equal(t, 1, drawn)
}

func TestNewAttachmentDefaults(t *testing.T) {
	a := NewAttachment([]byte("%PDF-1.4"), "", "", 0)

	assert.Equal(t, DefaultPDFMimeType, a.MimeType)
	assert.Equal(t, int64(8), a.Size)
	assert.Equal(t, int64(8), a.ContentLength())
}

func TestAttachmentFileNameFallback(t *testing.T) {
	inv := &Invoice{InvoiceNumber: "INV-9"}
	assert.Equal(t, "invoice-INV-9.pdf", inv.AttachmentFileName())

	inv.Attachment = NewAttachment([]byte("x"), "", DefaultPDFMimeType, 1)
	assert.Equal(t, "invoice-INV-9.pdf", inv.AttachmentFileName())

	inv.Attachment.FileName = "march.pdf"
	assert.Equal(t, "march.pdf", inv.AttachmentFileName())
}

func TestWithoutAttachmentData(t *testing.T) {
	inv := &Invoice{
		InvoiceNumber: "INV-1",
		Attachment:    NewAttachment([]byte("%PDF"), "a.pdf", DefaultPDFMimeType, 4),
	}

	stripped := inv.WithoutAttachmentData()

	require.NotNil(t, stripped.Attachment)
	assert.Nil(t, stripped.Attachment.Data)
	assert.Equal(t, "a.pdf", stripped.Attachment.FileName)
	assert.Equal(t, int64(4), stripped.Attachment.Size)
	assert.Equal(t, []byte("%PDF"), inv.Attachment.Data, "original must keep its bytes")

	assert.Nil(t, (&Invoice{}).WithoutAttachmentData().Attachment)
}

func TestPatchApply(t *testing.T) {
	due := fixedNow.AddDate(0, 1, 0)
	original, err := NewInvoice(InvoiceInput{
		InvoiceNumber: "A-1",
		CustomerEmail: "c@d.com",
		DueDate:       &due,
		Attachment:    NewAttachment([]byte("old"), "old.pdf", DefaultPDFMimeType, 3),
	}, fixedFactory())
	require.NoError(t, err)

	later := fixedNow.Add(time.Hour)

	t.Run("keeps untouched fields", func(t *testing.T) {
		next, err := InvoicePatch{PaymentStatus: ptr(PaymentStatusPaid)}.Apply(original, later)
		require.NoError(t, err)

		assert.Equal(t, PaymentStatusPaid, next.PaymentStatus)
		assert.Equal(t, "A-1", next.InvoiceNumber)
		assert.Equal(t, original.Attachment, next.Attachment)
		assert.Equal(t, later, next.UpdatedAt)
		assert.Equal(t, fixedNow, next.CreatedAt)
		assert.Equal(t, PaymentStatusUnpaid, original.PaymentStatus, "original must not change")
	})

	t.Run("normalizes touched fields", func(t *testing.T) {
		next, err := InvoicePatch{
			InvoiceNumber: ptr(" b-2 "),
			CustomerEmail: ptr(" New@D.com"),
		}.Apply(original, later)
		require.NoError(t, err)

		assert.Equal(t, "B-2", next.InvoiceNumber)
		assert.Equal(t, "new@d.com", next.CustomerEmail)
	})

	t.Run("replaces attachment as a whole", func(t *testing.T) {
		replacement := NewAttachment([]byte("brand new"), "new.pdf", "application/x-pdf", 9)
		next, err := InvoicePatch{Attachment: replacement}.Apply(original, later)
		require.NoError(t, err)

		assert.Equal(t, replacement, next.Attachment)
	})

	t.Run("accepts record read without bytes", func(t *testing.T) {
		next, err := InvoicePatch{PaymentStatus: ptr(PaymentStatusPaid)}.Apply(original.WithoutAttachmentData(), later)
		require.NoError(t, err)
		assert.Equal(t, "old.pdf", next.Attachment.FileName)
	})

	t.Run("rejects empty replacement", func(t *testing.T) {
		_, err := InvoicePatch{Attachment: &Attachment{MimeType: DefaultPDFMimeType}}.Apply(original, later)
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("rejects invalid result", func(t *testing.T) {
		_, err := InvoicePatch{CustomerEmail: ptr("nope")}.Apply(original, later)
		assert.True(t, errors.Is(err, ErrValidation))
	})
}

func TestPatchIsEmpty(t *testing.T) {
	assert.True(t, InvoicePatch{}.IsEmpty())
	assert.False(t, InvoicePatch{InvoiceAmount: ptr(decimal.NewFromInt(1))}.IsEmpty())
}

func TestAttachmentModeDisposition(t *testing.T) {
	assert.Equal(t, "attachment", AttachmentModeDownload.Disposition())
	assert.Equal(t, "inline", AttachmentModeView.Disposition())
}

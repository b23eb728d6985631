package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ridwanfathin/invoice-records-service/internal/domain"
	"github.com/ridwanfathin/invoice-records-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = domain.Principal{Role: domain.RoleAdmin, Email: "admin@x.com"}
	customer = domain.Principal{Role: "customer", Email: "a@x.com"}
	stranger = domain.Principal{Role: "customer", Email: "b@x.com"}
)

type fakeArchiver struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeArchiver) ArchivePDF(ctx context.Context, data []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("invoices/%d.pdf", f.calls), nil
}

func newTestService(opts ...Option) (*InvoiceServiceImpl, *repository.MemoryInvoiceRepository) {
	repo := repository.NewMemoryInvoiceRepository()
	var n int
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	factory := domain.Factory{
		NewID: func() string {
			n++
			return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
		},
		Now: func() time.Time { return base.Add(time.Duration(n) * time.Minute) },
	}
	return NewInvoiceService(repo, append([]Option{WithFactory(factory)}, opts...)...), repo
}

func newInput(number, email string) domain.InvoiceInput {
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.InvoiceInput{InvoiceNumber: number, CustomerEmail: email, DueDate: &due}
}

func pdf(content, name string) *domain.Attachment {
	return domain.NewAttachment([]byte(content), name, domain.DefaultPDFMimeType, int64(len(content)))
}

func TestAttachmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.CreateInvoice(ctx, newInput("INV-1", "a@x.com"), pdf("%PDF-1.7 hello", "march.pdf"))
	require.NoError(t, err)

	content, err := svc.GetAttachment(ctx, created.ID, customer, domain.AttachmentModeDownload)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 hello"), content.Data)
	assert.Equal(t, "march.pdf", content.FileName)
	assert.Equal(t, domain.DefaultPDFMimeType, content.MimeType)
	assert.Equal(t, int64(14), content.Size)
	assert.Equal(t, "attachment", content.Disposition)

	view, err := svc.GetAttachment(ctx, created.ID, admin, domain.AttachmentModeView)
	require.NoError(t, err)
	assert.Equal(t, "inline", view.Disposition)
	assert.Equal(t, content.Data, view.Data)
}

func TestAttachmentFallbacks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	upload := &domain.Attachment{Data: []byte("abc"), MimeType: domain.DefaultPDFMimeType}
	created, err := svc.CreateInvoice(ctx, newInput("inv-2", "a@x.com"), upload)
	require.NoError(t, err)

	content, err := svc.GetAttachment(ctx, created.ID, admin, domain.AttachmentModeDownload)
	require.NoError(t, err)
	assert.Equal(t, "invoice-INV-2.pdf", content.FileName)
	assert.Equal(t, int64(3), content.Size)
}

func TestAccessControl(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.CreateInvoice(ctx, newInput("INV-1", "a@x.com"), pdf("%PDF", "a.pdf"))
	require.NoError(t, err)

	t.Run("stranger is denied", func(t *testing.T) {
		_, err := svc.GetInvoiceDetail(ctx, created.ID, stranger)
		assert.ErrorIs(t, err, domain.ErrAccessDenied)

		for _, mode := range []domain.AttachmentMode{domain.AttachmentModeDownload, domain.AttachmentModeView} {
			_, err := svc.GetAttachment(ctx, created.ID, stranger, mode)
			assert.ErrorIs(t, err, domain.ErrAccessDenied, string(mode))
		}
	})

	t.Run("owner and admin succeed", func(t *testing.T) {
		for _, p := range []domain.Principal{customer, admin, {Role: "customer", Email: " A@X.COM "}} {
			inv, err := svc.GetInvoiceDetail(ctx, created.ID, p)
			require.NoError(t, err)
			assert.Nil(t, inv.Attachment.Data)

			for _, mode := range []domain.AttachmentMode{domain.AttachmentModeDownload, domain.AttachmentModeView} {
				_, err := svc.GetAttachment(ctx, created.ID, p, mode)
				assert.NoError(t, err)
			}
		}
	})
}

func TestGetAttachmentErrorOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	bare, err := svc.CreateInvoice(ctx, newInput("INV-1", "a@x.com"), nil)
	require.NoError(t, err)

	_, err = svc.GetAttachment(ctx, "missing", stranger, domain.AttachmentModeDownload)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// a stranger learns nothing about whether the PDF exists
	_, err = svc.GetAttachment(ctx, bare.ID, stranger, domain.AttachmentModeDownload)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = svc.GetAttachment(ctx, bare.ID, customer, domain.AttachmentModeView)
	assert.ErrorIs(t, err, domain.ErrAttachmentMissing)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestReadsExcludeAttachmentBytes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.CreateInvoice(ctx, newInput("INV-1", "a@x.com"), pdf("%PDF", "a.pdf"))
	require.NoError(t, err)

	detail, err := svc.GetInvoiceDetail(ctx, created.ID, admin)
	require.NoError(t, err)
	found, err := svc.SearchByNumber(ctx, " inv-1 ")
	require.NoError(t, err)
	byCustomer, err := svc.ListByCustomer(ctx, "A@x.com")
	require.NoError(t, err)
	all, err := svc.ListAll(ctx)
	require.NoError(t, err)

	require.Len(t, byCustomer, 1)
	require.Len(t, all, 1)
	for _, inv := range []*domain.Invoice{detail, found, &byCustomer[0], &all[0]} {
		require.NotNil(t, inv.Attachment)
		assert.Nil(t, inv.Attachment.Data)
		assert.Equal(t, "a.pdf", inv.Attachment.FileName)
		assert.Equal(t, int64(4), inv.Attachment.Size)
	}
}

func TestUpdateAttachment(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.CreateInvoice(ctx, newInput("INV-1", "a@x.com"), pdf("old bytes", "old.pdf"))
	require.NoError(t, err)

	t.Run("without new attachment keeps the old one", func(t *testing.T) {
		status := domain.PaymentStatusPaid
		_, err := svc.UpdateInvoice(ctx, created.ID, domain.InvoicePatch{PaymentStatus: &status}, nil)
		require.NoError(t, err)

		content, err := svc.GetAttachment(ctx, created.ID, admin, domain.AttachmentModeDownload)
		require.NoError(t, err)
		assert.Equal(t, []byte("old bytes"), content.Data)
		assert.Equal(t, "old.pdf", content.FileName)
		assert.Equal(t, domain.DefaultPDFMimeType, content.MimeType)
		assert.Equal(t, int64(9), content.Size)
	})

	t.Run("with new attachment replaces all fields", func(t *testing.T) {
		replacement := domain.NewAttachment([]byte("new"), "new.pdf", "application/x-pdf", 3)
		_, err := svc.UpdateInvoice(ctx, created.ID, domain.InvoicePatch{}, replacement)
		require.NoError(t, err)

		content, err := svc.GetAttachment(ctx, created.ID, admin, domain.AttachmentModeDownload)
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), content.Data)
		assert.Equal(t, "new.pdf", content.FileName)
		assert.Equal(t, "application/x-pdf", content.MimeType)
		assert.Equal(t, int64(3), content.Size)
	})

	t.Run("missing invoice", func(t *testing.T) {
		_, err := svc.UpdateInvoice(ctx, "missing", domain.InvoicePatch{}, pdf("x", "x.pdf"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDeleteInvoice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	err := svc.DeleteInvoice(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	created, err := svc.CreateInvoice(ctx, newInput("INV-1", "a@x.com"), nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteInvoice(ctx, created.ID))

	_, err = svc.GetInvoiceDetail(ctx, created.ID, admin)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateInvoiceScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.CreateInvoice(ctx, newInput("A-1", "c@d.com"), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusUnpaid, created.PaymentStatus)
	assert.False(t, created.InvoiceDate.IsZero())

	_, err = svc.CreateInvoice(ctx, newInput("a-1 ", "e@f.com"), nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	var serviceErr *InvoiceServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "create_invoice", serviceErr.Op)
}

func TestArchiver(t *testing.T) {
	ctx := context.Background()

	t.Run("archives every upload", func(t *testing.T) {
		archiver := &fakeArchiver{}
		svc, _ := newTestService(WithArchiver(archiver))

		created, err := svc.CreateInvoice(ctx, newInput("INV-1", "a@x.com"), pdf("one", "1.pdf"))
		require.NoError(t, err)
		_, err = svc.UpdateInvoice(ctx, created.ID, domain.InvoicePatch{}, pdf("two", "2.pdf"))
		require.NoError(t, err)
		_, err = svc.CreateInvoice(ctx, newInput("INV-2", "a@x.com"), nil)
		require.NoError(t, err)

		assert.Equal(t, 2, archiver.calls)
	})

	t.Run("failure leaves the store untouched", func(t *testing.T) {
		archiver := &fakeArchiver{}
		svc, repo := newTestService(WithArchiver(archiver))

		created, err := svc.CreateInvoice(ctx, newInput("INV-1", "a@x.com"), pdf("one", "1.pdf"))
		require.NoError(t, err)

		archiver.err = errors.New("bucket unreachable")

		_, err = svc.CreateInvoice(ctx, newInput("INV-2", "a@x.com"), pdf("two", "2.pdf"))
		assert.ErrorIs(t, err, domain.ErrUpstream)

		_, err = svc.UpdateInvoice(ctx, created.ID, domain.InvoicePatch{}, pdf("three", "3.pdf"))
		assert.ErrorIs(t, err, domain.ErrUpstream)

		all, err := repo.ListAll(ctx, repository.WithAttachment)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, []byte("one"), all[0].Attachment.Data)
	})

	t.Run("rejected writes are not archived", func(t *testing.T) {
		archiver := &fakeArchiver{}
		svc, _ := newTestService(WithArchiver(archiver))

		first, err := svc.CreateInvoice(ctx, newInput("INV-1", "a@x.com"), pdf("one", "1.pdf"))
		require.NoError(t, err)
		second, err := svc.CreateInvoice(ctx, newInput("INV-2", "a@x.com"), nil)
		require.NoError(t, err)
		require.Equal(t, 1, archiver.calls)

		_, err = svc.CreateInvoice(ctx, newInput("INV-3", "not-an-email"), pdf("two", "2.pdf"))
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = svc.CreateInvoice(ctx, newInput(" inv-1", "b@x.com"), pdf("two", "2.pdf"))
		assert.ErrorIs(t, err, domain.ErrDuplicateKey)

		taken := "inv-1"
		_, err = svc.UpdateInvoice(ctx, second.ID, domain.InvoicePatch{InvoiceNumber: &taken}, pdf("two", "2.pdf"))
		assert.ErrorIs(t, err, domain.ErrDuplicateKey)

		badEmail := "nope"
		_, err = svc.UpdateInvoice(ctx, second.ID, domain.InvoicePatch{CustomerEmail: &badEmail}, pdf("two", "2.pdf"))
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = svc.UpdateInvoice(ctx, "00000000-0000-0000-0000-999999999999", domain.InvoicePatch{}, pdf("two", "2.pdf"))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		assert.Equal(t, 1, archiver.calls)

		own := "INV-1"
		_, err = svc.UpdateInvoice(ctx, first.ID, domain.InvoicePatch{InvoiceNumber: &own}, pdf("two", "2.pdf"))
		require.NoError(t, err)
		assert.Equal(t, 2, archiver.calls)
	})
}

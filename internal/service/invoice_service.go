package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ridwanfathin/invoice-records-service/internal/domain"
	"github.com/ridwanfathin/invoice-records-service/internal/policy"
	"github.com/ridwanfathin/invoice-records-service/internal/repository"
)

// InvoiceServiceError represents an error in the invoice service
type InvoiceServiceError struct {
	// Op is the operation that failed
	Op string

	// Err is the underlying error
	Err error
}

// Error returns a string representation of the error
func (e *InvoiceServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

// Unwrap returns the underlying error
func (e *InvoiceServiceError) Unwrap() error {
	return e.Err
}

// InvoiceService defines the interface for invoice business logic.
// Every read except GetAttachment returns invoices without PDF bytes.
type InvoiceService interface {
	// Admin operations, gated before they reach the service
	CreateInvoice(ctx context.Context, in domain.InvoiceInput, attachment *domain.Attachment) (*domain.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, patch domain.InvoicePatch, attachment *domain.Attachment) (*domain.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.Invoice, error)

	// Owner-or-admin operations, checked by the access policy
	GetInvoiceDetail(ctx context.Context, id string, principal domain.Principal) (*domain.Invoice, error)
	GetAttachment(ctx context.Context, id string, principal domain.Principal, mode domain.AttachmentMode) (*domain.AttachmentContent, error)

	// Search operations open to any authenticated principal
	SearchByNumber(ctx context.Context, number string) (*domain.Invoice, error)
	ListByCustomer(ctx context.Context, email string) ([]domain.Invoice, error)
}

// Archiver keeps a copy of uploaded PDFs outside the database
type Archiver interface {
	ArchivePDF(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Option configures the invoice service
type Option func(*InvoiceServiceImpl)

// WithArchiver copies every uploaded PDF before it is stored
func WithArchiver(a Archiver) Option {
	return func(s *InvoiceServiceImpl) {
		s.archiver = a
	}
}

// WithFactory overrides the id and clock source
func WithFactory(f domain.Factory) Option {
	return func(s *InvoiceServiceImpl) {
		s.factory = f
	}
}

// InvoiceServiceImpl implements the InvoiceService interface
type InvoiceServiceImpl struct {
	repository repository.InvoiceRepository
	archiver   Archiver
	factory    domain.Factory
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(repo repository.InvoiceRepository, opts ...Option) *InvoiceServiceImpl {
	s := &InvoiceServiceImpl{
		repository: repo,
		factory:    domain.DefaultFactory(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInvoice stores a new invoice with an optional PDF
func (s *InvoiceServiceImpl) CreateInvoice(ctx context.Context, in domain.InvoiceInput, attachment *domain.Attachment) (*domain.Invoice, error) {
	if attachment != nil {
		in.Attachment = attachment
		if s.archiver != nil {
			if err := s.checkCreate(ctx, in); err != nil {
				return nil, &InvoiceServiceError{Op: "create_invoice", Err: err}
			}
			if err := s.archive(ctx, attachment); err != nil {
				return nil, &InvoiceServiceError{Op: "archive_attachment", Err: err}
			}
		}
	}

	invoice, err := s.repository.Create(ctx, in, s.factory)
	if err != nil {
		return nil, &InvoiceServiceError{
			Op:  "create_invoice",
			Err: err,
		}
	}
	return invoice, nil
}

// UpdateInvoice applies a partial update; a new PDF replaces the stored one as a whole
func (s *InvoiceServiceImpl) UpdateInvoice(ctx context.Context, id string, patch domain.InvoicePatch, attachment *domain.Attachment) (*domain.Invoice, error) {
	if attachment != nil {
		patch.Attachment = attachment
		if s.archiver != nil {
			if err := s.checkUpdate(ctx, id, patch); err != nil {
				return nil, &InvoiceServiceError{Op: "update_invoice", Err: err}
			}
			if err := s.archive(ctx, attachment); err != nil {
				return nil, &InvoiceServiceError{Op: "archive_attachment", Err: err}
			}
		}
	}

	invoice, err := s.repository.Update(ctx, id, patch, s.factory)
	if err != nil {
		return nil, &InvoiceServiceError{
			Op:  "update_invoice",
			Err: err,
		}
	}
	return invoice, nil
}

// DeleteInvoice hard-deletes an invoice
func (s *InvoiceServiceImpl) DeleteInvoice(ctx context.Context, id string) error {
	deleted, err := s.repository.Delete(ctx, id)
	if err != nil {
		return &InvoiceServiceError{
			Op:  "delete_invoice",
			Err: err,
		}
	}
	if !deleted {
		return &InvoiceServiceError{
			Op:  "delete_invoice",
			Err: domain.ErrNotFound,
		}
	}
	return nil
}

// ListAll lists every invoice, newest first
func (s *InvoiceServiceImpl) ListAll(ctx context.Context) ([]domain.Invoice, error) {
	invoices, err := s.repository.ListAll(ctx, repository.WithoutAttachment)
	if err != nil {
		return nil, &InvoiceServiceError{
			Op:  "list_invoices",
			Err: err,
		}
	}
	return invoices, nil
}

// GetInvoiceDetail returns one invoice if the principal may read it
func (s *InvoiceServiceImpl) GetInvoiceDetail(ctx context.Context, id string, principal domain.Principal) (*domain.Invoice, error) {
	invoice, err := s.repository.FindByID(ctx, id, repository.WithoutAttachment)
	if err != nil {
		return nil, &InvoiceServiceError{
			Op:  "get_invoice",
			Err: err,
		}
	}
	if !policy.CanAccess(principal, invoice) {
		return nil, &InvoiceServiceError{
			Op:  "get_invoice",
			Err: domain.ErrAccessDenied,
		}
	}
	return invoice, nil
}

// GetAttachment returns the PDF of an invoice for download or inline viewing
func (s *InvoiceServiceImpl) GetAttachment(ctx context.Context, id string, principal domain.Principal, mode domain.AttachmentMode) (*domain.AttachmentContent, error) {
	op := "get_attachment_" + string(mode)

	invoice, err := s.repository.FindByID(ctx, id, repository.WithAttachment)
	if err != nil {
		return nil, &InvoiceServiceError{Op: op, Err: err}
	}
	if !policy.CanAccess(principal, invoice) {
		return nil, &InvoiceServiceError{Op: op, Err: domain.ErrAccessDenied}
	}
	if !invoice.HasAttachment() || len(invoice.Attachment.Data) == 0 {
		return nil, &InvoiceServiceError{Op: op, Err: domain.ErrAttachmentMissing}
	}

	a := invoice.Attachment
	mimeType := a.MimeType
	if mimeType == "" {
		mimeType = domain.DefaultPDFMimeType
	}

	return &domain.AttachmentContent{
		Data:        a.Data,
		FileName:    invoice.AttachmentFileName(),
		MimeType:    mimeType,
		Size:        a.ContentLength(),
		Disposition: mode.Disposition(),
	}, nil
}

// SearchByNumber finds an invoice by its number
func (s *InvoiceServiceImpl) SearchByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	invoice, err := s.repository.FindByInvoiceNumber(ctx, number, repository.WithoutAttachment)
	if err != nil {
		return nil, &InvoiceServiceError{
			Op:  "search_invoice_by_number",
			Err: err,
		}
	}
	return invoice, nil
}

// ListByCustomer lists the invoices addressed to an email
func (s *InvoiceServiceImpl) ListByCustomer(ctx context.Context, email string) ([]domain.Invoice, error) {
	invoices, err := s.repository.FindByCustomerEmail(ctx, email, repository.WithoutAttachment)
	if err != nil {
		return nil, &InvoiceServiceError{
			Op:  "list_invoices_by_customer",
			Err: err,
		}
	}
	return invoices, nil
}

// checkCreate rejects a create the store would refuse, so no PDF is archived for it.
// The store still enforces both rules on write.
func (s *InvoiceServiceImpl) checkCreate(ctx context.Context, in domain.InvoiceInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return s.checkNumberFree(ctx, in.InvoiceNumber, "")
}

// checkUpdate is checkCreate for a partial update of invoice id
func (s *InvoiceServiceImpl) checkUpdate(ctx context.Context, id string, patch domain.InvoicePatch) error {
	current, err := s.repository.FindByID(ctx, id, repository.WithoutAttachment)
	if err != nil {
		return err
	}
	next, err := patch.Apply(current, current.UpdatedAt)
	if err != nil {
		return err
	}
	if patch.InvoiceNumber == nil {
		return nil
	}
	return s.checkNumberFree(ctx, next.InvoiceNumber, id)
}

// checkNumberFree fails with ErrDuplicateKey when another invoice holds number
func (s *InvoiceServiceImpl) checkNumberFree(ctx context.Context, number, ownID string) error {
	existing, err := s.repository.FindByInvoiceNumber(ctx, number, repository.WithoutAttachment)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != ownID {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (s *InvoiceServiceImpl) archive(ctx context.Context, attachment *domain.Attachment) error {
	key, err := s.archiver.ArchivePDF(ctx, attachment.Data, attachment.MimeType)
	if err != nil {
		return errors.Join(domain.ErrUpstream, err)
	}
	log.Printf("Archived attachment %q as %s", attachment.FileName, key)
	return nil
}

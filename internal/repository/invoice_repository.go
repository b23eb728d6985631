package repository

import (
	"context"
	"fmt"

	"github.com/ridwanfathin/invoice-records-service/internal/domain"
)

// Projection selects whether PDF bytes are loaded with a record
type Projection int

const (
	// WithAttachment loads the PDF bytes
	WithAttachment Projection = iota
	// WithoutAttachment keeps file name, mime type and size but drops the bytes
	WithoutAttachment
)

// InvoiceRepository defines the interface for invoice record storage
type InvoiceRepository interface {
	// Create normalizes, validates and stores a new invoice
	Create(ctx context.Context, in domain.InvoiceInput, f domain.Factory) (*domain.Invoice, error)

	// Update merges a partial update into an existing invoice
	Update(ctx context.Context, id string, patch domain.InvoicePatch, f domain.Factory) (*domain.Invoice, error)

	// Delete removes an invoice and reports whether it existed
	Delete(ctx context.Context, id string) (bool, error)

	// Lookups return domain.ErrNotFound when nothing matches
	FindByID(ctx context.Context, id string, proj Projection) (*domain.Invoice, error)
	FindByInvoiceNumber(ctx context.Context, number string, proj Projection) (*domain.Invoice, error)

	// Listings are ordered newest-created first
	FindByCustomerEmail(ctx context.Context, email string, proj Projection) ([]domain.Invoice, error)
	ListAll(ctx context.Context, proj Projection) ([]domain.Invoice, error)
}

// RepositoryError represents an error that occurred within a repository
type RepositoryError struct {
	// Op is the operation that failed
	Op string

	// Err is the underlying error
	Err error
}

// Error returns a string representation of the error
func (e *RepositoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

// Unwrap returns the underlying error
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// upstream marks a storage I/O failure
func upstream(op string, err error) error {
	return &RepositoryError{
		Op:  op,
		Err: fmt.Errorf("%w: %v", domain.ErrUpstream, err),
	}
}

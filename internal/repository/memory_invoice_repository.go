package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/ridwanfathin/invoice-records-service/internal/domain"
)

// MemoryInvoiceRepository implements InvoiceRepository in process memory
type MemoryInvoiceRepository struct {
	mutex    sync.RWMutex
	byID     map[string]*memoryRecord
	byNumber map[string]string
	seq      uint64
}

type memoryRecord struct {
	invoice domain.Invoice
	seq     uint64
}

// NewMemoryInvoiceRepository creates an empty in-memory repository
func NewMemoryInvoiceRepository() *MemoryInvoiceRepository {
	return &MemoryInvoiceRepository{
		byID:     make(map[string]*memoryRecord),
		byNumber: make(map[string]string),
	}
}

// Create stores a new invoice
func (r *MemoryInvoiceRepository) Create(ctx context.Context, in domain.InvoiceInput, f domain.Factory) (*domain.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RepositoryError{Op: "create_invoice", Err: err}
	}

	inv, err := domain.NewInvoice(in, f)
	if err != nil {
		return nil, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, taken := r.byNumber[inv.InvoiceNumber]; taken {
		return nil, domain.ErrDuplicateKey
	}

	r.seq++
	r.byID[inv.ID] = &memoryRecord{invoice: cloneInvoice(*inv), seq: r.seq}
	r.byNumber[inv.InvoiceNumber] = inv.ID

	return inv, nil
}

// Update merges a partial update into an existing invoice
func (r *MemoryInvoiceRepository) Update(ctx context.Context, id string, patch domain.InvoicePatch, f domain.Factory) (*domain.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RepositoryError{Op: "update_invoice", Err: err}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	next, err := patch.Apply(&rec.invoice, f.Now())
	if err != nil {
		return nil, err
	}

	if next.InvoiceNumber != rec.invoice.InvoiceNumber {
		if _, taken := r.byNumber[next.InvoiceNumber]; taken {
			return nil, domain.ErrDuplicateKey
		}
		delete(r.byNumber, rec.invoice.InvoiceNumber)
		r.byNumber[next.InvoiceNumber] = id
	}

	rec.invoice = cloneInvoice(*next)
	return next, nil
}

// Delete removes an invoice by ID
func (r *MemoryInvoiceRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &RepositoryError{Op: "delete_invoice", Err: err}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	delete(r.byNumber, rec.invoice.InvoiceNumber)
	delete(r.byID, id)
	return true, nil
}

// FindByID retrieves an invoice by ID
func (r *MemoryInvoiceRepository) FindByID(ctx context.Context, id string, proj Projection) (*domain.Invoice, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return project(rec.invoice, proj), nil
}

// FindByInvoiceNumber retrieves an invoice by its normalized number
func (r *MemoryInvoiceRepository) FindByInvoiceNumber(ctx context.Context, number string, proj Projection) (*domain.Invoice, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, ok := r.byNumber[domain.NormalizeInvoiceNumber(number)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return project(r.byID[id].invoice, proj), nil
}

// FindByCustomerEmail lists the invoices addressed to an email
func (r *MemoryInvoiceRepository) FindByCustomerEmail(ctx context.Context, email string, proj Projection) ([]domain.Invoice, error) {
	email = domain.NormalizeEmail(email)
	return r.list(proj, func(inv *domain.Invoice) bool {
		return inv.CustomerEmail == email
	}), nil
}

// ListAll lists every invoice
func (r *MemoryInvoiceRepository) ListAll(ctx context.Context, proj Projection) ([]domain.Invoice, error) {
	return r.list(proj, func(*domain.Invoice) bool { return true }), nil
}

func (r *MemoryInvoiceRepository) list(proj Projection, match func(*domain.Invoice) bool) []domain.Invoice {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	recs := make([]*memoryRecord, 0, len(r.byID))
	for _, rec := range r.byID {
		if match(&rec.invoice) {
			recs = append(recs, rec)
		}
	}

	// newest first; insertion order breaks ties between equal timestamps
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.invoice.CreatedAt.Equal(b.invoice.CreatedAt) {
			return a.invoice.CreatedAt.After(b.invoice.CreatedAt)
		}
		return a.seq > b.seq
	})

	invoices := make([]domain.Invoice, 0, len(recs))
	for _, rec := range recs {
		invoices = append(invoices, *project(rec.invoice, proj))
	}
	return invoices
}

func project(inv domain.Invoice, proj Projection) *domain.Invoice {
	if proj == WithoutAttachment {
		return inv.WithoutAttachmentData()
	}
	cp := cloneInvoice(inv)
	return &cp
}

// cloneInvoice copies the attachment so callers never share stored bytes
func cloneInvoice(inv domain.Invoice) domain.Invoice {
	if inv.Attachment != nil {
		a := *inv.Attachment
		if a.Data != nil {
			a.Data = append([]byte(nil), a.Data...)
		}
		inv.Attachment = &a
	}
	return inv
}

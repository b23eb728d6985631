package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ridwanfathin/invoice-records-service/internal/domain"
	"github.com/shopspring/decimal"
)

// uniqueViolation is the SQLSTATE raised by the invoice_number unique index
const (
	uniqueViolation        = "23505"
	numericValueOutOfRange = "22003"
)

// selectColumns is formatted with the pdf_data expression of the projection
const selectColumns = `
	id::text, invoice_number, customer_email, invoice_date, due_date,
	payment_status, invoice_amount::text, %s, pdf_file_name, pdf_mime_type, pdf_size,
	created_at, updated_at`

// PostgresInvoiceRepository implements InvoiceRepository using PostgreSQL
type PostgresInvoiceRepository struct {
	db *pgxpool.Pool
}

// NewPostgresInvoiceRepository creates a new PostgreSQL invoice repository
func NewPostgresInvoiceRepository(db *pgxpool.Pool) *PostgresInvoiceRepository {
	return &PostgresInvoiceRepository{
		db: db,
	}
}

// Create saves a new invoice to the database
func (r *PostgresInvoiceRepository) Create(ctx context.Context, in domain.InvoiceInput, f domain.Factory) (*domain.Invoice, error) {
	inv, err := domain.NewInvoice(in, f)
	if err != nil {
		return nil, err
	}

	data, name, mime, size := attachmentColumns(inv.Attachment)
	_, err = r.db.Exec(ctx, `
		INSERT INTO invoices (
			id, invoice_number, customer_email, invoice_date, due_date, payment_status,
			invoice_amount, pdf_data, pdf_file_name, pdf_mime_type, pdf_size, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12, $13)
	`, inv.ID, inv.InvoiceNumber, inv.CustomerEmail, inv.InvoiceDate, inv.DueDate, string(inv.PaymentStatus),
		inv.InvoiceAmount.StringFixed(domain.AmountScale), data, name, mime, size, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		if classified := classifyWriteError(err); classified != nil {
			return nil, classified
		}
		return nil, upstream("create_invoice", err)
	}

	return inv, nil
}

// Update merges a partial update into an existing invoice.
// Attachment bytes are only written (and returned) when the patch carries a new PDF.
func (r *PostgresInvoiceRepository) Update(ctx context.Context, id string, patch domain.InvoicePatch, f domain.Factory) (*domain.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, upstream("update_invoice", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx) // Rollback if not committed

	current, err := scanInvoice(tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 FOR UPDATE`, columnsFor(WithoutAttachment)), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, upstream("update_invoice", err)
	}

	next, err := patch.Apply(current, f.Now())
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET invoice_number = $1, customer_email = $2, invoice_date = $3, due_date = $4,
			payment_status = $5, invoice_amount = $6::numeric, updated_at = $7
		WHERE id = $8
	`, next.InvoiceNumber, next.CustomerEmail, next.InvoiceDate, next.DueDate, string(next.PaymentStatus),
		next.InvoiceAmount.StringFixed(domain.AmountScale), next.UpdatedAt, id)
	if err != nil {
		if classified := classifyWriteError(err); classified != nil {
			return nil, classified
		}
		return nil, upstream("update_invoice", err)
	}

	if patch.Attachment != nil {
		data, name, mime, size := attachmentColumns(patch.Attachment)
		_, err = tx.Exec(ctx, `
			UPDATE invoices
			SET pdf_data = $1, pdf_file_name = $2, pdf_mime_type = $3, pdf_size = $4
			WHERE id = $5
		`, data, name, mime, size, id)
		if err != nil {
			return nil, upstream("update_invoice_attachment", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, upstream("update_invoice", fmt.Errorf("failed to commit transaction: %w", err))
	}

	return next, nil
}

// Delete deletes an invoice by its ID
func (r *PostgresInvoiceRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	commandTag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return false, upstream("delete_invoice", err)
	}

	return commandTag.RowsAffected() > 0, nil
}

// FindByID retrieves an invoice by its ID
func (r *PostgresInvoiceRepository) FindByID(ctx context.Context, id string, proj Projection) (*domain.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, "find_invoice_by_id", `id = $1`, id, proj)
}

// FindByInvoiceNumber retrieves an invoice by its normalized number
func (r *PostgresInvoiceRepository) FindByInvoiceNumber(ctx context.Context, number string, proj Projection) (*domain.Invoice, error) {
	return r.findOne(ctx, "find_invoice_by_number", `invoice_number = $1`, domain.NormalizeInvoiceNumber(number), proj)
}

// FindByCustomerEmail lists the invoices addressed to an email
func (r *PostgresInvoiceRepository) FindByCustomerEmail(ctx context.Context, email string, proj Projection) ([]domain.Invoice, error) {
	return r.findMany(ctx, "find_invoices_by_email", `WHERE customer_email = $1`, proj, domain.NormalizeEmail(email))
}

// ListAll lists every invoice
func (r *PostgresInvoiceRepository) ListAll(ctx context.Context, proj Projection) ([]domain.Invoice, error) {
	return r.findMany(ctx, "list_invoices", ``, proj)
}

func (r *PostgresInvoiceRepository) findOne(ctx context.Context, op, where string, arg any, proj Projection) (*domain.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s`, columnsFor(proj), where)
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, upstream(op, err)
	}
	return inv, nil
}

func (r *PostgresInvoiceRepository) findMany(ctx context.Context, op, where string, proj Projection, args ...any) ([]domain.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY created_at DESC, id`, columnsFor(proj), where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, upstream(op, err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, upstream(op, fmt.Errorf("failed to scan invoice: %w", err))
		}
		invoices = append(invoices, *inv)
	}

	if err := rows.Err(); err != nil {
		return nil, upstream(op, fmt.Errorf("error iterating invoices: %w", err))
	}

	return invoices, nil
}

func columnsFor(proj Projection) string {
	if proj == WithoutAttachment {
		return fmt.Sprintf(selectColumns, "NULL::bytea")
	}
	return fmt.Sprintf(selectColumns, "pdf_data")
}

// scanInvoice reads one row in the selectColumns layout
func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var (
		inv     domain.Invoice
		status  string
		amount  string
		pdfData []byte
		pdfName *string
		pdfMime *string
		pdfSize *int64
	)

	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.CustomerEmail, &inv.InvoiceDate, &inv.DueDate,
		&status, &amount, &pdfData, &pdfName, &pdfMime, &pdfSize,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.PaymentStatus = domain.PaymentStatus(status)
	inv.InvoiceAmount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice_amount %q: %w", amount, err)
	}

	// pdf_mime_type is always written with an upload, so it marks presence
	if pdfMime != nil {
		inv.Attachment = &domain.Attachment{
			Data:     pdfData,
			MimeType: *pdfMime,
		}
		if pdfName != nil {
			inv.Attachment.FileName = *pdfName
		}
		if pdfSize != nil {
			inv.Attachment.Size = *pdfSize
		}
	}

	return &inv, nil
}

// attachmentColumns returns NULLs when there is no attachment
func attachmentColumns(a *domain.Attachment) ([]byte, *string, *string, *int64) {
	if a == nil {
		return nil, nil, nil, nil
	}
	name, mime, size := a.FileName, a.MimeType, a.Size
	return a.Data, &name, &mime, &size
}

// classifyWriteError maps constraint failures caused by the input to domain errors.
// It returns nil for everything else.
func classifyWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case uniqueViolation:
		return domain.ErrDuplicateKey
	case numericValueOutOfRange:
		return domain.NewValidationError("invoiceAmount", "Invoice amount is out of range")
	}
	return nil
}

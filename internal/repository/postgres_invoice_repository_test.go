package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ridwanfathin/invoice-records-service/internal/database"
	"github.com/ridwanfathin/invoice-records-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// newTestPostgresRepository connects to TEST_POSTGRES_DB_URL and starts from an empty table
func newTestPostgresRepository(t *testing.T) *PostgresInvoiceRepository {
	t.Helper()

	dbURL := os.Getenv("TEST_POSTGRES_DB_URL")
	if dbURL == "" {
		t.Skip("TEST_POSTGRES_DB_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, database.Options{URL: dbURL, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	_, err = db.GetPool().Exec(ctx, `TRUNCATE invoices`)
	require.NoError(t, err)

	return NewPostgresInvoiceRepository(db.GetPool())
}

func uuidFactory() domain.Factory {
	f := testFactory()
	f.NewID = uuid.NewString
	return f
}

func TestPostgresCreateAndFind(t *testing.T) {
	repo := newTestPostgresRepository(t)
	ctx := context.Background()
	f := uuidFactory()

	in := testInput(" inv-001", " User@Example.COM ")
	in.Attachment = domain.NewAttachment([]byte("%PDF-1.7 body"), "march.pdf", domain.DefaultPDFMimeType, 13)
	created, err := repo.Create(ctx, in, f)
	require.NoError(t, err)

	_, err = repo.Create(ctx, testInput("INV-001 ", "b@x.com"), f)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	with, err := repo.FindByID(ctx, created.ID, WithAttachment)
	require.NoError(t, err)
	assert.Equal(t, "INV-001", with.InvoiceNumber)
	assert.Equal(t, "user@example.com", with.CustomerEmail)
	assert.Equal(t, "0.00", with.InvoiceAmount.StringFixed(domain.AmountScale))
	require.NotNil(t, with.Attachment)
	assert.Equal(t, []byte("%PDF-1.7 body"), with.Attachment.Data)
	assert.Equal(t, "march.pdf", with.Attachment.FileName)
	assert.Equal(t, int64(13), with.Attachment.Size)

	without, err := repo.FindByInvoiceNumber(ctx, "inv-001", WithoutAttachment)
	require.NoError(t, err)
	require.NotNil(t, without.Attachment)
	assert.Nil(t, without.Attachment.Data)
	assert.Equal(t, "march.pdf", without.Attachment.FileName)

	byEmail, err := repo.FindByCustomerEmail(ctx, "user@example.com", WithoutAttachment)
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Nil(t, byEmail[0].Attachment.Data)

	_, err = repo.FindByID(ctx, "not-a-uuid", WithoutAttachment)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.FindByID(ctx, uuid.NewString(), WithoutAttachment)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresUpdate(t *testing.T) {
	repo := newTestPostgresRepository(t)
	ctx := context.Background()
	f := uuidFactory()

	in := testInput("INV-1", "a@x.com")
	in.Attachment = domain.NewAttachment([]byte("old"), "old.pdf", domain.DefaultPDFMimeType, 3)
	first, err := repo.Create(ctx, in, f)
	require.NoError(t, err)
	_, err = repo.Create(ctx, testInput("INV-2", "a@x.com"), f)
	require.NoError(t, err)

	status := domain.PaymentStatusPaid
	_, err = repo.Update(ctx, first.ID, domain.InvoicePatch{PaymentStatus: &status}, f)
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, first.ID, WithAttachment)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, []byte("old"), stored.Attachment.Data)
	assert.Equal(t, "old.pdf", stored.Attachment.FileName)

	number := "inv-2"
	_, err = repo.Update(ctx, first.ID, domain.InvoicePatch{InvoiceNumber: &number}, f)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	replacement := domain.NewAttachment([]byte("new bytes"), "new.pdf", "application/x-pdf", 9)
	_, err = repo.Update(ctx, first.ID, domain.InvoicePatch{Attachment: replacement}, f)
	require.NoError(t, err)

	stored, err = repo.FindByID(ctx, first.ID, WithAttachment)
	require.NoError(t, err)
	assert.Equal(t, "INV-1", stored.InvoiceNumber)
	assert.Equal(t, replacement, stored.Attachment)

	_, err = repo.Update(ctx, uuid.NewString(), domain.InvoicePatch{PaymentStatus: &status}, f)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresDeleteAndList(t *testing.T) {
	repo := newTestPostgresRepository(t)
	ctx := context.Background()
	f := uuidFactory()

	var ids []string
	for _, n := range []string{"INV-1", "INV-2", "INV-3"} {
		inv, err := repo.Create(ctx, testInput(n, "a@x.com"), f)
		require.NoError(t, err)
		ids = append(ids, inv.ID)
	}

	all, err := repo.ListAll(ctx, WithoutAttachment)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "INV-3", all[0].InvoiceNumber)
	assert.Equal(t, "INV-1", all[2].InvoiceNumber)

	deleted, err := repo.Delete(ctx, ids[1])
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, ids[1])
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.FindByID(ctx, ids[1], WithoutAttachment)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresConcurrentCreateSameNumber(t *testing.T) {
	repo := newTestPostgresRepository(t)
	ctx := context.Background()
	f := uuidFactory()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, number := range []string{"inv-9", " INV-9 "} {
		wg.Add(1)
		go func(i int, number string) {
			defer wg.Done()
			_, results[i] = repo.Create(ctx, testInput(number, "a@x.com"), f)
		}(i, number)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicateKey):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
}

func TestPostgresLargeAmounts(t *testing.T) {
	repo := newTestPostgresRepository(t)
	ctx := context.Background()
	f := uuidFactory()

	large := decimal.RequireFromString("1000000000000000.5")
	in := testInput("BIG-1", "a@x.com")
	in.InvoiceAmount = &large
	created, err := repo.Create(ctx, in, f)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID, WithoutAttachment)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000.50", found.InvoiceAmount.StringFixed(domain.AmountScale))

	larger := decimal.RequireFromString("99999999999999999999.99")
	updated, err := repo.Update(ctx, created.ID, domain.InvoicePatch{InvoiceAmount: &larger}, f)
	require.NoError(t, err)
	assert.True(t, larger.Equal(updated.InvoiceAmount))
}

func TestClassifyWriteError(t *testing.T) {
	assert.ErrorIs(t, classifyWriteError(&pgconn.PgError{Code: "23505"}), domain.ErrDuplicateKey)

	var verr *domain.ValidationError
	require.ErrorAs(t, classifyWriteError(&pgconn.PgError{Code: "22003"}), &verr)
	assert.Equal(t, "invoiceAmount", verr.Fields[0].Field)

	assert.Nil(t, classifyWriteError(&pgconn.PgError{Code: "08006"}))
	assert.Nil(t, classifyWriteError(errors.New("connection reset")))
}

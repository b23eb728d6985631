package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/invoice-records-service/internal/domain"
	"github.com/ridwanfathin/invoice-records-service/internal/middleware"
	"github.com/ridwanfathin/invoice-records-service/internal/model"
	"github.com/shopspring/decimal"
)

// pdfField is the multipart field carrying the invoice PDF
const pdfField = "pdf"

var (
	// errFileTooLarge reports an upload above the configured limit
	errFileTooLarge = errors.New("uploaded file exceeds the size limit")

	// errFileUnreadable reports a pdf part that could not be opened or read
	errFileUnreadable = errors.New("uploaded file could not be read")
)

// getPathParam retrieves a path parameter and validates it's not empty
func getPathParam(c *gin.Context, paramName string) (string, error) {
	value := strings.TrimSpace(c.Param(paramName))
	if value == "" {
		return "", fmt.Errorf("%s is required", paramName)
	}
	return value, nil
}

// parseDate parses a date in YYYY-MM-DD or RFC3339 format
func parseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if date, err := time.Parse(model.DateFormat, dateStr); err == nil {
		return date, nil
	}
	date, err := time.Parse(time.RFC3339, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}
	return date, nil
}

// parsePaymentStatus accepts the status case-insensitively.
// Unknown values are passed through so validation reports them.
func parsePaymentStatus(s string) domain.PaymentStatus {
	s = strings.TrimSpace(s)
	for _, known := range []domain.PaymentStatus{domain.PaymentStatusPaid, domain.PaymentStatusUnpaid} {
		if strings.EqualFold(s, string(known)) {
			return known
		}
	}
	return domain.PaymentStatus(s)
}

// isMultipart reports whether the request carries a multipart form
func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// readInvoiceRequest reads the invoice fields from a multipart form or a JSON body.
// The attachment is nil when no PDF was uploaded.
func readInvoiceRequest(c *gin.Context, maxUploadSize int64) (model.InvoiceRequest, *domain.Attachment, error) {
	var req model.InvoiceRequest

	if !isMultipart(c) {
		if c.Request.ContentLength == 0 {
			return req, nil, nil
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, nil, fmt.Errorf("invalid JSON format: %v", err)
		}
		return req, nil, nil
	}

	// Leave room for the other form fields on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize+(1<<20))
	if err := c.Request.ParseMultipartForm(maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return req, nil, errFileTooLarge
		}
		return req, nil, fmt.Errorf("invalid multipart form: %v", err)
	}

	req.InvoiceNumber = optionalFormValue(c, "invoiceNumber")
	req.CustomerEmail = optionalFormValue(c, "customerEmail")
	req.InvoiceDate = optionalFormValue(c, "invoiceDate")
	req.DueDate = optionalFormValue(c, "dueDate")
	req.PaymentStatus = optionalFormValue(c, "paymentStatus")
	if amount := optionalFormValue(c, "invoiceAmount"); amount != nil {
		value := model.Amount(*amount)
		req.InvoiceAmount = &value
	}

	attachment, err := readAttachment(c, maxUploadSize)
	if err != nil {
		return req, nil, err
	}
	return req, attachment, nil
}

// optionalFormValue returns nil when the form field was not sent at all
func optionalFormValue(c *gin.Context, key string) *string {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &value
}

// readAttachment buffers the uploaded PDF in memory
func readAttachment(c *gin.Context, maxUploadSize int64) (*domain.Attachment, error) {
	file, header, err := c.Request.FormFile(pdfField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errFileUnreadable, pdfField, err)
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		return nil, errFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errFileUnreadable, pdfField, err)
	}
	if int64(len(data)) > maxUploadSize {
		return nil, errFileTooLarge
	}

	return domain.NewAttachment(data, header.Filename, header.Header.Get("Content-Type"), header.Size), nil
}

// requestFields holds the typed values parsed from an InvoiceRequest
type requestFields struct {
	invoiceDate   *time.Time
	dueDate       *time.Time
	paymentStatus *domain.PaymentStatus
	invoiceAmount *decimal.Decimal
}

// parseRequestFields converts the string fields of a request, collecting every format error
func parseRequestFields(req model.InvoiceRequest) (requestFields, error) {
	var fields requestFields
	verr := &domain.ValidationError{}

	if req.InvoiceDate != nil && strings.TrimSpace(*req.InvoiceDate) != "" {
		date, err := parseDate(*req.InvoiceDate)
		if err != nil {
			verr.Add("invoiceDate", err.Error())
		} else {
			fields.invoiceDate = &date
		}
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			fields.dueDate = &time.Time{}
		} else if date, err := parseDate(*req.DueDate); err != nil {
			verr.Add("dueDate", err.Error())
		} else {
			fields.dueDate = &date
		}
	}
	if req.PaymentStatus != nil {
		status := parsePaymentStatus(*req.PaymentStatus)
		fields.paymentStatus = &status
	}
	if req.InvoiceAmount != nil && strings.TrimSpace(string(*req.InvoiceAmount)) != "" {
		amount, err := decimal.NewFromString(strings.TrimSpace(string(*req.InvoiceAmount)))
		if err != nil {
			verr.Add("invoiceAmount", "Invoice amount must be a decimal number")
		} else {
			fields.invoiceAmount = &amount
		}
	}

	return fields, verr.OrNil()
}

// toInvoiceInput builds the create input from a request
func toInvoiceInput(req model.InvoiceRequest) (domain.InvoiceInput, error) {
	fields, err := parseRequestFields(req)
	if err != nil {
		return domain.InvoiceInput{}, err
	}
	in := domain.InvoiceInput{
		InvoiceDate:   fields.invoiceDate,
		DueDate:       fields.dueDate,
		PaymentStatus: fields.paymentStatus,
		InvoiceAmount: fields.invoiceAmount,
	}
	if req.InvoiceNumber != nil {
		in.InvoiceNumber = *req.InvoiceNumber
	}
	if req.CustomerEmail != nil {
		in.CustomerEmail = *req.CustomerEmail
	}
	return in, nil
}

// toInvoicePatch builds the partial update from a request
func toInvoicePatch(req model.InvoiceRequest) (domain.InvoicePatch, error) {
	fields, err := parseRequestFields(req)
	if err != nil {
		return domain.InvoicePatch{}, err
	}
	return domain.InvoicePatch{
		InvoiceNumber: req.InvoiceNumber,
		CustomerEmail: req.CustomerEmail,
		InvoiceDate:   fields.invoiceDate,
		DueDate:       fields.dueDate,
		PaymentStatus: fields.paymentStatus,
		InvoiceAmount: fields.invoiceAmount,
	}, nil
}

// principalFromContext returns the principal stored by the auth middleware
func principalFromContext(c *gin.Context) (domain.Principal, bool) {
	return middleware.GetPrincipal(c)
}

// logError writes a structured error line with the request context
func logError(c *gin.Context, event string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("event", event),
		slog.String("error", err.Error()),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	}
	if requestID := c.GetString(middleware.RequestIDKey); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	for key, value := range fields {
		attrs = append(attrs, slog.Any(key, value))
	}
	slog.Error("request failed", attrs...)
}

package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/invoice-records-service/internal/domain"
	"github.com/ridwanfathin/invoice-records-service/internal/model"
	"github.com/ridwanfathin/invoice-records-service/internal/service"
)

// InvoiceHandler handles HTTP requests for invoice records and their PDFs
type InvoiceHandler struct {
	invoiceService service.InvoiceService
	maxUploadSize  int64
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService service.InvoiceService, maxUploadSize int64) *InvoiceHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 10 << 20
	}
	return &InvoiceHandler{
		invoiceService: invoiceService,
		maxUploadSize:  maxUploadSize,
	}
}

// RegisterRoutes registers the invoice routes on an authenticated group.
// adminOnly gates the routes that manage every invoice.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", adminOnly, h.CreateInvoice)
		invoices.GET("", adminOnly, h.ListInvoices)
		invoices.GET("/search", h.SearchInvoice)
		invoices.GET("/customer/:email", h.ListCustomerInvoices)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PUT("/:id", adminOnly, h.UpdateInvoice)
		invoices.DELETE("/:id", adminOnly, h.DeleteInvoice)
		invoices.GET("/:id/pdf/download", h.DownloadPDF)
		invoices.GET("/:id/pdf/view", h.ViewPDF)
	}
}

// CreateInvoice handles the POST /invoices endpoint
// @Summary Create an invoice
// @Description Create an invoice record with an optional PDF attachment. Admin only.
// @Tags invoices
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param invoiceNumber formData string true "Invoice number"
// @Param customerEmail formData string true "Customer email"
// @Param invoiceDate formData string false "Invoice date (YYYY-MM-DD), defaults to today"
// @Param dueDate formData string true "Due date (YYYY-MM-DD)"
// @Param paymentStatus formData string false "Paid or Unpaid, defaults to Unpaid"
// @Param invoiceAmount formData string false "Invoice amount, defaults to 0.00"
// @Param pdf formData file false "Invoice PDF"
// @Success 201 {object} model.InvoiceResponse "Invoice created successfully"
// @Failure 400 {object} model.ErrorResponse "Validation failed"
// @Failure 403 {object} model.ErrorResponse "Forbidden"
// @Failure 409 {object} model.ErrorResponse "Invoice number already exists"
// @Failure 413 {object} model.ErrorResponse "Uploaded file is too large"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	req, attachment, ok := h.readRequest(c)
	if !ok {
		return
	}

	input, err := toInvoiceInput(req)
	if err != nil {
		respondServiceError(c, "invalid_invoice_input", err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), input, attachment)
	if err != nil {
		respondServiceError(c, "failed_to_create_invoice", err)
		return
	}

	respondCreated(c, model.NewInvoiceResponse(invoice.WithoutAttachmentData()))
}

// ListInvoices handles the GET /invoices endpoint
// @Summary List all invoices
// @Description List every invoice, newest first. Admin only.
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.InvoiceListResponse "Invoices"
// @Failure 403 {object} model.ErrorResponse "Forbidden"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	invoices, err := h.invoiceService.ListAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, "failed_to_list_invoices", err)
		return
	}

	respondOK(c, model.NewInvoiceListResponse(invoices))
}

// SearchInvoice handles the GET /invoices/search endpoint
// @Summary Search an invoice by number
// @Description Find an invoice by its number. Matching ignores case and surrounding spaces.
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param invoiceNumber query string true "Invoice number"
// @Success 200 {object} model.InvoiceResponse "Invoice"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Failure 404 {object} model.ErrorResponse "Invoice not found"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/invoices/search [get]
func (h *InvoiceHandler) SearchInvoice(c *gin.Context) {
	number := strings.TrimSpace(c.Query("invoiceNumber"))
	if number == "" {
		respondBadRequest(c, ErrInvalidQueryParams, newErrorDetail("invoiceNumber", "Invoice number is required"))
		return
	}

	invoice, err := h.invoiceService.SearchByNumber(c.Request.Context(), number)
	if err != nil {
		respondServiceError(c, "failed_to_search_invoice", err)
		return
	}

	respondOK(c, model.NewInvoiceResponse(invoice))
}

// ListCustomerInvoices handles the GET /invoices/customer/:email endpoint
// @Summary List invoices of a customer
// @Description List the invoices addressed to an email, newest first
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param email path string true "Customer email"
// @Success 200 {object} model.InvoiceListResponse "Invoices"
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/invoices/customer/{email} [get]
func (h *InvoiceHandler) ListCustomerInvoices(c *gin.Context) {
	email, err := getPathParam(c, "email")
	if err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("email", err.Error()))
		return
	}

	invoices, err := h.invoiceService.ListByCustomer(c.Request.Context(), email)
	if err != nil {
		respondServiceError(c, "failed_to_list_customer_invoices", err)
		return
	}

	respondOK(c, model.NewInvoiceListResponse(invoices))
}

// GetInvoice handles the GET /invoices/:id endpoint
// @Summary Get an invoice
// @Description Get one invoice. Customers may only read their own invoices.
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 200 {object} model.InvoiceResponse "Invoice"
// @Failure 403 {object} model.ErrorResponse "Access denied"
// @Failure 404 {object} model.ErrorResponse "Invoice not found"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		respondUnauthorized(c, ErrPrincipalUnavailable)
		return
	}

	id, err := getPathParam(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("id", err.Error()))
		return
	}

	invoice, err := h.invoiceService.GetInvoiceDetail(c.Request.Context(), id, principal)
	if err != nil {
		respondServiceError(c, "failed_to_get_invoice", err)
		return
	}

	respondOK(c, model.NewInvoiceResponse(invoice))
}

// UpdateInvoice handles the PUT /invoices/:id endpoint
// @Summary Update an invoice
// @Description Partially update an invoice. Omitted fields keep their value; a new PDF replaces the stored one. Admin only.
// @Tags invoices
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Param invoiceNumber formData string false "Invoice number"
// @Param customerEmail formData string false "Customer email"
// @Param invoiceDate formData string false "Invoice date (YYYY-MM-DD)"
// @Param dueDate formData string false "Due date (YYYY-MM-DD)"
// @Param paymentStatus formData string false "Paid or Unpaid"
// @Param invoiceAmount formData string false "Invoice amount"
// @Param pdf formData file false "Replacement PDF"
// @Success 200 {object} model.InvoiceResponse "Invoice updated successfully"
// @Failure 400 {object} model.ErrorResponse "Validation failed"
// @Failure 403 {object} model.ErrorResponse "Forbidden"
// @Failure 404 {object} model.ErrorResponse "Invoice not found"
// @Failure 409 {object} model.ErrorResponse "Invoice number already exists"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id, err := getPathParam(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("id", err.Error()))
		return
	}

	req, attachment, ok := h.readRequest(c)
	if !ok {
		return
	}

	patch, err := toInvoicePatch(req)
	if err != nil {
		respondServiceError(c, "invalid_invoice_patch", err)
		return
	}
	if patch.IsEmpty() && attachment == nil {
		respondBadRequest(c, ErrNothingToUpdate)
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), id, patch, attachment)
	if err != nil {
		respondServiceError(c, "failed_to_update_invoice", err)
		return
	}

	respondOK(c, model.NewInvoiceResponse(invoice.WithoutAttachmentData()))
}

// DeleteInvoice handles the DELETE /invoices/:id endpoint
// @Summary Delete an invoice
// @Description Permanently delete an invoice and its PDF. Admin only.
// @Tags invoices
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 204 "Invoice deleted"
// @Failure 403 {object} model.ErrorResponse "Forbidden"
// @Failure 404 {object} model.ErrorResponse "Invoice not found"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, err := getPathParam(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("id", err.Error()))
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		respondServiceError(c, "failed_to_delete_invoice", err)
		return
	}

	respondNoContent(c)
}

// DownloadPDF handles the GET /invoices/:id/pdf/download endpoint
// @Summary Download the invoice PDF
// @Description Download the stored PDF as an attachment
// @Tags invoices
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 200 {file} file "PDF"
// @Failure 403 {object} model.ErrorResponse "Access denied"
// @Failure 404 {object} model.ErrorResponse "Invoice or attachment not found"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/invoices/{id}/pdf/download [get]
func (h *InvoiceHandler) DownloadPDF(c *gin.Context) {
	h.serveAttachment(c, domain.AttachmentModeDownload)
}

// ViewPDF handles the GET /invoices/:id/pdf/view endpoint
// @Summary View the invoice PDF
// @Description Render the stored PDF inline
// @Tags invoices
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 200 {file} file "PDF"
// @Failure 403 {object} model.ErrorResponse "Access denied"
// @Failure 404 {object} model.ErrorResponse "Invoice or attachment not found"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/invoices/{id}/pdf/view [get]
func (h *InvoiceHandler) ViewPDF(c *gin.Context) {
	h.serveAttachment(c, domain.AttachmentModeView)
}

func (h *InvoiceHandler) serveAttachment(c *gin.Context, mode domain.AttachmentMode) {
	principal, ok := principalFromContext(c)
	if !ok {
		respondUnauthorized(c, ErrPrincipalUnavailable)
		return
	}

	id, err := getPathParam(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("id", err.Error()))
		return
	}

	content, err := h.invoiceService.GetAttachment(c.Request.Context(), id, principal, mode)
	if err != nil {
		respondServiceError(c, "failed_to_get_attachment", err)
		return
	}

	respondAttachment(c, content)
}

// readRequest parses the body and writes the error response itself when it fails
func (h *InvoiceHandler) readRequest(c *gin.Context) (model.InvoiceRequest, *domain.Attachment, bool) {
	req, attachment, err := readInvoiceRequest(c, h.maxUploadSize)
	if err != nil {
		respondRequestError(c, err)
		return req, nil, false
	}
	return req, attachment, true
}

// respondRequestError maps a body parsing failure to its response
func respondRequestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errFileTooLarge):
		respondWithError(c, StatusRequestEntityTooLarge, ErrFileTooLarge, newErrorDetail(pdfField, err.Error()))
	case errors.Is(err, errFileUnreadable):
		respondBadRequest(c, ErrFileUpload, newErrorDetail(pdfField, err.Error()))
	default:
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("body", err.Error()))
	}
}

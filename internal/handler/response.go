package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/invoice-records-service/internal/domain"
	"github.com/ridwanfathin/invoice-records-service/internal/model"
)

// HTTP status codes as constants for consistency
const (
	StatusOK                    = http.StatusOK
	StatusCreated               = http.StatusCreated
	StatusNoContent             = http.StatusNoContent
	StatusBadRequest            = http.StatusBadRequest
	StatusUnauthorized          = http.StatusUnauthorized
	StatusForbidden             = http.StatusForbidden
	StatusNotFound              = http.StatusNotFound
	StatusConflict              = http.StatusConflict
	StatusRequestEntityTooLarge = http.StatusRequestEntityTooLarge
	StatusInternalServerError   = http.StatusInternalServerError
	StatusBadGateway            = http.StatusBadGateway
)

// Common error messages
const (
	ErrInvalidInput         = "Invalid input format"
	ErrValidationFailed     = "Validation failed"
	ErrInvoiceNotFound      = "Invoice not found"
	ErrAttachmentNotFound   = "No PDF attachment found for this invoice"
	ErrDuplicateInvoice     = "Invoice number already exists"
	ErrAccessDenied         = "You do not have access to this invoice"
	ErrInternalServer       = "Internal server error"
	ErrUpstreamFailure      = "A storage dependency failed, please retry"
	ErrInvalidQueryParams   = "Invalid query parameters"
	ErrFileUpload           = "Failed to read uploaded file"
	ErrFileTooLarge         = "Uploaded file is too large"
	ErrNothingToUpdate      = "No fields to update"
	ErrPrincipalUnavailable = "User not authenticated"
)

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, message string, details ...model.ErrorDetail) {
	response := model.ErrorResponse{
		Status:  http.StatusText(statusCode),
		Message: message,
		Details: details,
	}
	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...model.ErrorDetail) {
	respondWithError(c, StatusBadRequest, message, details...)
}

// respondUnauthorized sends a 401 Unauthorized response
func respondUnauthorized(c *gin.Context, message string) {
	respondWithError(c, StatusUnauthorized, message)
}

// respondForbidden sends a 403 Forbidden response
func respondForbidden(c *gin.Context, message string) {
	respondWithError(c, StatusForbidden, message)
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string) {
	respondWithError(c, StatusNotFound, message)
}

// respondConflict sends a 409 Conflict response
func respondConflict(c *gin.Context, message string) {
	respondWithError(c, StatusConflict, message)
}

// respondInternalServerError sends a 500 Internal Server Error response
func respondInternalServerError(c *gin.Context, message string) {
	respondWithError(c, StatusInternalServerError, message)
}

// respondSuccess sends a standardized success response with data
func respondSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// respondCreated sends a 201 Created response with data
func respondCreated(c *gin.Context, data interface{}) {
	respondSuccess(c, StatusCreated, data)
}

// respondOK sends a 200 OK response with data
func respondOK(c *gin.Context, data interface{}) {
	respondSuccess(c, StatusOK, data)
}

// respondNoContent sends a 204 No Content response
func respondNoContent(c *gin.Context) {
	c.Status(StatusNoContent)
}

// respondAttachment streams a PDF with its length and disposition headers
func respondAttachment(c *gin.Context, content *domain.AttachmentContent) {
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", content.Disposition, content.FileName))
	c.Header("Content-Length", strconv.FormatInt(content.Size, 10))
	c.Data(StatusOK, content.MimeType, content.Data)
}

// respondServiceError maps the domain error taxonomy onto HTTP responses.
// Internal detail is logged and never returned to the caller.
func respondServiceError(c *gin.Context, event string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		respondBadRequest(c, ErrValidationFailed, newValidationDetails(verr)...)
	case errors.Is(err, domain.ErrValidation):
		respondBadRequest(c, ErrValidationFailed)
	case errors.Is(err, domain.ErrDuplicateKey):
		respondConflict(c, ErrDuplicateInvoice)
	case errors.Is(err, domain.ErrAttachmentMissing):
		respondNotFound(c, ErrAttachmentNotFound)
	case errors.Is(err, domain.ErrNotFound):
		respondNotFound(c, ErrInvoiceNotFound)
	case errors.Is(err, domain.ErrAccessDenied):
		respondForbidden(c, ErrAccessDenied)
	case errors.Is(err, domain.ErrUpstream):
		logError(c, event, err, map[string]interface{}{
			"error_type": "upstream_error",
		})
		respondWithError(c, StatusBadGateway, ErrUpstreamFailure)
	default:
		logError(c, event, err, map[string]interface{}{
			"error_type": "internal_error",
		})
		respondInternalServerError(c, ErrInternalServer)
	}
}

// newErrorDetail creates a new error detail
func newErrorDetail(field, message string) model.ErrorDetail {
	return model.ErrorDetail{
		Field:   field,
		Message: message,
	}
}

// newValidationDetails converts the invalid fields of a validation error
func newValidationDetails(verr *domain.ValidationError) []model.ErrorDetail {
	details := make([]model.ErrorDetail, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		details = append(details, newErrorDetail(f.Field, f.Message))
	}
	return details
}

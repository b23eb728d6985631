// Package policy decides which principals may read an invoice and its PDF.
package policy

import "github.com/ridwanfathin/invoice-records-service/internal/domain"

// CanAccess reports whether p may read inv.
// Admins read everything; anyone else only invoices addressed to their own email.
func CanAccess(p domain.Principal, inv *domain.Invoice) bool {
	if inv == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	email := domain.NormalizeEmail(p.Email)
	return email != "" && email == inv.CustomerEmail
}

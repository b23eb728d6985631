package domain

// RoleAdmin is the role allowed to manage every invoice
const RoleAdmin = "admin"

// Principal is the authenticated caller of an operation
type Principal struct {
	Role  string
	Email string
}

// IsAdmin reports whether the principal carries the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// AttachmentMode selects how a PDF is handed to the caller
type AttachmentMode string

const (
	AttachmentModeDownload AttachmentMode = "download"
	AttachmentModeView     AttachmentMode = "view"
)

// Disposition returns the Content-Disposition type for the mode
func (m AttachmentMode) Disposition() string {
	if m == AttachmentModeView {
		return "inline"
	}
	return "attachment"
}

// AttachmentContent is a PDF ready to be delivered
type AttachmentContent struct {
	Data        []byte
	FileName    string
	MimeType    string
	Size        int64
	Disposition string
}

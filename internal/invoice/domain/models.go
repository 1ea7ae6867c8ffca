// Package domain describes partner commission invoices as served to operators.
package domain

type ListInvoiceRequest struct {
	PartnerID int64
	SortBy    string
	OrderBy   string
}

// Document is a rendered invoice PDF.
type Document struct {
	InvoiceID string
	Filename  string
	// Ref is the value stored in partner_invoices.pdf.
	Ref     string
	Content []byte
}

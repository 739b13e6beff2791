package scanning

import "context"

// Scanner defines the interface for invoice extraction operations
type Scanner interface {
	// ScanInvoice sends the invoice image and the extraction prompt to the model
	// and returns its raw text reply. Quota exhaustion is reported as a
	// *QuotaExhaustedError.
	ScanInvoice(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

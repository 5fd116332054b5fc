package domain

import "time"

const (
	SchemaInvoice            = "invoice"
	SchemaFinancialStatement = "financial_statement"
	SchemaContract           = "contract"
	SchemaForm               = "form"
)

// SchemaForDocType maps a classified document type to the vision-service
// schema tag, defaulting to invoice.
func SchemaForDocType(docType string) string {
	switch docType {
	case SchemaInvoice, SchemaFinancialStatement, SchemaContract, SchemaForm:
		return docType
	default:
		return SchemaInvoice
	}
}

// StructuredRecord holds schema-typed JSON derived from a document by the
// vision service. Records append within a run, one per extraction attempt.
type StructuredRecord struct {
	ID         string         `json:"id,omitempty"`
	DocID      string         `json:"doc_id"`
	SchemaType string         `json:"schema_type"`
	Data       map[string]any `json:"data"`
	Confidence float64        `json:"confidence"`
	SourcePage *int           `json:"source_page,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// InvoiceNumber pulls the invoice number out of structured data, if present.
func (r *StructuredRecord) InvoiceNumber() string {
	if r == nil || r.Data == nil {
		return ""
	}
	num, _ := r.Data["invoice_number"].(string)
	return num
}

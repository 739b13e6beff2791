package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const invoiceSchemaURL = "invoice.schema.json"

// buildInvoiceJSONSchema returns the JSON Schema every model reply must satisfy
func buildInvoiceJSONSchema() map[string]any {
	text := func() map[string]any {
		return map[string]any{"type": []string{"string", "null"}}
	}
	props := map[string]any{
		"invoice_number": text(),
		"date":           text(),
		"seller":         text(),
		"client":         text(),
		"category": map[string]any{
			"type": "string",
			"enum": Categories(),
		},
		"confidence": map[string]any{
			"type": "string",
			"enum": []string{string(ConfidenceHigh), string(ConfidenceMedium), string(ConfidenceLow)},
		},
		"items_found": map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": "string"},
		},
		"reasoning":    text(),
		"total_amount": text(),
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required": []string{
			"invoice_number", "date", "seller", "client", "category",
			"confidence", "items_found", "reasoning", "total_amount",
		},
	}
}

var invoiceSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(buildInvoiceJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(invoiceSchemaURL, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(invoiceSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// validateInvoiceDocument checks a decoded JSON document against the invoice schema
func validateInvoiceDocument(doc any) error {
	schema, err := invoiceSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

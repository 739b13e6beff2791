package scanning

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// stripCodeFence removes a single markdown code block wrapper, tagged
// ("```json") or bare ("```"), from a model reply
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
		text = text[4:]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text)
}

// ParseInvoice turns a raw model reply into validated invoice data for the
// given file. Any decoding or validation failure is a *MalformedOutputError.
func ParseInvoice(file string, text string) (*InvoiceData, error) {
	body := stripCodeFence(text)
	if body == "" {
		return nil, newMalformed(text, errors.New("empty response"))
	}

	// Numbers stay json.Number so amounts keep the digits the model wrote
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, newMalformed(body, fmt.Errorf("unmarshaling json: %w", err))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, newMalformed(body, errors.New("unexpected data after the JSON object"))
	}
	if doc == nil {
		return nil, newMalformed(body, errors.New("response is not a JSON object"))
	}

	normalizeInvoiceDocument(doc)

	if err := validateInvoiceDocument(doc); err != nil {
		return nil, newMalformed(body, err)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, newMalformed(body, fmt.Errorf("marshaling normalized json: %w", err))
	}
	var data InvoiceData
	if err := json.Unmarshal(normalized, &data); err != nil {
		return nil, newMalformed(body, fmt.Errorf("unmarshaling invoice: %w", err))
	}

	data.File = file
	data.InvoiceNumber = strings.TrimSpace(data.InvoiceNumber)
	data.Seller = strings.TrimSpace(data.Seller)
	data.Client = strings.TrimSpace(data.Client)
	data.TotalAmount = strings.TrimSpace(data.TotalAmount)
	if data.Items == nil {
		data.Items = []string{}
	}

	return &data, nil
}

// normalizeInvoiceDocument fixes spelling and type drift the model commonly
// produces before the document is validated
func normalizeInvoiceDocument(doc map[string]any) {
	if v, ok := doc["category"].(string); ok {
		if cat, found := CanonicalCategory(v); found {
			doc["category"] = string(cat)
		}
	}
	if v, ok := doc["confidence"].(string); ok {
		doc["confidence"] = strings.ToLower(strings.TrimSpace(v))
	}
	// Money is kept as text
	switch v := doc["total_amount"].(type) {
	case json.Number:
		doc["total_amount"] = v.String()
	case string:
		doc["total_amount"] = strings.TrimSpace(v)
	}
}

package scanning

import (
	"fmt"
	"strings"
)

// invoiceScanPrompt is the shared prompt used by all LLM providers for scanning invoices.
// The %s verb receives the category list.
const invoiceScanPrompt = `You are an invoice categorization assistant.

Analyze this invoice image and:

1. Extract key information:
   - Invoice number
   - Date of issue
   - Seller name
   - Client name
   - All item descriptions
   - Total amount (gross worth)

2. Categorize this invoice into ONE of these categories:
   - %s

3. Provide your response in this EXACT JSON format (no markdown, no code blocks, just pure JSON):
{
  "invoice_number": "extracted number",
  "date": "MM/DD/YYYY",
  "seller": "seller name",
  "client": "client name",
  "category": "selected category name",
  "confidence": "high/medium/low",
  "items_found": ["item 1", "item 2", "item 3"],
  "reasoning": "brief explanation of why this category was chosen",
  "total_amount": "numeric value only"
}

Base your categorization primarily on the description of goods/services in the invoice, not just the vendor name.
Respond ONLY with valid JSON, no additional text.`

// InvoicePrompt returns the extraction prompt with the category list inlined
func InvoicePrompt() string {
	return fmt.Sprintf(invoiceScanPrompt, strings.Join(Categories(), "\n   - "))
}

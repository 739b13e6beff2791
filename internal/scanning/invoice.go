package scanning

import "strings"

// Category is one of the fixed invoice categories the model must choose from
type Category string

const (
	OfficeSupplies       Category = "Office Supplies"
	TechnologyEquipment  Category = "Technology/IT Equipment"
	ProfessionalServices Category = "Professional Services"
	MarketingAdvertising Category = "Marketing/Advertising"
	TravelAccommodation  Category = "Travel & Accommodation"
	Utilities            Category = "Utilities"
	MaintenanceRepairs   Category = "Maintenance & Repairs"
	FoodBeverages        Category = "Food & Beverages"
	Furnitures           Category = "Furnitures"
	ShoesClothing        Category = "Shoes & Clothing"
	Other                Category = "Other"
)

var allCategories = []Category{
	OfficeSupplies,
	TechnologyEquipment,
	ProfessionalServices,
	MarketingAdvertising,
	TravelAccommodation,
	Utilities,
	MaintenanceRepairs,
	FoodBeverages,
	Furnitures,
	ShoesClothing,
	Other,
}

// Categories returns the category names in prompt order
func Categories() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// CanonicalCategory maps a case-insensitive category name to its fixed spelling
func CanonicalCategory(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}
	return "", false
}

// Confidence is the model's self-reported certainty about the category
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// InvoiceData contains extracted information from an invoice
type InvoiceData struct {
	File          string     `json:"invoice_file"`
	InvoiceNumber string     `json:"invoice_number"`
	Date          string     `json:"date"`
	Seller        string     `json:"seller"`
	Client        string     `json:"client"`
	Category      Category   `json:"category"`
	Confidence    Confidence `json:"confidence"`
	Items         []string   `json:"items_found"`
	Reasoning     string     `json:"reasoning"`
	TotalAmount   string     `json:"total_amount"` // numeric value kept as text
}

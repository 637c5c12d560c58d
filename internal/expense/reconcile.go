package expense

import "expense_tracker/internal/ocr"

// Patch maps expense columns to replacement values for a partial update.
type Patch map[string]string

// BuildReconcilePatch merges extracted receipt data into an expense. A field
// is only written when the current value is empty or a placeholder default,
// so explicit user input is never clobbered by OCR guesses. Status always
// flips to complete on a successful extraction.
func BuildReconcilePatch(e *Expense, data *ocr.ReceiptData) Patch {
	patch := Patch{}

	if data.Vendor != "" && (e.Vendor == "" || e.Vendor == PlaceholderVendor) {
		patch["vendor"] = data.Vendor
	}
	if data.Date != "" && e.Date == "" {
		patch["date"] = data.Date
	}
	if data.Total != "" && (e.Cost == "" || e.Cost == PlaceholderCost) {
		patch["cost"] = data.Total
	}
	if data.Location != "" && (e.Location == "" || e.Location == PlaceholderLocation) {
		patch["location"] = data.Location
	}
	if data.Category != "" && (e.Type == "" || e.Type == PlaceholderType) {
		patch["type"] = data.Category
	}
	if data.Description != "" && e.Comments == "" {
		patch["comments"] = data.Description
	}
	patch["status"] = StatusComplete

	return patch
}

// Apply writes the patch onto the in-memory expense.
func (p Patch) Apply(e *Expense) {
	for column, value := range p {
		switch column {
		case "vendor":
			e.Vendor = value
		case "date":
			e.Date = value
		case "cost":
			e.Cost = value
		case "location":
			e.Location = value
		case "type":
			e.Type = value
		case "comments":
			e.Comments = value
		case "status":
			e.Status = value
		case "receipt_path":
			e.ReceiptPath = value
		}
	}
}

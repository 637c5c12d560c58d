package expense

import "time"

// Placeholder defaults mark fields the user never meaningfully set. OCR
// reconciliation may replace them; genuine user input it must not touch.
const (
	PlaceholderVendor   = "Unknown Vendor"
	PlaceholderLocation = "Unknown Location"
	PlaceholderType     = "General Expense"
	PlaceholderCost     = "0"
)

const (
	StatusPending   = "pending"
	StatusComplete  = "complete"
	StatusOCRFailed = "ocr_failed"
)

// Expense keeps date and cost as strings. Receipt text yields amounts and
// dates of uneven quality; parsing them into numeric or time columns would
// force the extractor to discard values the user can still correct by hand.
type Expense struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	TripID      *int      `json:"trip_id,omitempty"`
	Vendor      string    `json:"vendor"`
	Date        string    `json:"date"`
	Cost        string    `json:"cost"`
	Location    string    `json:"location"`
	Type        string    `json:"type"`
	Comments    string    `json:"comments"`
	Status      string    `json:"status"`
	ReceiptPath string    `json:"receipt_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

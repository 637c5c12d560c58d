package ocr

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LineItem is a single purchased item recognized on a receipt.
type LineItem struct {
	Quantity    string `json:"quantity,omitempty"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// ReceiptData is the structured result of parsing raw OCR text. It is
// ephemeral: produced per recognition, folded into the task result and the
// expense record, never stored on its own.
type ReceiptData struct {
	Vendor   string     `json:"vendor"`
	Date     string     `json:"date"`
	Total    string     `json:"total"`
	Tax      string     `json:"tax"`
	Currency string     `json:"currency"`
	Items    []LineItem `json:"items"`

	// Optional fields a template-aware recognizer may fill; the heuristic
	// extractor leaves them empty.
	Location    string `json:"location,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// overridable clock so tests can pin the current-date fallback
var timeNow = time.Now

var (
	dateRe        = regexp.MustCompile(`(\d{1,4})[./-](\d{1,2})[./-](\d{1,4})`)
	totalLabelRe  = regexp.MustCompile(`(?i)total[:\s]*[$€£]?(\d+[.,]\d+)`)
	totalSuffixRe = regexp.MustCompile(`(?i)(\d+[.,]\d+)\s*total`)
	currencyAmtRe = regexp.MustCompile(`[$€£](\d+[.,]\d+)`)
	taxRe         = regexp.MustCompile(`(?i)tax[:\s]*[$€£]?(\d+[.,]\d+)`)
	itemQtyRe     = regexp.MustCompile(`(?m)^\s*(\d+)\s*[xX]\s+(.+?)\s+[$€£]?(\d+[.,]\d+)\s*$`)
	itemLooseRe   = regexp.MustCompile(`(?m)^\s*(.+?)\s+[$€£]?(\d+[.,]\d+)\s*$`)
)

// ExtractReceiptData parses raw OCR text with ordered heuristics: vendor from
// the first line, then date, total, tax, currency and line items from the
// whole text. Deterministic for a given input and clock.
func ExtractReceiptData(text string) ReceiptData {
	data := ReceiptData{
		Vendor:   extractVendor(text),
		Date:     extractDate(text),
		Total:    extractTotal(text),
		Tax:      extractTax(text),
		Currency: extractCurrency(text),
		Items:    extractItems(text),
	}
	return data
}

func extractVendor(text string) string {
	lines := strings.SplitN(text, "\n", 2)
	return strings.TrimSpace(lines[0])
}

// extractDate finds the first date-like token and normalizes it to
// YYYY-MM-DD. A four-digit leading group is read as Y-M-D, a four-digit
// trailing group as M-D-Y, and a two-digit trailing year is prefixed with
// "20". An unparseable match is kept verbatim; no match falls back to today.
func extractDate(text string) string {
	m := dateRe.FindStringSubmatch(text)
	if m == nil {
		return timeNow().Format("2006-01-02")
	}

	first, second, last := m[1], m[2], m[3]
	var year, month, day string
	switch {
	case len(first) == 4:
		year, month, day = first, second, last
	case len(last) == 4:
		year, month, day = last, first, second
	default:
		year, month, day = "20"+last, first, second
	}

	t, err := time.Parse("2006-1-2", fmt.Sprintf("%s-%s-%s", year, month, day))
	if err != nil {
		return m[0]
	}
	return t.Format("2006-01-02")
}

func extractTotal(text string) string {
	if m := totalLabelRe.FindStringSubmatch(text); m != nil {
		return normalizeAmount(m[1])
	}
	if m := totalSuffixRe.FindStringSubmatch(text); m != nil {
		return normalizeAmount(m[1])
	}

	// No explicit label: take the largest currency-prefixed amount.
	matches := currencyAmtRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	amounts := make([]string, 0, len(matches))
	for _, m := range matches {
		amounts = append(amounts, normalizeAmount(m[1]))
	}
	sort.Slice(amounts, func(i, j int) bool {
		a, _ := strconv.ParseFloat(amounts[i], 64)
		b, _ := strconv.ParseFloat(amounts[j], 64)
		return a > b
	})
	return amounts[0]
}

func extractTax(text string) string {
	if m := taxRe.FindStringSubmatch(text); m != nil {
		return normalizeAmount(m[1])
	}
	return ""
}

// extractCurrency checks symbols in precedence order: a dollar sign wins over
// euro, euro over pound. USD when no symbol is present.
func extractCurrency(text string) string {
	switch {
	case strings.Contains(text, "$"):
		return "USD"
	case strings.Contains(text, "€"):
		return "EUR"
	case strings.Contains(text, "£"):
		return "GBP"
	default:
		return "USD"
	}
}

func extractItems(text string) []LineItem {
	var items []LineItem

	// Structured "2 x Coffee 8.50" lines take precedence.
	if matches := itemQtyRe.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		for _, m := range matches {
			items = append(items, LineItem{
				Quantity:    m[1],
				Description: strings.TrimSpace(m[2]),
				Amount:      normalizeAmount(m[3]),
			})
		}
		return items
	}

	// Loose "description amount" fallback, skipping summary rows.
	for _, m := range itemLooseRe.FindAllStringSubmatch(text, -1) {
		desc := strings.TrimSpace(m[1])
		lower := strings.ToLower(desc)
		if strings.Contains(lower, "total") || strings.Contains(lower, "tax") || strings.Contains(lower, "subtotal") {
			continue
		}
		items = append(items, LineItem{
			Description: desc,
			Amount:      normalizeAmount(m[2]),
		})
	}
	return items
}

func normalizeAmount(s string) string {
	return strings.ReplaceAll(s, ",", ".")
}

package ocr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFixedClock(t *testing.T, fixed time.Time) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = orig })
}

func TestExtractVendor_FirstLine(t *testing.T) {
	data := ExtractReceiptData("  Corner Cafe  \n123 Main St\nTotal: $12.70")
	assert.Equal(t, "Corner Cafe", data.Vendor)
}

func TestExtractTotal_LabeledAmount(t *testing.T) {
	data := ExtractReceiptData("Total: $45.67")
	assert.Equal(t, "45.67", data.Total)
}

func TestExtractTotal_SuffixLabel(t *testing.T) {
	data := ExtractReceiptData("Receipt\n45.67 Total")
	assert.Equal(t, "45.67", data.Total)
}

func TestExtractTotal_LargestCurrencyAmount(t *testing.T) {
	data := ExtractReceiptData("$10.00\n$45.67\nfood")
	assert.Equal(t, "45.67", data.Total)
}

func TestExtractTotal_NoAmounts(t *testing.T) {
	data := ExtractReceiptData("just words, no numbers")
	assert.Equal(t, "", data.Total)
}

func TestExtractTotal_CommaDecimal(t *testing.T) {
	data := ExtractReceiptData("Total: 45,67")
	assert.Equal(t, "45.67", data.Total)
}

func TestExtractTax(t *testing.T) {
	data := ExtractReceiptData("Tax: $3.21\nTotal: $45.67")
	assert.Equal(t, "3.21", data.Tax)
}

func TestExtractTax_Absent(t *testing.T) {
	data := ExtractReceiptData("Total: $45.67")
	assert.Equal(t, "", data.Tax)
}

func TestExtractCurrency_Precedence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"dollar wins over euro and pound", "prices: $5.00 €4.00 £3.00", "USD"},
		{"euro wins over pound", "prices: €4.00 £3.00", "EUR"},
		{"pound alone", "price: £3.00", "GBP"},
		{"no symbol defaults to USD", "price: 3.00", "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := ExtractReceiptData(tt.text)
			assert.Equal(t, tt.want, data.Currency)
		})
	}
}

func TestExtractDate_Normalization(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"year first", "date 2024-03-05", "2024-03-05"},
		{"year last", "date 3/5/2024", "2024-03-05"},
		{"two digit year", "date 03-05-24", "2024-03-05"},
		{"dots", "date 12.25.2023", "2023-12-25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := ExtractReceiptData(tt.text)
			assert.Equal(t, tt.want, data.Date)
		})
	}
}

func TestExtractDate_UnparseableMatchKeptVerbatim(t *testing.T) {
	data := ExtractReceiptData("date 13/45/2023")
	assert.Equal(t, "13/45/2023", data.Date)
}

func TestExtractDate_FallsBackToCurrentDate(t *testing.T) {
	withFixedClock(t, time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC))

	data := ExtractReceiptData("Coffee Shop\nTotal: $45.67")
	assert.Equal(t, "2026-03-14", data.Date)
}

func TestExtractItems_QuantityLines(t *testing.T) {
	data := ExtractReceiptData("Corner Cafe\n2 x Coffee 8.50\n1 x Bagel $3.25\nTotal: $12.70")

	require.Len(t, data.Items, 2)
	assert.Equal(t, LineItem{Quantity: "2", Description: "Coffee", Amount: "8.50"}, data.Items[0])
	assert.Equal(t, LineItem{Quantity: "1", Description: "Bagel", Amount: "3.25"}, data.Items[1])
}

func TestExtractItems_LooseLinesSkipSummaryRows(t *testing.T) {
	data := ExtractReceiptData("Diner\nCoffee 8.50\nSandwich 12.00\nSubtotal 20.50\nTax 1.64\nTotal 22.14")

	require.Len(t, data.Items, 2)
	assert.Equal(t, "Coffee", data.Items[0].Description)
	assert.Equal(t, "8.50", data.Items[0].Amount)
	assert.Equal(t, "Sandwich", data.Items[1].Description)
	assert.Equal(t, "12.00", data.Items[1].Amount)
}

func TestExtractReceiptData_FullReceipt(t *testing.T) {
	withFixedClock(t, time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC))

	text := "Corner Cafe\n01/15/2024\n2 x Coffee 8.50\n1 x Bagel 3.25\nTax: 0.95\nTotal: $12.70"
	data := ExtractReceiptData(text)

	assert.Equal(t, "Corner Cafe", data.Vendor)
	assert.Equal(t, "2024-01-15", data.Date)
	assert.Equal(t, "12.70", data.Total)
	assert.Equal(t, "0.95", data.Tax)
	assert.Equal(t, "USD", data.Currency)
	require.Len(t, data.Items, 2)
}

package detail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "plain dollar amount", raw: "$1,234.56", want: "1234.56", ok: true},
		{name: "no cents", raw: "$820", want: "820.00", ok: true},
		{name: "whitespace and label debris", raw: " $ 99.95 ", want: "99.95", ok: true},
		// Observed site defect: an extra decimal point sneaks into the
		// rendered price. Only the last one survives repair.
		{name: "double decimal point repaired", raw: "6.273.99", want: "6273.99", ok: true},
		{name: "triple decimal point repaired", raw: "1.2.3.99", want: "123.99", ok: true},
		{name: "empty", raw: "", ok: false},
		{name: "no digits", raw: "call for pricing", ok: false},
		{name: "lone dot", raw: ".", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePrice(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFindLabeledPrice(t *testing.T) {
	labels := []string{"MSRP", "List Price", "List"}

	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{name: "msrp with colon", text: "MSRP: $1,234.56 per unit", want: "$1,234.56", ok: true},
		{name: "msrp without colon", text: "MSRP $820.00", want: "$820.00", ok: true},
		{name: "list price label", text: "List Price: $99.95", want: "$99.95", ok: true},
		{name: "case insensitive", text: "msrp: $42.00", want: "$42.00", ok: true},
		{name: "label without amount", text: "MSRP available after sign in", ok: false},
		{name: "amount without label", text: "Your price $12.00", ok: false},
		{name: "empty", text: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindLabeledPrice(tt.text, labels)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFindLabeledPriceLabelOrder(t *testing.T) {
	// Labels are tried in configured order, so MSRP wins over List even
	// when List appears first in the text.
	text := "List: $10.00 ... MSRP: $20.00"
	got, ok := FindLabeledPrice(text, []string{"MSRP", "List"})
	assert.True(t, ok)
	assert.Equal(t, "$20.00", got)
}

func TestFindAmountNearMSRP(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{name: "grouped amount", text: "Compare at MSRP value $1,499.00 today", want: "$1,499.00", ok: true},
		// Amounts rendered without thousands separators must come back
		// whole, not truncated to the first digit group.
		{name: "ungrouped amount", text: "MSRP 1499.00", want: "1499.00", ok: true},
		{name: "ungrouped with dollar sign", text: "MSRP: $6273.99", want: "$6273.99", ok: true},
		{name: "ungrouped multi-dot defect", text: "MSRP 6.273.99", want: "6.273.99", ok: true},
		{name: "no label", text: "Just a price $10.00 with no label", ok: false},
		{name: "label without amount", text: "MSRP not published", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindAmountNearMSRP(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

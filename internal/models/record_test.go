package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePrefersNewestNonEmpty(t *testing.T) {
	partial := ProductRecord{
		URL:        "https://example.com/Product/a",
		Brand:      "Hanwha",
		Title:      "old title",
		Model:      "QNV-8080R",
		Megapixels: "8",
		FormFactor: FormFactorDome,
		Vandal:     Bool(true),
	}
	enriched := ProductRecord{
		URL:     "https://example.com/Product/a",
		Title:   "refined title",
		Series:  "Q",
		MSRP:    "1234.56",
		MSRPRaw: "$1,234.56",
		IR:      Bool(true),
	}

	out := Merge(partial, enriched)

	assert.Equal(t, "refined title", out.Title)
	assert.Equal(t, "Q", out.Series)
	assert.Equal(t, "1234.56", out.MSRP)
	// Values the detail pass did not produce are retained from harvest.
	assert.Equal(t, "Hanwha", out.Brand)
	assert.Equal(t, "QNV-8080R", out.Model)
	assert.Equal(t, "8", out.Megapixels)
	assert.Equal(t, FormFactorDome, out.FormFactor)
	require.NotNil(t, out.Vandal)
	require.NotNil(t, out.IR)
}

// Monotonic-merge property: no field populated in the partial may regress
// to empty in the merged record.
func TestMergeNeverBlanksKnownValues(t *testing.T) {
	partial := ProductRecord{
		SKU: "SKU1", URL: "u", Brand: "b", Title: "t", Model: "m", AltModel: "am",
		Series: "s", Megapixels: "2", FormFactor: FormFactorBullet,
		Vandal: Bool(false), IR: Bool(true),
		IKRating: "IK10", LensType: "fixed", LensInfo: "4 mm",
		MSRP: "10.00", MSRPRaw: "$10.00",
	}

	out := Merge(partial, ProductRecord{})

	assert.Equal(t, partial, out)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "https://example.com/p", (&ProductRecord{URL: "https://example.com/p", Model: "m"}).Key())
	assert.Equal(t, "QNV-1", (&ProductRecord{Model: "QNV-1"}).Key())
	assert.Equal(t, "SKU9", (&ProductRecord{SKU: "SKU9"}).Key())
}

func TestRowMatchesHeaders(t *testing.T) {
	rec := ProductRecord{URL: "u", Vandal: Bool(true)}
	row := rec.Row()

	require.Len(t, row, len(Headers()))
	assert.Equal(t, "true", row[9])
	assert.Equal(t, "", row[10], "unset optional flag renders empty, not false")
}

// End-to-end reconciliation: 3 distinct harvested records, the detail pass
// prices 2 and exhausts the chain on the third.
func TestReconcileEndToEnd(t *testing.T) {
	partials := []ProductRecord{
		{URL: "https://example.com/Product/a", Model: "QNV-1", Title: "cam a"},
		{URL: "https://example.com/Product/b", Model: "QNV-2", Title: "cam b"},
		{URL: "https://example.com/Product/c", Model: "QNV-3", Title: "cam c"},
	}
	enriched := []ProductRecord{
		{URL: "https://example.com/Product/a", MSRP: "100.00", MSRPRaw: "$100.00"},
		{URL: "https://example.com/Product/b", MSRP: "250.00", MSRPRaw: "$250.00"},
		{URL: "https://example.com/Product/c", MSRPRaw: MSRPNotFound},
	}

	out := Reconcile(partials, enriched)
	require.Len(t, out, 3)

	priced := 0
	for _, r := range out {
		if r.HasPrice() {
			priced++
		}
	}
	assert.Equal(t, 2, priced)

	assert.Equal(t, "cam c", out[2].Title)
	assert.Empty(t, out[2].MSRP)
	assert.Equal(t, MSRPNotFound, out[2].MSRPRaw)
}

func TestReconcilePassesThroughUnmatched(t *testing.T) {
	partials := []ProductRecord{
		{URL: "https://example.com/Product/a", Title: "cam a"},
		{URL: "https://example.com/Product/b", Title: "cam b"},
	}
	enriched := []ProductRecord{
		{URL: "https://example.com/Product/b", MSRP: "99.00", MSRPRaw: "$99.00"},
	}

	out := Reconcile(partials, enriched)
	require.Len(t, out, 2)
	assert.Equal(t, "cam a", out[0].Title)
	assert.Empty(t, out[0].MSRP)
	assert.Equal(t, "99.00", out[1].MSRP)
}

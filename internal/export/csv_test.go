package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/models"
)

func TestWriteAndLoadRecords(t *testing.T) {
	dir := t.TempDir()

	records := []models.ProductRecord{
		{
			URL: "https://example.com/Product/a", Brand: "Hanwha", Title: "cam a",
			Model: "QNV-1", FormFactor: models.FormFactorDome, Vandal: models.Bool(true),
			MSRP: "100.00", MSRPRaw: "$100.00",
		},
		{
			URL: "https://example.com/Product/b", Brand: "Hanwha", Title: "cam b",
			Model: "QNV-2", MSRPRaw: models.MSRPNotFound,
		},
	}

	path, err := WriteRecords(dir, "Hanwha", "msrp", records)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "adi_hanwha_msrp_"))

	loaded, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, records[0].URL, loaded[0].URL)
	assert.Equal(t, "100.00", loaded[0].MSRP)
	require.NotNil(t, loaded[0].Vandal)
	assert.True(t, *loaded[0].Vandal)

	assert.Empty(t, loaded[1].MSRP)
	assert.Equal(t, models.MSRPNotFound, loaded[1].MSRPRaw)
}

func TestLoadRecordsRequiresURLColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("model,msrp\nQNV-1,10.00\n"), 0o644))

	_, err := LoadRecords(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestLoadRecordsToleratesPartialColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.csv")
	csv := "url,title\nhttps://example.com/Product/a,cam a\n,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	loaded, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1, "rows without url and model are dropped")
	assert.Equal(t, "cam a", loaded[0].Title)
	assert.Empty(t, loaded[0].MSRP)
}

func TestLoadRecordsMissingFile(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

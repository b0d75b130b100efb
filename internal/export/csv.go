// Package export is the tabular boundary: it serializes final record sets
// to timestamped CSV files and re-ingests prior catalog exports for
// PDP-only runs.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/models"
)

// WriteRecords writes rows to <dir>/adi_<brand>_<kind>_<timestamp>.csv and
// returns the path written.
func WriteRecords(dir, brand, kind string, records []models.ProductRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	ts := time.Now().Format("20060102_1504")
	path := filepath.Join(dir, fmt.Sprintf("adi_%s_%s_%s.csv", strings.ToLower(brand), kind, ts))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.Headers()); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for i := range records {
		if err := w.Write(records[i].Row()); err != nil {
			return "", fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	return path, nil
}

// LoadRecords reads a prior catalog export back into records for a
// PDP-only pass. The file must carry a url column; other known columns are
// optional and missing ones stay unset.
func LoadRecords(path string) ([]models.ProductRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("input file %s is empty", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["url"]; !ok {
		return nil, fmt.Errorf("input file %s must contain a 'url' column", path)
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	boolCell := func(row []string, name string) *bool {
		switch strings.ToLower(cell(row, name)) {
		case "true", "1", "yes":
			return models.Bool(true)
		case "false", "0", "no":
			return models.Bool(false)
		}
		return nil
	}

	records := make([]models.ProductRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := models.ProductRecord{
			SKU:        cell(row, "sku"),
			URL:        cell(row, "url"),
			Brand:      cell(row, "brand"),
			Title:      cell(row, "title"),
			Model:      cell(row, "model"),
			AltModel:   cell(row, "alt_model"),
			Series:     cell(row, "series"),
			Megapixels: cell(row, "megapixels"),
			FormFactor: models.FormFactor(cell(row, "form_factor")),
			Vandal:     boolCell(row, "vandal"),
			IR:         boolCell(row, "ir"),
			IKRating:   cell(row, "ik_rating"),
			LensType:   cell(row, "lens_type"),
			LensInfo:   cell(row, "lens_info"),
			MSRP:       cell(row, "msrp"),
			MSRPRaw:    cell(row, "msrp_raw"),
		}
		if rec.URL == "" && rec.Model == "" {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

package models

import "strconv"

// FormFactor is the coarse camera body classification mined from titles.
type FormFactor string

const (
	FormFactorBullet FormFactor = "Bullet"
	FormFactorDome   FormFactor = "Dome"
	FormFactorTurret FormFactor = "Turret"
	FormFactorPTZ    FormFactor = "PTZ"
	FormFactorBox    FormFactor = "Box"
)

// MSRPNotFound marks a record whose price could not be located after the
// full fallback chain ran. It is a normal outcome, not an error.
const MSRPNotFound = "not found"

// ProductRecord is one catalog item as it moves through the pipeline:
// created partial by the harvester, enriched by the detail extractor,
// finalized by Merge. At least one of URL or Model must be non-empty.
type ProductRecord struct {
	SKU      string `json:"sku"`
	URL      string `json:"url"`
	Brand    string `json:"brand"`
	Title    string `json:"title"`
	Model    string `json:"model"`
	AltModel string `json:"alt_model"`

	Series     string     `json:"series"`
	Megapixels string     `json:"megapixels"`
	FormFactor FormFactor `json:"form_factor"`
	Vandal     *bool      `json:"vandal"`
	IR         *bool      `json:"ir"`
	IKRating   string     `json:"ik_rating"`
	LensType   string     `json:"lens_type"`
	LensInfo   string     `json:"lens_info"`

	// MSRP is the normalized numeric price as a string, empty when absent.
	// MSRPRaw keeps the original page text, or a diagnostic marker
	// ("not found", "TIMEOUT", "ERROR: ...").
	MSRP    string `json:"msrp"`
	MSRPRaw string `json:"msrp_raw"`
}

// Key returns the dedupe identity: URL when present, model code otherwise.
func (r *ProductRecord) Key() string {
	if r.URL != "" {
		return r.URL
	}
	if r.Model != "" {
		return r.Model
	}
	return r.SKU
}

// HasPrice reports whether a normalized price has been extracted.
func (r *ProductRecord) HasPrice() bool {
	return r.MSRP != ""
}

// Merge reconciles a partial harvest record with its enriched counterpart.
// Per field the enriched non-empty value wins, otherwise the partial value
// is retained. A populated field never regresses to empty.
func Merge(partial, enriched ProductRecord) ProductRecord {
	out := partial

	out.SKU = pick(partial.SKU, enriched.SKU)
	out.URL = pick(partial.URL, enriched.URL)
	out.Brand = pick(partial.Brand, enriched.Brand)
	out.Title = pick(partial.Title, enriched.Title)
	out.Model = pick(partial.Model, enriched.Model)
	out.AltModel = pick(partial.AltModel, enriched.AltModel)
	out.Series = pick(partial.Series, enriched.Series)
	out.Megapixels = pick(partial.Megapixels, enriched.Megapixels)
	out.IKRating = pick(partial.IKRating, enriched.IKRating)
	out.LensType = pick(partial.LensType, enriched.LensType)
	out.LensInfo = pick(partial.LensInfo, enriched.LensInfo)
	out.MSRP = pick(partial.MSRP, enriched.MSRP)
	out.MSRPRaw = pick(partial.MSRPRaw, enriched.MSRPRaw)

	if enriched.FormFactor != "" {
		out.FormFactor = enriched.FormFactor
	}
	if enriched.Vandal != nil {
		out.Vandal = enriched.Vandal
	}
	if enriched.IR != nil {
		out.IR = enriched.IR
	}

	return out
}

func pick(old, new string) string {
	if new != "" {
		return new
	}
	return old
}

// Reconcile merges the harvest pass with the detail pass, pairing records
// by dedupe key. Output preserves the partial sequence's order and length;
// a partial with no enriched counterpart passes through unchanged.
func Reconcile(partials, enriched []ProductRecord) []ProductRecord {
	byKey := make(map[string]ProductRecord, len(enriched))
	for _, e := range enriched {
		byKey[e.Key()] = e
	}

	out := make([]ProductRecord, 0, len(partials))
	for _, p := range partials {
		if e, ok := byKey[p.Key()]; ok {
			out = append(out, Merge(p, e))
		} else {
			out = append(out, p)
		}
	}
	return out
}

// Headers lists the export column order.
func Headers() []string {
	return []string{
		"sku", "url", "brand", "title", "model", "alt_model",
		"series", "megapixels", "form_factor", "vandal", "ir",
		"ik_rating", "lens_type", "lens_info", "msrp", "msrp_raw",
	}
}

// Row projects the record into a flat CSV row matching Headers.
func (r *ProductRecord) Row() []string {
	return []string{
		r.SKU, r.URL, r.Brand, r.Title, r.Model, r.AltModel,
		r.Series, r.Megapixels, string(r.FormFactor),
		boolCell(r.Vandal), boolCell(r.IR),
		r.IKRating, r.LensType, r.LensInfo, r.MSRP, r.MSRPRaw,
	}
}

func boolCell(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

// Bool is a convenience for populating the optional flag fields.
func Bool(v bool) *bool { return &v }

// Package catalog harvests partial product records from a brand's listing
// page. The site renders listings with "show more" pagination and lazy
// loading, so the harvester drives a bounded load-exhaustion loop before
// extracting all rendered tiles in one pass.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/playwright-community/playwright-go"

	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/config"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/diagnostics"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/models"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/parser"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/session"
)

// defaultTileSelectors are tried in order each iteration; the site's markup
// differs across listing templates, so the first selector that matches any
// tiles wins. Brand config can prepend overrides.
var defaultTileSelectors = []string{
	"[data-test-selector='productCard']",
	"[data-product-card]",
	".product-card",
	"li.product-list-item",
}

var loadMoreSelectors = []string{
	"[data-test-selector='showMoreProducts']",
	"button:has-text('Show More')",
	"button:has-text('Load More')",
	"a:has-text('Show More')",
}

// tileExtractScript runs once over the fully loaded listing and returns the
// raw fields per tile. The detail link comes from the description anchor,
// falling back to an image-wrapping anchor.
const tileExtractScript = `(sel) => {
	const out = [];
	for (const tile of document.querySelectorAll(sel)) {
		let link = tile.querySelector("a[data-test-selector='productDescriptionLink'], .product-title a, a.product-link");
		if (!link) {
			for (const a of tile.querySelectorAll('a')) {
				if (a.querySelector('img')) { link = a; break; }
			}
		}
		const brandEl = tile.querySelector("[data-test-selector='productBrand'], .product-brand, .brand");
		const titleEl = tile.querySelector("[data-test-selector='productTitle'], .product-title, h2, h3");
		out.push({
			href: link ? (link.getAttribute('href') || '') : '',
			brand: brandEl ? brandEl.textContent.trim() : '',
			title: titleEl ? titleEl.textContent.trim() : '',
			text: tile.textContent ? tile.textContent.trim() : '',
		});
	}
	return out;
}`

type Harvester struct {
	cfg    config.HarvestConfig
	debug  *diagnostics.Recorder
	logger *slog.Logger
}

func NewHarvester(cfg config.HarvestConfig, debug *diagnostics.Recorder) *Harvester {
	return &Harvester{
		cfg:    cfg,
		debug:  debug,
		logger: slog.Default().With("component", "harvester"),
	}
}

// Harvest navigates to the brand listing, loads it to exhaustion and
// returns the deduplicated partial records in first-seen order.
func (h *Harvester) Harvest(ctx context.Context, sess *session.Session, brand config.BrandConfig) ([]models.ProductRecord, error) {
	page := sess.Page()

	h.logger.Info("starting harvest", "brand", brand.Name, "url", brand.ListingURL)
	if err := sess.Navigate(brand.ListingURL); err != nil {
		return nil, fmt.Errorf("failed to open listing: %w", err)
	}
	session.DismissOverlays(page)

	selectors := append(append([]string{}, brand.TileSelectors...), defaultTileSelectors...)

	activeSelector, err := h.loadToExhaustion(ctx, page, selectors)
	if err != nil {
		return nil, err
	}

	if activeSelector == "" {
		h.logger.Warn("no tiles matched any selector", "brand", brand.Name)
		h.debug.Capture(page, "empty_harvest_"+strings.ToLower(brand.Name))
		return nil, nil
	}

	records, err := h.extractTiles(page, activeSelector, brand)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		h.debug.Capture(page, "zero_records_"+strings.ToLower(brand.Name))
	}

	h.logger.Info("harvest complete", "brand", brand.Name, "records", len(records))
	return records, nil
}

// loadToExhaustion triggers progressive loading until the tile count stays
// stable. It returns the tile selector that was matching at the end.
func (h *Harvester) loadToExhaustion(ctx context.Context, page playwright.Page, selectors []string) (string, error) {
	loop := newExhaustLoop(h.cfg.MaxIterations, h.cfg.StableThreshold)
	activeSelector := ""

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		count, sel := countTiles(page, selectors)
		if sel != "" {
			activeSelector = sel
		}

		clicked := clickLoadMore(page)

		// Scroll regardless of the click: some templates lazy-load on
		// scroll with no button at all.
		if _, err := page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			h.logger.Debug("scroll failed", "error", err)
		}
		page.WaitForTimeout(float64(h.cfg.LoadSettle.Milliseconds()))

		if loop.Observe(count, clicked) {
			h.logger.Debug("listing exhausted", "tiles", count, "iterations", loop.iterations)
			return activeSelector, nil
		}
	}
}

// countTiles returns the rendered tile count under the first selector that
// matches anything.
func countTiles(page playwright.Page, selectors []string) (int, string) {
	for _, sel := range selectors {
		count, err := page.Locator(sel).Count()
		if err != nil {
			continue
		}
		if count > 0 {
			return count, sel
		}
	}
	return 0, ""
}

// clickLoadMore clicks a visible, enabled load-more affordance if present.
// Any failure counts as no progress this iteration.
func clickLoadMore(page playwright.Page) bool {
	for _, sel := range loadMoreSelectors {
		btn := page.Locator(sel).First()
		count, err := btn.Count()
		if err != nil || count == 0 {
			continue
		}
		if visible, err := btn.IsVisible(); err != nil || !visible {
			continue
		}
		if enabled, err := btn.IsEnabled(); err != nil || !enabled {
			continue
		}
		if err := btn.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(3000)}); err != nil {
			continue
		}
		return true
	}
	return false
}

func (h *Harvester) extractTiles(page playwright.Page, selector string, brand config.BrandConfig) ([]models.ProductRecord, error) {
	raw, err := page.Evaluate(tileExtractScript, selector)
	if err != nil {
		return nil, fmt.Errorf("tile extraction failed: %w", err)
	}

	tiles, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected tile extraction result %T", raw)
	}

	base, _ := url.Parse(brand.ListingURL)

	var records []models.ProductRecord
	for _, t := range tiles {
		tile, ok := t.(map[string]interface{})
		if !ok {
			continue
		}

		rec, ok := h.tileToRecord(tile, base, brand)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	return dedupe(records, h.cfg.SeenCacheSize)
}

// dedupe drops later records sharing a dedupe key with an earlier one.
// First-seen order is preserved; duplicates are dropped whole, not merged.
// The seen cache is grown to cover the whole batch so eviction can never
// let a far-apart duplicate back in.
func dedupe(records []models.ProductRecord, cacheSize int) ([]models.ProductRecord, error) {
	if cacheSize < len(records) {
		cacheSize = len(records)
	}
	if cacheSize < 2 {
		cacheSize = 2
	}
	seen, err := lru.New[string, struct{}](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create seen cache: %w", err)
	}

	out := records[:0]
	for _, rec := range records {
		if _, dup := seen.Get(rec.Key()); dup {
			continue
		}
		seen.Add(rec.Key(), struct{}{})
		out = append(out, rec)
	}
	return out, nil
}

// tileToRecord converts one raw tile into a partial record. Tiles without a
// detail-page-shaped URL are promotional cards, not products, and are
// skipped silently.
func (h *Harvester) tileToRecord(tile map[string]interface{}, base *url.URL, brand config.BrandConfig) (models.ProductRecord, bool) {
	href := stringField(tile, "href")
	abs := resolveURL(base, href)
	if !isProductURL(abs) {
		return models.ProductRecord{}, false
	}

	rec := models.ProductRecord{
		URL:   abs,
		Brand: stringField(tile, "brand"),
		Title: stringField(tile, "title"),
	}
	if rec.Brand == "" {
		rec.Brand = brand.Name
	}

	rec.Model, rec.AltModel = parser.ExtractModelCodes(stringField(tile, "text"), brand.AltModelPrefixes)
	if rec.Model == "" && rec.URL == "" {
		return models.ProductRecord{}, false
	}

	parser.MineTitle(&rec, rec.Title)
	return rec, true
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return strings.TrimSpace(v)
}

func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// isProductURL checks for the detail-page path shape.
func isProductURL(u string) bool {
	return strings.Contains(u, "/Product/") || strings.Contains(strings.ToLower(u), "/product/")
}

// Package detail enriches harvested records by visiting each product
// detail page and extracting price and structured attributes through an
// ordered chain of strategies. A single page failing never aborts the
// batch: the failure is recorded on that record and processing moves on.
package detail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/config"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/diagnostics"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/models"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/parser"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/ratelimit"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/session"
)

// markerTimeout and the ERROR prefix are the per-record diagnostic markers
// for failed items; MSRPNotFound covers the legitimate no-price case.
const (
	markerTimeout     = "TIMEOUT"
	markerErrorPrefix = "ERROR: "
)

// gateMarkers are the phrases that identify the dealer-pricing sign-in
// gate on a detail page.
var gateMarkers = []string{
	"sign in for dealer pricing",
	"sign in for pricing",
	"log in to see pricing",
}

var drawerSelectors = []string{
	"[data-test-selector='signInForPricing']",
	"button:has-text('Sign In for Pricing')",
	"a:has-text('Sign In for Pricing')",
	"header a:has-text('Sign In')",
}

type Extractor struct {
	cfg     config.DetailConfig
	limiter ratelimit.RateLimiter
	debug   *diagnostics.Recorder
	logger  *slog.Logger
}

func NewExtractor(cfg config.DetailConfig, debug *diagnostics.Recorder) *Extractor {
	return &Extractor{
		cfg:     cfg,
		limiter: ratelimit.NewSimpleRateLimiter(cfg.ItemDelayMin, cfg.ItemDelayMax),
		debug:   debug,
		logger:  slog.Default().With("component", "detail_extractor"),
	}
}

// Enrich processes records strictly in input order, one page at a time.
// With onlyMissing set, records already carrying a price pass through
// untouched and their URL is never visited.
func (e *Extractor) Enrich(ctx context.Context, sess *session.Session, records []models.ProductRecord, brand config.BrandConfig, onlyMissing bool) ([]models.ProductRecord, error) {
	out := make([]models.ProductRecord, 0, len(records))

	for i, rec := range records {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		if onlyMissing && rec.HasPrice() {
			out = append(out, rec)
			continue
		}

		enriched := e.enrichOne(ctx, sess, rec, brand)
		out = append(out, enriched)

		e.logger.Info("item processed", "index", i+1, "total", len(records),
			"model", enriched.Model, "msrp", enriched.MSRP, "raw", enriched.MSRPRaw)

		if err := e.limiter.Wait(ctx); err != nil {
			return out, err
		}
	}

	return out, nil
}

// enrichOne visits one detail page and runs attribute and price
// extraction. Failures degrade to diagnostic markers on the record.
func (e *Extractor) enrichOne(ctx context.Context, sess *session.Session, rec models.ProductRecord, brand config.BrandConfig) models.ProductRecord {
	page := sess.Page()

	if rec.URL == "" {
		rec.MSRPRaw = markerErrorPrefix + "no detail URL"
		return rec
	}

	if err := sess.Navigate(rec.URL); err != nil {
		rec.MSRPRaw = failureMarker(err)
		return rec
	}
	session.DismissOverlays(page)
	e.settle(page)

	if err := e.extractAttributes(page, &rec, brand); err != nil {
		e.logger.Warn("attribute extraction failed", "url", rec.URL, "error", err)
	}

	raw, err := e.extractPrice(page, sess, brand)
	if err != nil {
		e.debug.Capture(page, "price_failure")
		rec.MSRPRaw = failureMarker(err)
		return rec
	}
	if raw == "" {
		// Exhausted the fallback chain with no hit. Expected for some
		// items, distinct from a timeout or an exception.
		rec.MSRPRaw = models.MSRPNotFound
		rec.MSRP = ""
		return rec
	}

	rec.MSRPRaw = raw
	if normalized, ok := NormalizePrice(raw); ok {
		rec.MSRP = normalized
	}
	return rec
}

// settle waits for the page's primary render signal, falling back to a
// short fixed delay. Always bounded.
func (e *Extractor) settle(page playwright.Page) {
	err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(e.cfg.PricingTimeout.Milliseconds())),
	})
	if err != nil {
		page.WaitForTimeout(float64(e.cfg.PageSettle.Milliseconds()))
	}
}

func (e *Extractor) extractAttributes(page playwright.Page, rec *models.ProductRecord, brand config.BrandConfig) error {
	html, err := page.Content()
	if err != nil {
		return fmt.Errorf("failed to read page content: %w", err)
	}

	facts, err := parser.ParseDetailPage(html, brand.AltModelPrefixes)
	if err != nil {
		return err
	}

	if facts.Title != "" && rec.Title == "" {
		rec.Title = facts.Title
	}
	if facts.Model != "" && rec.Model == "" {
		rec.Model = facts.Model
	}
	if facts.AltModel != "" && rec.AltModel == "" {
		rec.AltModel = facts.AltModel
	}

	parser.RefineFromFeatures(rec, facts)
	return nil
}

// extractPrice runs the ordered fallback chain: scoped label search, then
// the dealer-gate re-auth path, then the raw MSRP-adjacent scan. An empty
// result with nil error means the chain was exhausted cleanly.
func (e *Extractor) extractPrice(page playwright.Page, sess *session.Session, brand config.BrandConfig) (string, error) {
	if raw, ok := e.labeledPriceOnPage(page, brand); ok {
		return raw, nil
	}

	gated, err := e.pricingGatePresent(page)
	if err != nil {
		return "", err
	}
	if gated {
		raw, err := e.priceThroughGate(page, sess, brand)
		if err != nil {
			return "", err
		}
		if raw != "" {
			return raw, nil
		}
	}

	return e.rawScan(page)
}

// labeledPriceOnPage searches the pricing scope first, then the whole
// page, for a recognized price label followed by an amount.
func (e *Extractor) labeledPriceOnPage(page playwright.Page, brand config.BrandConfig) (string, bool) {
	html, err := page.Content()
	if err != nil {
		return "", false
	}

	facts, err := parser.ParseDetailPage(html, nil)
	if err != nil {
		return "", false
	}

	if facts.PricingText != "" {
		if raw, ok := FindLabeledPrice(facts.PricingText, brand.PriceLabels); ok {
			return raw, true
		}
	}
	if raw, ok := FindLabeledPrice(facts.PageText, brand.PriceLabels); ok {
		return raw, true
	}
	return "", false
}

func (e *Extractor) pricingGatePresent(page playwright.Page) (bool, error) {
	html, err := page.Content()
	if err != nil {
		return false, fmt.Errorf("failed to read page for gate check: %w", err)
	}
	lower := strings.ToLower(html)
	for _, marker := range gateMarkers {
		if strings.Contains(lower, marker) {
			return true, nil
		}
	}
	return false, nil
}

// runGateSequence drives the gated-price attempt order: re-authenticate
// first, re-query the price in place, and only if that still misses spend
// exactly one reload before the final query.
func runGateSequence(reauth func() error, query func() (string, bool), reload func() error) (string, error) {
	if err := reauth(); err != nil {
		return "", fmt.Errorf("gate re-auth failed: %w", err)
	}
	if raw, ok := query(); ok {
		return raw, nil
	}
	if err := reload(); err != nil {
		return "", fmt.Errorf("post-login reload failed: %w", err)
	}
	if raw, ok := query(); ok {
		return raw, nil
	}
	return "", nil
}

// priceThroughGate opens the in-page sign-in affordance and runs the gate
// sequence against the live page.
func (e *Extractor) priceThroughGate(page playwright.Page, sess *session.Session, brand config.BrandConfig) (string, error) {
	e.logger.Info("dealer pricing gate detected, re-authenticating in page")

	openDrawer(page)
	return runGateSequence(
		func() error {
			if err := sess.Reauthenticate(page); err != nil {
				return err
			}
			// Viewing gated pricing refreshes the session; the price
			// often loads in place with no navigation.
			page.WaitForTimeout(float64(e.cfg.PageSettle.Milliseconds()))
			return nil
		},
		func() (string, bool) { return e.labeledPriceOnPage(page, brand) },
		func() error {
			if _, err := page.Reload(playwright.PageReloadOptions{
				WaitUntil: playwright.WaitUntilStateDomcontentloaded,
				Timeout:   playwright.Float(float64(e.cfg.PricingTimeout.Milliseconds())),
			}); err != nil {
				return err
			}
			e.settle(page)
			return nil
		},
	)
}

func openDrawer(page playwright.Page) {
	for _, sel := range drawerSelectors {
		b := page.Locator(sel).First()
		count, err := b.Count()
		if err != nil || count == 0 {
			continue
		}
		if err := b.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(3000)}); err != nil {
			continue
		}
		page.WaitForTimeout(500)
		return
	}
}

// rawScan tries several node-selection strategies over the pricing scope
// for any text that looks like a currency amount near the word MSRP.
func (e *Extractor) rawScan(page playwright.Page) (string, error) {
	scopes := []string{
		"[data-test-selector='productPricing']",
		".product-price-column",
		".pricing-column",
		"body",
	}

	for _, scope := range scopes {
		loc := page.Locator(scope).First()
		count, err := loc.Count()
		if err != nil || count == 0 {
			continue
		}
		text, err := loc.InnerText(playwright.LocatorInnerTextOptions{
			Timeout: playwright.Float(3000),
		})
		if err != nil {
			continue
		}
		if raw, ok := FindAmountNearMSRP(text); ok {
			return raw, nil
		}
	}
	return "", nil
}

// failureMarker converts a per-item error into the record's diagnostic
// marker, distinguishing timeouts from other failures.
func failureMarker(err error) string {
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return markerTimeout
	}
	return markerErrorPrefix + err.Error()
}

// Package parser derives structured product attributes from listing tile
// text and detail-page HTML. All matches run against the site's fixed
// vocabulary; an absent match leaves the attribute unset rather than
// fabricating a default.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/models"
)

var (
	// modelCodeRe matches short alphanumeric-with-hyphen vendor codes like
	// QNV-8080R or XNO-6120R/TM.
	modelCodeRe = regexp.MustCompile(`\b[A-Z]{1,4}[A-Z0-9]*(?:-[A-Z0-9/]{2,})+\b`)

	megapixelRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:MP\b|megapixel)`)
	seriesRe    = regexp.MustCompile(`(?i)\b([A-Z])[\s-]?Series\b`)
	irRe        = regexp.MustCompile(`(?i)\bIR\b|infrared`)
	vandalRe    = regexp.MustCompile(`(?i)vandal`)
	ikRatingRe  = regexp.MustCompile(`(?i)\b(IK\d{2})\b`)
	lensInfoRe  = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:~|-|to)\s*\d+(?:\.\d+)?\s*mm\b|\b\d+(?:\.\d+)?\s*mm\b`)
	varifocalRe = regexp.MustCompile(`(?i)varifocal|motorized`)
	fixedLensRe = regexp.MustCompile(`(?i)fixed\s+(?:lens|focal)`)
)

// formFactorWords is the fixed vocabulary for the coarse body type. First
// keyword found wins.
var formFactorWords = []struct {
	word string
	ff   models.FormFactor
}{
	{"bullet", models.FormFactorBullet},
	{"dome", models.FormFactorDome},
	{"turret", models.FormFactorTurret},
	{"ptz", models.FormFactorPTZ},
	{"box", models.FormFactorBox},
}

// ExtractModelCodes pulls up to two vendor codes from free text. The first
// token is the primary model; for the alt model a token carrying a
// recognized secondary-vendor prefix is preferred over plain second place.
// Hyphenated marketing phrases without a digit (X-Series, Wi-Fi) are not
// codes and are dropped before ranking.
func ExtractModelCodes(text string, altPrefixes []string) (model, alt string) {
	var tokens []string
	for _, tok := range modelCodeRe.FindAllString(strings.ToUpper(text), -1) {
		if strings.ContainsAny(tok, "0123456789") {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return "", ""
	}

	model = tokens[0]
	for _, tok := range tokens[1:] {
		if tok == model {
			continue
		}
		if alt == "" {
			alt = tok
		}
		for _, p := range altPrefixes {
			if strings.HasPrefix(tok, strings.ToUpper(p)) {
				return model, tok
			}
		}
	}
	return model, alt
}

// MineTitle refines a record with coarse attributes pattern-matched from
// listing title text. Already populated fields are left alone.
func MineTitle(rec *models.ProductRecord, title string) {
	if m := megapixelRe.FindStringSubmatch(title); m != nil && rec.Megapixels == "" {
		rec.Megapixels = m[1]
	}

	if rec.FormFactor == "" {
		lower := strings.ToLower(title)
		for _, f := range formFactorWords {
			if strings.Contains(lower, f.word) {
				rec.FormFactor = f.ff
				break
			}
		}
	}

	if rec.Vandal == nil && vandalRe.MatchString(title) {
		rec.Vandal = models.Bool(true)
	}
	if rec.IR == nil && irRe.MatchString(title) {
		rec.IR = models.Bool(true)
	}
	if m := seriesRe.FindStringSubmatch(title); m != nil && rec.Series == "" {
		rec.Series = strings.ToUpper(m[1])
	}
}

// DetailFacts is what a product detail page yields before price extraction.
type DetailFacts struct {
	Title       string
	Features    []string
	Model       string
	AltModel    string
	PricingText string
	PageText    string
}

var leftColumnSelectors = "[data-test-selector='productDetailsLeft'], .product-detail-left, .pdp-left-column, .left-column"

var pricingScopeSelectors = "[data-test-selector='productPricing'], .product-price-column, .pricing-column, .pdp-right-column"

// ParseDetailPage extracts title, key-feature bullets and model codes from
// the detail page HTML, scoped to the left column when the template has
// one, else best-effort over the whole page.
func ParseDetailPage(html string, altPrefixes []string) (*DetailFacts, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail HTML: %w", err)
	}

	scope := doc.Find(leftColumnSelectors).First()
	if scope.Length() == 0 {
		scope = doc.Find("body").First()
	}

	facts := &DetailFacts{
		Title:    strings.TrimSpace(scope.Find("h1").First().Text()),
		PageText: squashSpace(doc.Find("body").Text()),
	}
	if facts.Title == "" {
		facts.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	scope.Find("ul li").Each(func(_ int, s *goquery.Selection) {
		text := squashSpace(s.Text())
		if text != "" && len(text) < 200 {
			facts.Features = append(facts.Features, text)
		}
	})

	facts.Model, facts.AltModel = ExtractModelCodes(squashSpace(scope.Text()), altPrefixes)

	pricing := doc.Find(pricingScopeSelectors).First()
	if pricing.Length() > 0 {
		facts.PricingText = squashSpace(pricing.Text())
	}

	return facts, nil
}

// RefineFromFeatures mines the key-feature bullets for the attributes that
// only appear on detail pages: IK impact rating and lens type/range. The
// series falls out of the model's leading letter.
func RefineFromFeatures(rec *models.ProductRecord, facts *DetailFacts) {
	if rec.Series == "" && rec.Model != "" {
		rec.Series = rec.Model[:1]
	}

	joined := strings.Join(facts.Features, " | ")

	if rec.IKRating == "" {
		if m := ikRatingRe.FindStringSubmatch(joined); m != nil {
			rec.IKRating = strings.ToUpper(m[1])
		}
	}

	if rec.LensInfo == "" {
		if m := lensInfoRe.FindString(joined); m != "" {
			rec.LensInfo = squashSpace(m)
		}
	}

	if rec.LensType == "" {
		switch {
		case varifocalRe.MatchString(joined):
			rec.LensType = "varifocal"
		case fixedLensRe.MatchString(joined):
			rec.LensType = "fixed"
		case strings.Contains(rec.LensInfo, "~") || strings.Contains(rec.LensInfo, "-"):
			rec.LensType = "varifocal"
		case rec.LensInfo != "":
			rec.LensType = "fixed"
		}
	}

	MineTitle(rec, facts.Title+" "+joined)
}

func squashSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

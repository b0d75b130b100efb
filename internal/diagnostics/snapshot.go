// Package diagnostics captures page snapshots for offline debugging of
// zero-result harvests and extraction failures. Everything here is
// best-effort; a failed snapshot never affects the run.
package diagnostics

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// Recorder writes screenshot + HTML pairs into a run-scoped directory.
type Recorder struct {
	dir    string
	runID  string
	logger *slog.Logger
}

func NewRecorder(dir string) *Recorder {
	return &Recorder{
		dir:    dir,
		runID:  uuid.NewString()[:8],
		logger: slog.Default().With("component", "diagnostics"),
	}
}

// Capture saves a full-page screenshot and the page HTML under
// <dir>/<runID>_<label>.{png,html}. Nil-receiver safe so callers can leave
// diagnostics unwired.
func (r *Recorder) Capture(page playwright.Page, label string) {
	if r == nil || page == nil {
		return
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		r.logger.Warn("snapshot dir not created", "error", err)
		return
	}

	base := filepath.Join(r.dir, fmt.Sprintf("%s_%s", r.runID, label))

	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(base + ".png"),
		FullPage: playwright.Bool(true),
	}); err != nil {
		r.logger.Warn("screenshot failed", "label", label, "error", err)
	}

	html, err := page.Content()
	if err != nil {
		r.logger.Warn("page content capture failed", "label", label, "error", err)
		return
	}
	if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
		r.logger.Warn("html snapshot write failed", "label", label, "error", err)
	}
}

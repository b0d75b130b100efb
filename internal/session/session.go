// Package session establishes and verifies the authenticated browsing
// session against the distributor site. Credential-based login cannot be
// fully automated against the site's bot detection, so a fresh login runs
// in a visible browser and waits for a human to finish it. A successful
// login is serialized to disk and restored on later runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/browser"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/config"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/diagnostics"
)

var (
	// ErrLoginTimeout means interactive login was not completed inside the
	// allotted window. Fatal for the run; a human must intervene.
	ErrLoginTimeout = errors.New("interactive login not completed in time")

	// ErrSessionInvalid means the restored session failed the login probe
	// and no fresh login succeeded.
	ErrSessionInvalid = errors.New("session unrecoverable")
)

// loggedInProbes are independent signals that the current page is rendered
// for an authenticated user. Any one present means logged in; templates
// differ on which signals they carry, so they are OR-combined.
var loggedInProbes = []string{
	"[data-test-selector='userMenu']",
	"text=/Sign Out/i",
	"text=/Hi,\\s*\\w+/i",
}

// overlaySelectors dismiss consent/cookie banners that cover the sign-in
// form. They can reappear after navigation, so dismissal runs every poll
// cycle.
var overlaySelectors = []string{
	"#onetrust-accept-btn-handler",
	"#onetrust-banner-sdk #onetrust-accept-btn-handler",
	"button:has-text('Agree')",
	"button:has-text('Accept All')",
	"button:has-text('Accept Cookies')",
	"[aria-label='Close']",
}

// Session is the single live authenticated browsing context shared by the
// harvest and detail stages. It is passed by reference, never copied.
type Session struct {
	browser   *browser.Browser
	page      playwright.Page
	creds     config.CredentialsConfig
	statePath string
	logger    *slog.Logger
}

// Page returns the session's long-lived page. All navigation in a run goes
// through this one page; concurrent tabs against the shared cookie jar
// invite state races the design avoids.
func (s *Session) Page() playwright.Page {
	return s.page
}

// Navigate drives the session page to url with the standard retry policy.
func (s *Session) Navigate(url string) error {
	return s.browser.NavigateWithRetry(s.page, url, 3)
}

// PersistState overwrites the on-disk session blob with the context's
// current cookies and local storage.
func (s *Session) PersistState() error {
	return s.browser.SaveStorageState(s.statePath)
}

// Close tears down the underlying browser.
func (s *Session) Close() error {
	return s.browser.Close()
}

// Manager drives session acquisition.
type Manager struct {
	cfg        config.SessionConfig
	creds      config.CredentialsConfig
	browserCfg config.BrowserConfig
	debug      *diagnostics.Recorder
	logger     *slog.Logger
}

func NewManager(cfg config.SessionConfig, creds config.CredentialsConfig, browserCfg config.BrowserConfig, debug *diagnostics.Recorder) *Manager {
	return &Manager{
		cfg:        cfg,
		creds:      creds,
		browserCfg: browserCfg,
		debug:      debug,
		logger:     slog.Default().With("component", "session"),
	}
}

// Acquire produces a live authenticated session. Fast path: restore the
// persisted blob and probe it. Slow path: discard the stale blob and run a
// visible interactive login bounded by the configured windows.
func (m *Manager) Acquire(ctx context.Context, headlessPreferred bool) (*Session, error) {
	if m.creds.User == "" || m.creds.Password == "" {
		return nil, config.ErrMissingCredentials
	}

	if _, err := os.Stat(m.cfg.StatePath); err == nil {
		s, err := m.tryRestore(ctx, headlessPreferred)
		if err == nil {
			return s, nil
		}
		m.logger.Info("persisted session stale, falling back to interactive login", "reason", err)
		if rmErr := os.Remove(m.cfg.StatePath); rmErr != nil {
			m.logger.Warn("failed to remove stale session blob", "error", rmErr)
		}
	}

	return m.interactiveLogin(ctx)
}

func (m *Manager) tryRestore(ctx context.Context, headlessPreferred bool) (*Session, error) {
	b, page, err := m.launch(headlessPreferred, m.cfg.StatePath)
	if err != nil {
		return nil, err
	}

	if err := b.NavigateWithRetry(page, m.cfg.HomeURL, 2); err != nil {
		b.Close()
		return nil, fmt.Errorf("restore navigation failed: %w", err)
	}
	DismissOverlays(page)

	if !IsLoggedIn(page) {
		b.Close()
		return nil, ErrSessionInvalid
	}

	m.logger.Info("restored session passed login probe")
	return m.newSession(b, page), nil
}

// interactiveLogin always runs a visible browser regardless of the caller's
// headless preference: the site rejects automated credential submission, so
// the form is pre-filled as a courtesy and a human completes the rest.
func (m *Manager) interactiveLogin(ctx context.Context) (*Session, error) {
	b, page, err := m.launch(false, "")
	if err != nil {
		return nil, err
	}

	if err := b.NavigateWithRetry(page, m.cfg.SignInURL, 2); err != nil {
		b.Close()
		return nil, fmt.Errorf("sign-in navigation failed: %w", err)
	}
	DismissOverlays(page)

	if err := FillSignInForm(page, m.creds); err != nil {
		m.logger.Warn("could not pre-fill sign-in form", "error", err)
		m.debug.Capture(page, "signin_form")
	}

	m.logger.Info("waiting for interactive login", "window", m.cfg.LoginWindow)
	if m.pollLoggedIn(ctx, page, m.cfg.LoginWindow) {
		return m.finishLogin(b, page)
	}

	// One more navigation back home before giving up: some successful
	// logins land on pages whose template lacks every probe signal.
	m.logger.Info("primary window elapsed, re-probing from home", "window", m.cfg.SecondaryWindow)
	if err := b.NavigateWithRetry(page, m.cfg.HomeURL, 1); err != nil {
		m.logger.Warn("home renavigation failed", "error", err)
	}
	DismissOverlays(page)
	if m.pollLoggedIn(ctx, page, m.cfg.SecondaryWindow) {
		return m.finishLogin(b, page)
	}

	m.debug.Capture(page, "login_timeout")
	b.Close()
	return nil, ErrLoginTimeout
}

func (m *Manager) finishLogin(b *browser.Browser, page playwright.Page) (*Session, error) {
	s := m.newSession(b, page)
	if err := s.PersistState(); err != nil {
		m.logger.Warn("failed to persist session state", "error", err)
	}
	m.logger.Info("login confirmed, session persisted")
	return s, nil
}

func (m *Manager) pollLoggedIn(ctx context.Context, page playwright.Page, window time.Duration) bool {
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if IsLoggedIn(page) {
			return true
		}
		DismissOverlays(page)
		page.WaitForTimeout(float64(m.cfg.ProbeInterval.Milliseconds()))
	}
	return false
}

func (m *Manager) launch(headless bool, statePath string) (*browser.Browser, playwright.Page, error) {
	opts := browser.DefaultOptions()
	opts.Headless = headless && m.browserCfg.Headless
	opts.Timeout = m.browserCfg.Timeout
	opts.ViewportWidth = m.browserCfg.ViewportWidth
	opts.ViewportHeight = m.browserCfg.ViewportHeight
	opts.Locale = m.browserCfg.Locale
	opts.TimezoneID = m.browserCfg.TimezoneID
	opts.StorageStatePath = statePath
	opts.BlockResources = m.browserCfg.BlockResources

	b, err := browser.New(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := b.NewPage()
	if err != nil {
		b.Close()
		return nil, nil, err
	}

	return b, page, nil
}

func (m *Manager) newSession(b *browser.Browser, page playwright.Page) *Session {
	return &Session{
		browser:   b,
		page:      page,
		creds:     m.creds,
		statePath: m.cfg.StatePath,
		logger:    m.logger,
	}
}

// IsLoggedIn runs the login-detection probe over the current page.
func IsLoggedIn(page playwright.Page) bool {
	for _, sel := range loggedInProbes {
		count, err := page.Locator(sel).Count()
		if err == nil && count > 0 {
			return true
		}
	}
	return false
}

// DismissOverlays clicks away any visible consent/cookie banner. Failures
// are swallowed: a banner that won't close is handled by the next cycle.
func DismissOverlays(page playwright.Page) {
	for _, sel := range overlaySelectors {
		b := page.Locator(sel).First()
		count, err := b.Count()
		if err != nil || count == 0 {
			continue
		}
		visible, err := b.IsVisible()
		if err != nil || !visible {
			continue
		}
		if err := b.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(2000)}); err != nil {
			continue
		}
		page.WaitForTimeout(150)
	}
}

// FillSignInForm locates the sign-in form (email and username template
// variants) and fills the configured credentials plus submit. Idempotent:
// refilling an already-submitted form is harmless.
func FillSignInForm(page playwright.Page, creds config.CredentialsConfig) error {
	form := page.Locator("form:has(input[type='email']), form:has(input[name='emailAddress'])").First()
	if count, _ := form.Count(); count == 0 {
		form = page.Locator("form:has([data-test-selector='signIn_userName']), form:has(#userName), form:has(input[name='userName'])").First()
	}
	if count, _ := form.Count(); count == 0 {
		return errors.New("sign-in form not found")
	}

	userIn := form.Locator("input[type='email'], input[name='emailAddress'], [data-test-selector='signIn_userName'], #userName, input[name='userName']").First()
	passIn := form.Locator("[data-test-selector='signIn_password'], #password, input[name='password'], input[type='password']").First()

	if count, _ := userIn.Count(); count == 0 {
		return errors.New("username input not found in sign-in form")
	}
	if count, _ := passIn.Count(); count == 0 {
		return errors.New("password input not found in sign-in form")
	}

	if err := userIn.Fill(creds.User); err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}
	if err := passIn.Fill(creds.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}

	submit := form.Locator("[data-test-selector='signIn_submit'], button[type='submit'], button:has-text('Sign In')").First()
	if count, _ := submit.Count(); count > 0 {
		if err := submit.Click(); err != nil {
			return fmt.Errorf("failed to click submit: %w", err)
		}
	} else if err := page.Keyboard().Press("Enter"); err != nil {
		return fmt.Errorf("failed to submit form: %w", err)
	}

	return nil
}

// Reauthenticate performs a drawer login on the current page without a full
// navigation, used when a detail page shows the dealer-pricing gate. On
// success the refreshed session state is persisted. Safe to call when
// already logged in.
func (s *Session) Reauthenticate(page playwright.Page) error {
	if IsLoggedIn(page) {
		return s.PersistState()
	}

	DismissOverlays(page)
	if err := FillSignInForm(page, s.creds); err != nil {
		return fmt.Errorf("drawer login: %w", err)
	}

	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(10000),
	}); err != nil {
		s.logger.Debug("network not idle after drawer login", "error", err)
	}

	return s.persistIfAuthenticated(IsLoggedIn(page))
}

// persistIfAuthenticated writes the session blob only when the login probe
// passed. A failed drawer login must not overwrite a possibly-good blob
// with anonymous state; gated pricing pages sometimes refresh in place
// without the header markers, so a negative probe is not an error — the
// caller's price re-query decides.
func (s *Session) persistIfAuthenticated(loggedIn bool) error {
	if !loggedIn {
		s.logger.Debug("drawer login submitted, probe still negative")
		return nil
	}
	return s.PersistState()
}

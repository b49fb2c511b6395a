package linkedin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"liscraper/pkg/config"
	apperrors "liscraper/pkg/errors"
	"liscraper/pkg/logger"
	"liscraper/pkg/report"
	"liscraper/pkg/retry"
	"liscraper/pkg/session"
)

// Controller owns a single Chrome instance and drives the authenticated
// LinkedIn session through its lifecycle: restore cookies, validate, log in
// when needed, and hand detected challenges to the caller.
type Controller struct {
	mu       sync.Mutex
	cfg      config.BrowserConfig
	maxRetry int
	store    *session.FileStore
	reporter *report.Reporter
	logger   logger.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	state  SessionState
	closed bool
}

// NewController creates a controller. The browser is not started until
// Initialize.
func NewController(cfg config.BrowserConfig, maxNavRetries int, store *session.FileStore, rep *report.Reporter, log logger.Logger) *Controller {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Controller{
		cfg:      cfg,
		maxRetry: maxNavRetries,
		store:    store,
		reporter: rep,
		logger:   log,
		state:    StateUninitialized,
	}
}

// State returns the current session state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s SessionState) {
	c.mu.Lock()
	from := c.state
	c.state = s
	c.mu.Unlock()
	c.logger.DebugWithFields("Session state changed", map[string]interface{}{
		"from": string(from),
		"to":   string(s),
	})
}

// Initialize starts the browser, restores any saved cookies, and probes
// whether the restored session still works. It leaves the controller in
// SESSION_VALID or SESSION_INVALID; a missing or expired cookie file is the
// normal SESSION_INVALID path, not an error.
func (c *Controller) Initialize(ctx context.Context, userAgent string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return apperrors.New(apperrors.ErrorTypeUnknown, "controller is closed")
	}
	if c.browserCtx != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	)
	if c.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		browserCancel()
		allocCancel()
		wrapped := apperrors.Wrap(apperrors.ErrorTypeNetwork, "failed to start browser", err)
		c.report("session.initialize", wrapped, nil)
		return wrapped
	}

	c.mu.Lock()
	c.allocCancel = allocCancel
	c.browserCtx = browserCtx
	c.browserCancel = browserCancel
	c.mu.Unlock()

	cookies, err := c.store.Load()
	if err != nil {
		// Storage faults are logged but never block a fresh login
		c.report("session.load_cookies", err, nil)
		c.setState(StateSessionInvalid)
		return nil
	}
	if cookies == nil || !cookies.HasAuthCookie() {
		c.logger.Info("No saved session, login required")
		c.setState(StateSessionInvalid)
		return nil
	}

	if err := c.injectCookies(cookies); err != nil {
		c.report("session.inject_cookies", err, nil)
		c.setState(StateSessionInvalid)
		return nil
	}
	c.setState(StateCookiesLoaded)

	if err := c.validate(ctx); err != nil {
		c.logger.WithError(err).Info("Saved session no longer valid")
		c.setState(StateSessionInvalid)
		return nil
	}

	c.setState(StateSessionValid)
	c.logger.Info("Restored session is valid")
	return nil
}

// injectCookies loads a saved cookie set into the running browser.
func (c *Controller) injectCookies(set *session.CookieSet) error {
	return chromedp.Run(c.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, ck := range set.Cookies {
			// Chrome rejects the leading dot form on SetCookie
			domain := strings.TrimPrefix(ck.Domain, ".")

			p := network.SetCookie(ck.Name, ck.Value).
				WithDomain(domain).
				WithPath(ck.Path).
				WithSecure(ck.Secure).
				WithHTTPOnly(ck.HTTPOnly)
			if ck.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
				p = p.WithExpires(&expires)
			}
			if ck.SameSite != "" {
				p = p.WithSameSite(network.CookieSameSite(strings.ToLower(ck.SameSite)))
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", ck.Name, err)
			}
		}
		return nil
	}))
}

// validate loads the home feed and checks where the browser lands. An
// authwall or login redirect means the restored cookies are dead.
func (c *Controller) validate(ctx context.Context) error {
	if err := c.navigate(ctx, FeedURL); err != nil {
		return err
	}

	currentURL, err := c.CurrentURL()
	if err != nil {
		return err
	}

	if IsFeedURL(currentURL) {
		return nil
	}
	if IsChallengeURL(currentURL) {
		return apperrors.New(apperrors.ErrorTypeVerificationRequired, "challenge page during session validation").
			WithURL(currentURL)
	}
	return apperrors.New(apperrors.ErrorTypeSessionExpired, "session validation redirected to "+currentURL).
		WithURL(currentURL)
}

// Login performs a credential login. On success the fresh cookies are
// persisted. When LinkedIn interrupts with a challenge the controller parks
// in CHALLENGE_PENDING and returns the classified challenge error.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		err := apperrors.New(apperrors.ErrorTypeInvalidCredentials, "email and password are required")
		c.report("session.login", err, nil)
		return err
	}

	c.setState(StateLoggingIn)
	c.logger.InfoWithFields("Logging in", map[string]interface{}{"email": maskEmail(email)})

	if err := c.navigate(ctx, LoginURL); err != nil {
		c.setState(StateSessionInvalid)
		c.report("session.login", err, map[string]interface{}{"step": "open_login_page"})
		return err
	}

	navCtx, cancel := context.WithTimeout(c.browserCtx, c.cfg.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.WaitVisible(selectorLoginEmail, chromedp.ByQuery),
		chromedp.SendKeys(selectorLoginEmail, email, chromedp.ByQuery),
		chromedp.SendKeys(selectorLoginPassword, password, chromedp.ByQuery),
		chromedp.Click(selectorLoginSubmit, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		c.setState(StateSessionInvalid)
		wrapped := c.classifyBrowserError("login form submission failed", err)
		c.report("session.login", wrapped, map[string]interface{}{"step": "submit_form"})
		return wrapped
	}

	return c.checkLoginOutcome(ctx)
}

// loginOutcome is the decision derived from the post-submit page.
type loginOutcome struct {
	State     SessionState
	Challenge *apperrors.Challenge
	Err       error
}

// classifyLoginOutcome maps the landing URL and page HTML after a login
// submit to the resulting session state. html is ignored when htmlOK is
// false.
func classifyLoginOutcome(currentURL, html string, htmlOK bool) loginOutcome {
	if IsFeedURL(currentURL) {
		return loginOutcome{State: StateLoggedIn}
	}

	if IsChallengeURL(currentURL) || (htmlOK && DetectChallengeMarkup(html)) {
		ch := &apperrors.Challenge{
			Category:   apperrors.ErrorTypeVerificationRequired,
			Evidence:   "challenge checkpoint after login",
			DetectedAt: time.Now().UTC(),
			URL:        currentURL,
		}
		if htmlOK {
			if detected := apperrors.Detect(html, currentURL); detected != nil {
				ch = detected
			}
		}
		return loginOutcome{
			State:     StateChallengePending,
			Challenge: ch,
			Err:       apperrors.New(ch.Category, ch.Evidence).WithURL(currentURL).WithEvidence(ch.Evidence),
		}
	}

	if htmlOK {
		if banner := LoginErrorText(html); banner != "" {
			return loginOutcome{
				State: StateSessionInvalid,
				Err:   apperrors.New(apperrors.Classify(banner), banner).WithURL(currentURL),
			}
		}
	}

	return loginOutcome{
		State: StateSessionInvalid,
		Err: apperrors.New(apperrors.ErrorTypeLoginFailed, "login did not reach the feed, landed on "+currentURL).
			WithURL(currentURL),
	}
}

// checkLoginOutcome inspects the post-submit page and maps it to a state.
func (c *Controller) checkLoginOutcome(ctx context.Context) error {
	currentURL, err := c.CurrentURL()
	if err != nil {
		c.setState(StateSessionInvalid)
		c.report("session.login", err, map[string]interface{}{"step": "read_url"})
		return err
	}

	var html string
	htmlOK := false
	if !IsFeedURL(currentURL) {
		var contentErr error
		html, contentErr = c.PageContent()
		htmlOK = contentErr == nil
	}

	outcome := classifyLoginOutcome(currentURL, html, htmlOK)
	c.setState(outcome.State)

	switch {
	case outcome.State == StateLoggedIn:
		c.logger.Info("Login successful")
		if err := c.CaptureCookies(); err != nil {
			// A session we cannot persist still works for this run
			c.report("session.save_cookies", err, nil)
		}
		return nil
	case outcome.Challenge != nil:
		if c.reporter != nil {
			c.reporter.LogChallenge("session.login", outcome.Challenge)
		}
		return outcome.Err
	default:
		c.report("session.login", outcome.Err, nil)
		return outcome.Err
	}
}

// ResolveChallenge waits for a human to clear a challenge in a visible
// browser window. Callers may invoke it for a challenge they detected in the
// page markup themselves; the controller parks in CHALLENGE_PENDING for the
// duration of the wait. It polls until the landing URL leaves the challenge
// flow and the DOM no longer carries challenge markers, or the challenge
// timeout elapses. Headless sessions cannot be resolved this way.
func (c *Controller) ResolveChallenge(ctx context.Context) error {
	if c.cfg.Headless {
		err := apperrors.New(apperrors.ErrorTypeVerificationRequired,
			"challenge requires manual resolution, rerun with a visible browser")
		c.report("session.resolve_challenge", err, nil)
		return err
	}

	c.setState(StateChallengePending)
	c.logger.Info("Waiting for manual challenge resolution in the browser window")

	deadline := time.Now().Add(c.cfg.ChallengeTimeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return apperrors.Wrap(apperrors.ErrorTypeNetwork, "challenge wait cancelled", ctx.Err())
		case <-ticker.C:
			currentURL, err := c.CurrentURL()
			if err != nil {
				continue
			}
			cleared := IsFeedURL(currentURL) || (!IsChallengeURL(currentURL) && !IsAuthwallURL(currentURL))
			if cleared {
				// An embedded captcha keeps the profile URL; trust the DOM
				if html, err := c.PageContent(); err == nil && DetectChallengeMarkup(html) {
					cleared = false
				}
			}
			if cleared {
				c.setState(StateLoggedIn)
				c.logger.Info("Challenge resolved")
				if err := c.CaptureCookies(); err != nil {
					c.report("session.save_cookies", err, nil)
				}
				return nil
			}
			if time.Now().After(deadline) {
				err := apperrors.New(apperrors.ErrorTypeVerificationRequired, "challenge not resolved before timeout").
					WithURL(currentURL)
				c.report("session.resolve_challenge", err, nil)
				return err
			}
		}
	}
}

// Navigate opens a URL with bounded retries on transient network failures
// and then checks the landing page for challenges and authwalls. Everything
// except a network error surfaces immediately.
func (c *Controller) Navigate(ctx context.Context, url string) error {
	err := retry.Do(func() error {
		return c.navigate(ctx, url)
	}, &retry.Config{
		MaxAttempts: c.maxRetry,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      c.logger,
	})
	if err != nil {
		c.report("session.navigate", err, map[string]interface{}{"url": url})
		return err
	}

	currentURL, err := c.CurrentURL()
	if err != nil {
		c.report("session.navigate", err, map[string]interface{}{"url": url})
		return err
	}

	if IsChallengeURL(currentURL) {
		c.setState(StateChallengePending)
		challenge := apperrors.New(apperrors.ErrorTypeVerificationRequired, "challenge page during navigation").
			WithURL(currentURL)
		c.report("session.navigate", challenge, map[string]interface{}{"url": url})
		return challenge
	}
	if IsAuthwallURL(currentURL) && !IsAuthwallURL(url) {
		c.setState(StateSessionInvalid)
		expired := apperrors.New(apperrors.ErrorTypeSessionExpired, "redirected to login wall").
			WithURL(currentURL)
		c.report("session.navigate", expired, map[string]interface{}{"url": url})
		return expired
	}

	return nil
}

// navigate is a single navigation attempt under the configured timeout.
func (c *Controller) navigate(ctx context.Context, url string) error {
	browserCtx := c.browser()
	if browserCtx == nil {
		return apperrors.New(apperrors.ErrorTypeUnknown, "browser not initialized")
	}

	navCtx, cancel := context.WithTimeout(browserCtx, c.cfg.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return apperrors.Wrap(apperrors.ErrorTypeNetwork, "navigation cancelled", ctx.Err())
		}
		return c.classifyBrowserError("navigation to "+url+" failed", err)
	}
	return nil
}

// classifyBrowserError maps chromedp failures onto the error taxonomy.
// Timeouts and net:: errors are transient network failures.
func (c *Controller) classifyBrowserError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.ErrorTypeNetwork, msg+": timed out", err)
	}
	return apperrors.Wrap(apperrors.Classify(err.Error()), msg, err)
}

// PageContent returns the full rendered HTML of the current page.
func (c *Controller) PageContent() (string, error) {
	browserCtx := c.browser()
	if browserCtx == nil {
		return "", apperrors.New(apperrors.ErrorTypeUnknown, "browser not initialized")
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", c.classifyBrowserError("failed to read page content", err)
	}
	return html, nil
}

// CurrentURL returns the browser's current location.
func (c *Controller) CurrentURL() (string, error) {
	browserCtx := c.browser()
	if browserCtx == nil {
		return "", apperrors.New(apperrors.ErrorTypeUnknown, "browser not initialized")
	}

	var url string
	if err := chromedp.Run(browserCtx, chromedp.Location(&url)); err != nil {
		return "", c.classifyBrowserError("failed to read current URL", err)
	}
	return url, nil
}

// CaptureCookies reads the live browser cookies and persists them.
func (c *Controller) CaptureCookies() error {
	browserCtx := c.browser()
	if browserCtx == nil {
		return apperrors.New(apperrors.ErrorTypeUnknown, "browser not initialized")
	}

	var captured []session.Cookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, ck := range cookies {
			if !strings.Contains(ck.Domain, "linkedin.com") {
				continue
			}
			captured = append(captured, session.Cookie{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				Expires:  ck.Expires,
				HTTPOnly: ck.HTTPOnly,
				Secure:   ck.Secure,
				SameSite: string(ck.SameSite),
			})
		}
		return nil
	}))
	if err != nil {
		return c.classifyBrowserError("failed to capture cookies", err)
	}

	return c.store.Save(&session.CookieSet{Cookies: captured})
}

// Screenshot writes a full-page capture into the configured screenshot
// directory. Used for post-mortem debugging of failed extractions.
func (c *Controller) Screenshot(name string) (string, error) {
	browserCtx := c.browser()
	if browserCtx == nil {
		return "", apperrors.New(apperrors.ErrorTypeUnknown, "browser not initialized")
	}

	var buf []byte
	if err := chromedp.Run(browserCtx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return "", c.classifyBrowserError("failed to capture screenshot", err)
	}

	if err := os.MkdirAll(c.cfg.ScreenshotDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(c.cfg.ScreenshotDir, fmt.Sprintf("%s-%d.png", name, time.Now().Unix()))
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Close shuts the browser down. Safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.state = StateClosed

	if c.browserCancel != nil {
		c.browserCancel()
		c.browserCancel = nil
	}
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
	}
	c.browserCtx = nil
	return nil
}

func (c *Controller) browser() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.browserCtx
}

func (c *Controller) report(operation string, err error, context map[string]interface{}) {
	if c.reporter != nil {
		c.reporter.LogError(operation, err, context)
	}
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

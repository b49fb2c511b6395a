// Package scraper is the high-level entry point for scraping LinkedIn
// profiles. ScrapeProfile never fails: every error is logged through the
// reporter and the caller receives a fallback record instead.
package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"liscraper/pkg/config"
	apperrors "liscraper/pkg/errors"
	"liscraper/pkg/linkedin"
	"liscraper/pkg/logger"
	"liscraper/pkg/ratelimit"
	"liscraper/pkg/report"
	"liscraper/pkg/session"
)

// Scraper coordinates the session controller, extractor, rate limiter, and
// error reporter for single-profile scrapes.
type Scraper struct {
	cfg       *config.Config
	session   SessionController
	extractor ProfileExtractor
	limiter   ratelimit.Limiter
	reporter  *report.Reporter
	logger    logger.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a scraper with a real browser-backed controller.
func New(cfg *config.Config, rep *report.Reporter, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}

	store := session.NewFileStore(cfg.Browser.CookieFile, log)
	controller := linkedin.NewController(cfg.Browser, cfg.Scraper.MaxNavRetries, store, rep, log)

	return &Scraper{
		cfg:       cfg,
		session:   controller,
		extractor: linkedin.NewExtractor(log),
		limiter:   ratelimit.NewSlidingWindow(cfg.RateLimit.RequestsPerMinute, time.Minute),
		reporter:  rep,
		logger:    log,
	}
}

// NewWithComponents wires explicit dependencies. Used by tests and the batch
// pool.
func NewWithComponents(cfg *config.Config, session SessionController, extractor ProfileExtractor, limiter ratelimit.Limiter, rep *report.Reporter, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.NewSlidingWindow(cfg.RateLimit.RequestsPerMinute, time.Minute)
	}
	return &Scraper{
		cfg:       cfg,
		session:   session,
		extractor: extractor,
		limiter:   limiter,
		reporter:  rep,
		logger:    log,
	}
}

// ScrapeProfile scrapes one profile given a username or profile URL. It
// always returns a usable record: on any failure the error is logged and a
// fallback profile comes back in its place.
func (s *Scraper) ScrapeProfile(ctx context.Context, input string) *linkedin.Profile {
	profileURL, err := linkedin.NormalizeProfileURL(input)
	if err != nil {
		s.reporter.LogError("scraper.scrape_profile", err, map[string]interface{}{
			"input": input,
		})
		return linkedin.FallbackProfile(input)
	}

	profile, err := s.scrape(ctx, profileURL)
	if err != nil {
		s.reporter.LogError("scraper.scrape_profile", err, map[string]interface{}{
			"profile_url": profileURL,
		})
		s.logger.WarnWithFields("Scrape failed, returning fallback record", map[string]interface{}{
			"profile_url": profileURL,
			"error":       err.Error(),
		})
		if s.cfg.Browser.DebugScreenshots {
			if path, shotErr := s.session.Screenshot(linkedin.ProfileID(profileURL)); shotErr == nil {
				s.logger.InfoWithFields("Debug screenshot captured", map[string]interface{}{"path": path})
			}
		}
		return linkedin.FallbackProfile(profileURL)
	}

	return profile
}

// scrape is the fallible core of ScrapeProfile.
func (s *Scraper) scrape(ctx context.Context, profileURL string) (*linkedin.Profile, error) {
	if err := s.ensureSession(ctx); err != nil {
		return nil, err
	}

	s.limiter.Wait()

	if err := s.session.Navigate(ctx, profileURL); err != nil {
		if !s.recoverChallenge(ctx, apperrors.ClassifyError(err)) {
			return nil, err
		}
		if err := s.session.Navigate(ctx, profileURL); err != nil {
			return nil, err
		}
	}

	// Let client-side rendering settle before reading the DOM
	select {
	case <-time.After(s.cfg.Scraper.PageSettleDelay):
	case <-ctx.Done():
		return nil, apperrors.Wrap(apperrors.ErrorTypeNetwork, "scrape cancelled", ctx.Err())
	}

	html, err := s.session.PageContent()
	if err != nil {
		return nil, err
	}

	if linkedin.DetectChallengeMarkup(html) {
		challengeErr := apperrors.New(apperrors.ErrorTypeCaptchaDetected, "challenge markup on profile page").
			WithURL(profileURL)
		if !s.recoverChallenge(ctx, apperrors.ErrorTypeCaptchaDetected) {
			return nil, challengeErr
		}
		html, err = s.session.PageContent()
		if err != nil {
			return nil, err
		}
		if linkedin.DetectChallengeMarkup(html) {
			return nil, challengeErr
		}
	}

	profile, err := s.extractor.Extract(html, profileURL)
	if err != nil {
		if errors.Is(err, linkedin.ErrNoProfileData) {
			return nil, apperrors.Wrap(apperrors.ErrorTypeUnknown, "profile page yielded no data", err).
				WithURL(profileURL)
		}
		return nil, err
	}

	s.logger.InfoWithFields("Profile scraped", map[string]interface{}{
		"profile_id": profile.ProfileID,
		"source":     string(profile.Source),
	})
	return profile, nil
}

// recoverChallenge attempts a manual resolve when a navigation lands on a
// challenge. Only possible with a visible browser window; headless runs
// degrade straight to the fallback record. Returns true when the challenge
// was cleared and the operation can be retried.
func (s *Scraper) recoverChallenge(ctx context.Context, category apperrors.ErrorType) bool {
	if s.cfg.Browser.Headless {
		return false
	}
	if s.session.State() != linkedin.StateChallengePending {
		switch category {
		case apperrors.ErrorTypeVerificationRequired, apperrors.ErrorTypeCaptchaDetected:
		default:
			return false
		}
	}
	if err := s.session.ResolveChallenge(ctx); err != nil {
		s.logger.WithError(err).Warn("Challenge resolution failed")
		return false
	}
	return true
}

// ensureSession brings the controller to an authenticated state, logging in
// with configured credentials when the restored session is dead.
func (s *Scraper) ensureSession(ctx context.Context) error {
	if err := s.session.Initialize(ctx, s.cfg.LinkedIn.UserAgent); err != nil {
		return err
	}

	state := s.session.State()
	if state.Authenticated() {
		return nil
	}

	if state == linkedin.StateChallengePending {
		if err := s.session.ResolveChallenge(ctx); err != nil {
			return err
		}
		return nil
	}

	if s.cfg.LinkedIn.Email == "" || s.cfg.LinkedIn.Password == "" {
		return apperrors.New(apperrors.ErrorTypeNotLoggedIn,
			"no valid session and no credentials configured")
	}

	if err := s.session.Login(ctx, s.cfg.LinkedIn.Email, s.cfg.LinkedIn.Password); err != nil {
		// A challenge thrown during login can still be cleared manually
		// when the browser window is visible.
		if s.session.State() == linkedin.StateChallengePending && !s.cfg.Browser.Headless {
			return s.session.ResolveChallenge(ctx)
		}
		return err
	}
	return nil
}

// Login authenticates explicitly with the given credentials. Used by the
// auth command; scraping normally logs in lazily through ensureSession.
func (s *Scraper) Login(ctx context.Context, email, password string) error {
	if err := s.session.Initialize(ctx, s.cfg.LinkedIn.UserAgent); err != nil {
		return err
	}
	if s.session.State().Authenticated() {
		s.logger.Info("Existing session is already valid")
		return nil
	}
	if err := s.session.Login(ctx, email, password); err != nil {
		if s.session.State() == linkedin.StateChallengePending && !s.cfg.Browser.Headless {
			return s.session.ResolveChallenge(ctx)
		}
		return err
	}
	return nil
}

// Close releases the browser. Safe to call more than once.
func (s *Scraper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.session.Close()
}

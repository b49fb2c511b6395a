package linkedin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "liscraper/pkg/errors"
	"liscraper/pkg/logger"
	"liscraper/pkg/session"
)

// Probe checks session validity over plain HTTP without spending a browser
// page load. It requests the feed with the saved cookies and inspects the
// response: an authenticated session gets a 200, a dead one gets redirected
// to the authwall.
type Probe struct {
	httpClient *http.Client
	feedURL    string
	userAgent  string
	logger     logger.Logger
}

// NewProbe creates a probe. Redirects are not followed so the authwall
// redirect itself is the signal.
func NewProbe(userAgent string, log logger.Logger) *Probe {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Probe{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		feedURL:   FeedURL,
		userAgent: userAgent,
		logger:    log,
	}
}

// ValidateSession reports nil when the cookie set still authenticates.
// Invalid sessions come back as session_expired, throttling as rate_limited,
// transport failures as network_error.
func (p *Probe) ValidateSession(ctx context.Context, cookies *session.CookieSet) error {
	if cookies == nil || !cookies.HasAuthCookie() {
		return apperrors.New(apperrors.ErrorTypeSessionExpired, "no auth cookie to validate")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeUnknown, "failed to build probe request", err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for _, ck := range cookies.Cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeNetwork, "session probe request failed", err)
	}
	defer resp.Body.Close()

	p.logger.DebugWithFields("Session probe response", map[string]interface{}{
		"status": resp.StatusCode,
	})

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.New(apperrors.ErrorTypeRateLimited, "probe got HTTP 429")
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Header.Get("Location")
		if IsAuthwallURL(location) || IsChallengeURL(location) {
			return apperrors.New(apperrors.ErrorTypeSessionExpired, "probe redirected to "+location).
				WithURL(location)
		}
		return apperrors.New(apperrors.ErrorTypeSessionExpired, "probe redirected away from feed").
			WithURL(location)
	case resp.StatusCode >= 500:
		return apperrors.New(apperrors.ErrorTypeNetwork, fmt.Sprintf("probe got HTTP %d", resp.StatusCode))
	default:
		return apperrors.New(apperrors.ErrorTypeSessionExpired, fmt.Sprintf("probe got HTTP %d", resp.StatusCode))
	}
}

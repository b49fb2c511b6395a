package linkedin

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Well-known LinkedIn endpoints.
const (
	BaseURL  = "https://www.linkedin.com"
	LoginURL = BaseURL + "/login"
	FeedURL  = BaseURL + "/feed/"
)

// URL substrings that indicate LinkedIn interrupted the session with a
// challenge or threw the visitor back to the login wall.
var (
	challengeURLMarkers = []string{
		"/checkpoint/challenge",
		"/checkpoint/lg/login-submit",
		"/checkpoint/rm/",
		"/uas/login",
	}
	authwallURLMarkers = []string{
		"/authwall",
		"/login",
	}
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9\-_%]+$`)

// NormalizeProfileURL turns a bare username or any profile URL variant into
// the canonical form https://www.linkedin.com/in/<id>/.
func NormalizeProfileURL(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty profile reference")
	}

	// Bare username, no scheme or path separators
	if usernamePattern.MatchString(input) {
		return fmt.Sprintf("%s/in/%s/", BaseURL, input), nil
	}

	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid profile URL %q: %w", input, err)
	}

	host := strings.ToLower(u.Hostname())
	if host != "www.linkedin.com" && host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return "", fmt.Errorf("not a linkedin URL: %s", input)
	}

	id := profileIDFromPath(u.Path)
	if id == "" {
		return "", fmt.Errorf("no profile id in URL: %s", input)
	}

	return fmt.Sprintf("%s/in/%s/", BaseURL, id), nil
}

// ProfileID extracts the public identifier from a profile URL. Returns ""
// when the URL does not reference a profile.
func ProfileID(profileURL string) string {
	u, err := url.Parse(profileURL)
	if err != nil {
		return ""
	}
	return profileIDFromPath(u.Path)
}

func profileIDFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "in" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1]
		}
	}
	return ""
}

// IsChallengeURL reports whether the URL is one of LinkedIn's verification
// or checkpoint pages.
func IsChallengeURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, marker := range challengeURLMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsAuthwallURL reports whether the URL shows the visitor was redirected to
// the login wall, which means the session is not authenticated.
func IsAuthwallURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, marker := range authwallURLMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsFeedURL reports whether the URL is the authenticated home feed.
func IsFeedURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, BaseURL+"/feed")
}

package scraper

import (
	"context"

	"liscraper/pkg/linkedin"
)

// SessionController is the slice of the browser controller the facade needs.
// Declared here so tests can drive the facade without Chrome.
type SessionController interface {
	Initialize(ctx context.Context, userAgent string) error
	State() linkedin.SessionState
	Login(ctx context.Context, email, password string) error
	ResolveChallenge(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	PageContent() (string, error)
	Screenshot(name string) (string, error)
	Close() error
}

// ProfileExtractor turns rendered profile HTML into a profile record.
type ProfileExtractor interface {
	Extract(html, profileURL string) (*linkedin.Profile, error)
}

package linkedin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "liscraper/pkg/errors"
	"liscraper/pkg/session"
)

func authCookies() *session.CookieSet {
	return &session.CookieSet{
		Cookies: []session.Cookie{
			{Name: "li_at", Value: "AQEDAxyz", Domain: ".linkedin.com"},
			{Name: "JSESSIONID", Value: "ajax:123", Domain: ".www.linkedin.com"},
		},
	}
}

func newTestProbe(t *testing.T, handler http.HandlerFunc) *Probe {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewProbe("probe-agent/1.0", nil)
	p.feedURL = srv.URL
	return p
}

func TestValidateSessionOK(t *testing.T) {
	var gotCookie, gotAgent string
	p := newTestProbe(t, func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("li_at"); err == nil {
			gotCookie = ck.Value
		}
		gotAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, p.ValidateSession(context.Background(), authCookies()))
	assert.Equal(t, "AQEDAxyz", gotCookie)
	assert.Equal(t, "probe-agent/1.0", gotAgent)
}

func TestValidateSessionAuthwallRedirect(t *testing.T) {
	p := newTestProbe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://www.linkedin.com/authwall?trk=feed")
		w.WriteHeader(http.StatusFound)
	})

	err := p.ValidateSession(context.Background(), authCookies())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeSessionExpired, apperrors.ClassifyError(err))
}

func TestValidateSessionChallengeRedirect(t *testing.T) {
	p := newTestProbe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://www.linkedin.com/checkpoint/challenge/AgFz9x")
		w.WriteHeader(http.StatusFound)
	})

	err := p.ValidateSession(context.Background(), authCookies())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeSessionExpired, apperrors.ClassifyError(err))
}

func TestValidateSessionRateLimited(t *testing.T) {
	p := newTestProbe(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := p.ValidateSession(context.Background(), authCookies())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeRateLimited, apperrors.ClassifyError(err))
}

func TestValidateSessionServerError(t *testing.T) {
	p := newTestProbe(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := p.ValidateSession(context.Background(), authCookies())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNetwork, apperrors.ClassifyError(err))
}

func TestValidateSessionForbidden(t *testing.T) {
	p := newTestProbe(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := p.ValidateSession(context.Background(), authCookies())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeSessionExpired, apperrors.ClassifyError(err))
}

func TestValidateSessionNoAuthCookie(t *testing.T) {
	p := NewProbe("probe-agent/1.0", nil)

	err := p.ValidateSession(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeSessionExpired, apperrors.ClassifyError(err))

	err = p.ValidateSession(context.Background(), &session.CookieSet{
		Cookies: []session.Cookie{{Name: "bcookie", Value: "v=2"}},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeSessionExpired, apperrors.ClassifyError(err))
}

func TestValidateSessionTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	p := NewProbe("probe-agent/1.0", nil)
	p.feedURL = srv.URL
	srv.Close()

	err := p.ValidateSession(context.Background(), authCookies())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNetwork, apperrors.ClassifyError(err))
}

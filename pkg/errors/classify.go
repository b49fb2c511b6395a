package errors

import (
	"strings"
	"time"
)

// patternGroup associates an error type with the page-text keywords that
// indicate it. Matching is done on lower-cased text.
type patternGroup struct {
	category ErrorType
	patterns []string
}

// classifierPatterns is checked in order, first match wins. Several phrases
// co-occur on real pages (a CAPTCHA page also says "security check", which
// overlaps with verification wording), so the order must stay exactly:
// verification, captcha, rate-limit, account-locked, invalid-credentials,
// session-expired, network-error.
var classifierPatterns = []patternGroup{
	{ErrorTypeVerificationRequired, []string{
		"verify your identity",
		"confirm your identity",
		"security verification",
		"quick verification",
		"two-step verification",
		"enter the code",
		"verification code",
		"let's make sure it's you",
	}},
	{ErrorTypeCaptchaDetected, []string{
		"captcha",
		"recaptcha",
		"prove you're a human",
		"prove you are a human",
		"are you a robot",
		"security check",
		"start puzzle",
	}},
	{ErrorTypeRateLimited, []string{
		"too many requests",
		"rate limit",
		"you've reached the",
		"unusual activity",
		"try again later",
		"temporarily blocked",
	}},
	{ErrorTypeAccountLocked, []string{
		"account has been restricted",
		"account is restricted",
		"account has been locked",
		"account is temporarily locked",
		"account has been suspended",
		"we've restricted your account",
	}},
	{ErrorTypeInvalidCredentials, []string{
		"wrong email",
		"that's not the right password",
		"couldn't find a linkedin account",
		"password you provided must have",
		"invalid credentials",
		"incorrect email or password",
	}},
	{ErrorTypeSessionExpired, []string{
		"session expired",
		"session has expired",
		"you've been signed out",
		"signed out of linkedin",
		"please sign in",
		"sign in to continue",
		"authwall",
	}},
	{ErrorTypeNetwork, []string{
		"net::err",
		"context deadline exceeded",
		"connection refused",
		"connection reset",
		"no such host",
		"timeout",
		"tls handshake",
		"network is unreachable",
	}},
}

// Classify maps page content or an error message to an error type. It is a
// pure, total function: unmatched text yields ErrorTypeUnknown.
func Classify(text string) ErrorType {
	category, _ := match(text)
	return category
}

// ClassifyError maps an arbitrary error to an error type, preserving the
// type of already-classified errors.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}
	if classified, ok := err.(*Error); ok {
		return classified.Type
	}
	return Classify(err.Error())
}

// Detect classifies page text and, when a pattern matches, returns a
// Challenge record carrying the matched snippet as evidence. Returns nil
// when the text matches nothing.
func Detect(text, url string) *Challenge {
	category, evidence := match(text)
	if category == ErrorTypeUnknown {
		return nil
	}
	return &Challenge{
		Category:   category,
		Evidence:   evidence,
		DetectedAt: time.Now(),
		URL:        url,
	}
}

func match(text string) (ErrorType, string) {
	lowered := strings.ToLower(text)
	for _, group := range classifierPatterns {
		for _, pattern := range group.patterns {
			if strings.Contains(lowered, pattern) {
				return group.category, pattern
			}
		}
	}
	return ErrorTypeUnknown, ""
}

package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
	// Bearer credentials and bare JWTs (three dot-separated base64url segments).
	bearerRe = regexp.MustCompile(`(?i)bearer\s+[a-z0-9._\-]+`)
	jwtRe    = regexp.MustCompile(`\b[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\b`)
)

// SetEnabled toggles redaction of PII and credentials in log text.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text redacts emails, phone numbers, and access tokens when enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	out = bearerRe.ReplaceAllString(out, "[REDACTED_TOKEN]")
	out = jwtRe.ReplaceAllString(out, "[REDACTED_TOKEN]")
	return out
}

// Token redacts a credential unconditionally, keeping a short prefix
// for correlation in logs.
func Token(tok string) string {
	if len(tok) <= 6 {
		return "***"
	}
	return tok[:6] + "..."
}

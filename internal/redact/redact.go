// Package redact removes secret-shaped substrings from diff text before it
// crosses the process boundary. It is a pure text transform: one ordered
// list of pattern-to-replacement rules, applied once, with no hidden state.
package redact

import "regexp"

// Marker replaces every matched secret.
const Marker = "<REDACTED>"

// secretPatterns are regex heuristics for common secret types, applied in
// order. Patterns must not match the marker itself so redaction stays
// idempotent.
var secretPatterns = []*regexp.Regexp{
	// API key assignments
	regexp.MustCompile(`(?i)API[_-]?KEY\s*=\s*['"]?[A-Za-z0-9_\-]+['"]?`),
	// Bearer credentials
	regexp.MustCompile(`(?i)BEARER\s+[A-Za-z0-9.\-_]+`),
	// Password assignments
	regexp.MustCompile(`(?i)PASSWORD\s*=\s*['"]?[^'"\s]+['"]?`),
	// AWS secret access keys
	regexp.MustCompile(`(?i)AWS[_-]SECRET[_-]ACCESS[_-]KEY\s*=\s*['"]?[A-Za-z0-9/+=]+['"]?`),
	// GitHub personal access tokens
	regexp.MustCompile(`['"]?ghp_[A-Za-z0-9]{30,}['"]?`),
	// Private key blocks, header through footer including the key material
	regexp.MustCompile(`(?s)-----BEGIN[^-]*PRIVATE KEY-----.*?-----END[^-]*PRIVATE KEY-----`),
	// Header of a private key block whose footer was cut off by the diff
	regexp.MustCompile(`-----BEGIN[^-]*PRIVATE KEY-----`),
}

// Secrets replaces detected secrets in text with the redaction marker.
// Applying it to already-redacted text is a no-op.
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllString(result, Marker)
	}
	return result
}

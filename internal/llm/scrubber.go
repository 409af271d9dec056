package llm

import "regexp"

// Redacted is the replacement token substituted for scrubbed spans.
const Redacted = "[REDACTED]"

// Regex-based PII scrubbing applied to every prompt before it leaves the
// process. Patterns target the identifiers most commonly pasted into agent
// prompts; anything matched is replaced wholesale rather than masked.
var sensitivePatterns = []*regexp.Regexp{
	// Aadhaar-like 12 digit numbers, optionally space-grouped
	regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`),
	// 10-digit phone numbers
	regexp.MustCompile(`\b\d{10}\b`),
	// Email addresses
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	// PAN-like pattern (ABCDE1234F)
	regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`),
}

// Scrub replaces obvious PII patterns in text with the redaction token.
// Empty input is returned unchanged.
func Scrub(text string) string {
	if text == "" {
		return text
	}
	scrubbed := text
	for _, pattern := range sensitivePatterns {
		scrubbed = pattern.ReplaceAllString(scrubbed, Redacted)
	}
	return scrubbed
}

// Package redact strips secrets from strings before they are persisted or
// returned to clients. Task handler errors end up in the result backend
// and on the monitor API, so connection strings and credentials buried in
// driver errors must not survive the trip.
package redact

import "regexp"

// Redaction placeholders.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	HostPlaceholder       = "[REDACTED_HOST]"
)

var (
	// Connection strings with inline credentials, as produced by database
	// and broker drivers echoing their DSN.
	connStringRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql|kafka|amqp|redis)://[^@\s]+@`)

	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]['"]?)[^'"&\s]{3,}`)
	apiKeyRegex   = regexp.MustCompile(`(?i)(api[_-]?key|token|secret)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`)

	// Host:port pairs from dial errors.
	hostPortRegex = regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}:\d{1,5}\b`)

	placeholders = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		{connStringRegex, CredentialPlaceholder},
		{passwordRegex, CredentialPlaceholder},
		{apiKeyRegex, KeyPlaceholder},
		{hostPortRegex, HostPlaceholder},
	}
)

// String redacts sensitive fragments from the input.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, p := range placeholders {
		result = p.pattern.ReplaceAllString(result, p.replacement)
	}
	return result
}

// Error redacts an error's message. A nil error yields an empty string.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

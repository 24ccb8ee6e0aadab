package logger

import (
	"regexp"
	"strings"
)

var sensitiveKeys = []string{"secret", "token", "password", "passwd", "key", "dsn", "authorization"}

// Matches credentials embedded in free text, e.g. a DSN or an OAuth header.
var embeddedSecret = regexp.MustCompile(`(?i)(password=|oauth_signature="|oauth_token="|bearer\s+|://[^:/@\s]+:)[^&"\s@]+`)

// RedactSecret masks a credential for safe logging, keeping a short prefix.
// "tok_8c1f2e" → "to***"; values of 4 characters or fewer become "***".
func RedactSecret(val string) string {
	if len(val) <= 4 {
		return "***"
	}
	return val[:2] + "***"
}

func redactValue(key, val string) string {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return RedactSecret(val)
		}
	}
	return embeddedSecret.ReplaceAllString(val, "${1}***")
}

package logging

import "strings"

// IsTransient reports whether an upstream feed response is worth retrying.
func IsTransient(status int, err error) bool {
	if err != nil {
		return true
	}
	return status == 429 || status >= 500
}

func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429")
}

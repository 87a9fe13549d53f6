package exchange

import (
	"net/http"
	"strings"

	"crossbot/src/utils/errors"
)

var (
	// ErrTransient marks failures that may succeed on retry (network, throttling, venue busy).
	ErrTransient = errors.Sentinel("transient exchange error")
	// ErrFatal marks failures that retrying cannot fix (unknown pair, bad request, no markets).
	ErrFatal = errors.Sentinel("fatal exchange error")
)

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

var transientKrakenErrorPrefixes = []string{
	"EService:",
	"EAPI:Rate limit",
	"EGeneral:Temporary lockout",
	"EGeneral:Internal error",
	"EOrder:Rate limit",
}

// classifyKrakenErrors turns the "error" array of a Kraken response into a classified error.
func classifyKrakenErrors(messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	joined := strings.Join(messages, "; ")
	for _, message := range messages {
		for _, prefix := range transientKrakenErrorPrefixes {
			if strings.HasPrefix(message, prefix) {
				return errors.Wrapf(ErrTransient, "kraken: %s", joined)
			}
		}
	}
	return errors.Wrapf(ErrFatal, "kraken: %s", joined)
}

func classifyStatusCode(statusCode int) error {
	switch {
	case statusCode == http.StatusOK:
		return nil
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return errors.Wrapf(ErrTransient, "http status %d", statusCode)
	default:
		return errors.Wrapf(ErrFatal, "http status %d", statusCode)
	}
}

package probe

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var throttlePatterns = []string{
	"429",
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
}

// IsThrottled reports whether err means the upstream asked us to slow down,
// either through an HTTP 429 or a rate limit message.
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range throttlePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

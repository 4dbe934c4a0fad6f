package research

import (
	"errors"
	"strings"
)

var (
	// ErrNoChoices indicates the provider answered without any candidate text.
	ErrNoChoices = errors.New("llm returned no choices")
	// ErrNoJSONObject indicates no {...} span could be located in a response.
	ErrNoJSONObject = errors.New("no JSON object found in response")
)

// quotaSignals are the substrings that mark a provider failure as a
// rate-limit/quota condition worth retrying after a wait.
var quotaSignals = []string{
	"429",
	"quota",
	"rate limit",
	"ratelimit",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
}

// isQuotaError reports whether err looks like a transient quota or
// rate-limit failure. Providers surface these as plain errors, so
// classification is by message.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, signal := range quotaSignals {
		if strings.Contains(msg, signal) {
			return true
		}
	}
	return false
}

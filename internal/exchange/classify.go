package exchange

import "strings"

type ErrorKind string

const (
	KindPermission  ErrorKind = "permission"
	KindRateLimited ErrorKind = "rate_limited"
	KindGeneric     ErrorKind = "generic"
)

// Substrings the exchange is known to use for credential problems. Matching
// is case-insensitive on the verbatim provider message.
var permissionMarkers = []string{
	"invalid api-key",
	"api-key format invalid",
	"signature for this request is not valid",
	"permission",
	"unauthorized",
}

var rateLimitMarkers = []string{
	"too many requests",
	"too much request weight",
	"-1003",
	"429",
}

// Classify buckets a provider error message so the UI can tell "fix your API
// key" apart from transient failures. Unknown messages are generic.
func Classify(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	for _, marker := range permissionMarkers {
		if strings.Contains(lower, marker) {
			return KindPermission
		}
	}
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return KindRateLimited
		}
	}
	return KindGeneric
}

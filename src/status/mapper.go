// Package status implements the Error→Status Mapper (C12): it turns a
// typed apperr.Kind into an HTTP status and an RFC 7807 problem-detail
// body, consuming platform/apperr.
package status

import (
	"chat/src/platform/apperr"
	"net/http"
)

// Problem is an RFC 7807 problem-detail body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

type titledStatus struct {
	code  int
	title string
}

var table = map[apperr.Kind]titledStatus{
	apperr.InvalidArgument:       {http.StatusBadRequest, "Bad Request"},
	apperr.AuthRequired:          {http.StatusUnauthorized, "Unauthorized"},
	apperr.NotFound:              {http.StatusNotFound, "Not Found"},
	apperr.Conflict:              {http.StatusConflict, "Conflict"},
	apperr.RateLimitExceeded:     {http.StatusTooManyRequests, "Too Many Requests"},
	apperr.Timeout:               {http.StatusGatewayTimeout, "Gateway Timeout"},
	apperr.EventProductionFailed: {http.StatusServiceUnavailable, "Service Unavailable"},
}

const genericDetail = "an unexpected error occurred"

// Map builds the problem-detail body for err. developerMode includes the
// underlying error message in Detail instead of the generic string.
func Map(err error, instance string, developerMode bool) Problem {
	kind := apperr.KindOf(err)

	entry, ok := table[kind]
	if !ok {
		entry = titledStatus{http.StatusInternalServerError, "Internal Server Error"}
	}

	detail := genericDetail
	if developerMode {
		detail = err.Error()
	}

	return Problem{
		Type:     "about:blank",
		Title:    entry.title,
		Status:   entry.code,
		Detail:   detail,
		Instance: instance,
	}
}

// RetryAfterSeconds extracts the retry-after hint from err when it carries
// one (RateLimitExceeded), for callers setting the Retry-After header.
func RetryAfterSeconds(err error) (int64, bool) {
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.RateLimitExceeded {
		return 0, false
	}
	return appErr.RetryAfterSeconds, true
}

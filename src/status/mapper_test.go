package status

import (
	"chat/src/platform/apperr"
	"errors"
	"net/http"
	"testing"
)

func TestMapKnownKinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperr.Invalid("test", "text", "too long"), http.StatusBadRequest},
		{apperr.New(apperr.AuthRequired, errors.New("no identity")), http.StatusUnauthorized},
		{apperr.RateLimited("test", 5), http.StatusTooManyRequests},
		{apperr.New(apperr.EventProductionFailed, errors.New("broker down")), http.StatusServiceUnavailable},
		{apperr.New(apperr.Timeout, errors.New("deadline exceeded")), http.StatusGatewayTimeout},
	}

	for _, c := range cases {
		got := Map(c.err, "/submit", false)
		if got.Status != c.code {
			t.Fatalf("Map(%v).Status = %d, want %d", c.err, got.Status, c.code)
		}
		if got.Detail != genericDetail {
			t.Fatalf("Map(%v).Detail = %q, want generic detail in production mode", c.err, got.Detail)
		}
	}
}

func TestMapUnknownKindDefaultsTo500(t *testing.T) {
	got := Map(errors.New("boom"), "/submit", false)
	if got.Status != http.StatusInternalServerError {
		t.Fatalf("Status = %d, want 500", got.Status)
	}
}

func TestMapDeveloperModeExposesDetail(t *testing.T) {
	err := apperr.New(apperr.EventProductionFailed, errors.New("broker unreachable"))
	got := Map(err, "/submit", true)
	if got.Detail != err.Error() {
		t.Fatalf("Detail = %q, want %q", got.Detail, err.Error())
	}
}

func TestRetryAfterSecondsExtractedFromRateLimited(t *testing.T) {
	err := apperr.RateLimited("test", 7)
	seconds, ok := RetryAfterSeconds(err)
	if !ok || seconds != 7 {
		t.Fatalf("RetryAfterSeconds = (%d, %v), want (7, true)", seconds, ok)
	}
}

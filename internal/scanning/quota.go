package scanning

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
)

// quotaFromError converts a Google API quota rejection (HTTP 429 or gRPC
// RESOURCE_EXHAUSTED) into a *QuotaExhaustedError. Other errors are returned unchanged.
func quotaFromError(err error) error {
	if err == nil {
		return nil
	}

	exhausted := false
	var delay time.Duration

	if ae, ok := apierror.FromError(err); ok {
		if ae.HTTPCode() == http.StatusTooManyRequests {
			exhausted = true
		}
		if st := ae.GRPCStatus(); st != nil && st.Code() == codes.ResourceExhausted {
			exhausted = true
		}
		if info := ae.Details().RetryInfo; info != nil && info.GetRetryDelay() != nil {
			delay = info.GetRetryDelay().AsDuration()
		}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests {
			exhausted = true
		}
		if delay == 0 {
			delay = retryDelayFromDetails(gerr.Details)
		}
	}

	if !exhausted {
		return err
	}
	return &QuotaExhaustedError{RetryAfter: delay, Err: err}
}

// retryDelayFromDetails finds a google.rpc.RetryInfo entry in raw REST error
// details, e.g. {"@type": ".../google.rpc.RetryInfo", "retryDelay": "37s"}
func retryDelayFromDetails(details []interface{}) time.Duration {
	for _, detail := range details {
		m, ok := detail.(map[string]interface{})
		if !ok {
			continue
		}
		typ, _ := m["@type"].(string)
		if !strings.HasSuffix(typ, "google.rpc.RetryInfo") {
			continue
		}
		raw, _ := m["retryDelay"].(string)
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return 0
}

// parseRetryAfter reads an HTTP Retry-After header given in seconds
func parseRetryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

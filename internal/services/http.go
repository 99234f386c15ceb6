package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jwebster45206/saga-engine/pkg/narrator"
)

const maxErrorBody = 512

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// statusError converts a non-200 response into an error. Rate limiting and
// exhausted balances wrap narrator.ErrQuotaExhausted.
func statusError(provider string, status int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	msg := fmt.Sprintf("%s API request failed with status %d: %s", provider, status, string(body))
	switch status {
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", narrator.ErrQuotaExhausted, msg)
	default:
		return errors.New(msg)
	}
}

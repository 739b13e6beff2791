package scanning

import (
	"fmt"
	"time"
)

const snippetLength = 200

// QuotaExhaustedError reports that the provider rejected the call because the
// account-level quota is temporarily depleted. RetryAfter is zero when the
// provider did not suggest a delay.
type QuotaExhaustedError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *QuotaExhaustedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("quota exhausted (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("quota exhausted: %v", e.Err)
}

func (e *QuotaExhaustedError) Unwrap() error {
	return e.Err
}

// MalformedOutputError reports model output that could not be decoded into an
// invoice. Snippet holds the start of the offending text.
type MalformedOutputError struct {
	Snippet string
	Err     error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v (response: %q)", e.Err, e.Snippet)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

func newMalformed(text string, err error) *MalformedOutputError {
	runes := []rune(text)
	if len(runes) > snippetLength {
		runes = runes[:snippetLength]
	}
	return &MalformedOutputError{Snippet: string(runes), Err: err}
}

package fetch

import (
	"fmt"
	"strings"
	"time"
)

// UpstreamUnavailableError is returned when no tier obtained any content.
type UpstreamUnavailableError struct {
	URL      string
	Attempts []Attempt
}

func (e *UpstreamUnavailableError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Tier, a.Err))
	}
	return fmt.Sprintf("upstream unavailable for %s: all %d tiers failed [%s]", e.URL, len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes the per-tier errors.
func (e *UpstreamUnavailableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// TimeoutError is returned when the overall request budget runs out.
type TimeoutError struct {
	URL    string
	Budget time.Duration
	Cause  error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fetch of %s exceeded request budget of %s: %v", e.URL, e.Budget, e.Cause)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

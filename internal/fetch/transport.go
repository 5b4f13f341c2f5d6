package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/listing-customizer/internal/ratelimit"
)

// ErrTierNotConfigured is returned by a transport that cannot serve a tier
// with the current configuration (e.g. no unlocker credentials).
var ErrTierNotConfigured = errors.New("tier not configured")

// Transport performs the network call for one tier.
type Transport interface {
	Fetch(ctx context.Context, tier Tier, targetURL string) (string, error)
}

// UnlockerConfig describes the unlocking intermediary.
type UnlockerConfig struct {
	Endpoint    string
	APIKey      string
	CountryCode string
}

// RequestURL builds the intermediary request for targetURL.
func (u UnlockerConfig) RequestURL(targetURL string, render bool) string {
	q := url.Values{}
	q.Set("api_key", u.APIKey)
	q.Set("url", targetURL)
	if render {
		q.Set("render", "true")
	}
	if u.CountryCode != "" {
		q.Set("country_code", u.CountryCode)
	}
	return u.Endpoint + "?" + q.Encode()
}

// HTTPTransport serves direct and unlocker tiers over plain HTTP.
type HTTPTransport struct {
	client   *http.Client
	unlocker UnlockerConfig
	limiter  *ratelimit.KeyedLimiter
}

// NewHTTPTransport creates an HTTP transport. A nil client uses a fresh
// http.Client; a nil limiter disables outbound throttling.
func NewHTTPTransport(client *http.Client, unlocker UnlockerConfig, limiter *ratelimit.KeyedLimiter) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{client: client, unlocker: unlocker, limiter: limiter}
}

// Fetch implements Transport.
func (t *HTTPTransport) Fetch(ctx context.Context, tier Tier, targetURL string) (string, error) {
	requestURL := targetURL
	opts := Options{
		Client:    t.client,
		Timeout:   tier.Timeout,
		UserAgent: tier.UserAgent,
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml",
			"Accept-Language": "en-GB,en;q=0.9",
		},
	}

	switch tier.Kind {
	case KindDirect:
	case KindUnlocker:
		if t.unlocker.Endpoint == "" || t.unlocker.APIKey == "" {
			return "", fmt.Errorf("%s: %w", tier.Name, ErrTierNotConfigured)
		}
		requestURL = t.unlocker.RequestURL(targetURL, tier.Render)
		// The intermediary chooses its own client identity.
		opts.UserAgent = ""
		opts.Headers = nil
	default:
		return "", fmt.Errorf("http transport cannot serve %s tier %s: %w", tier.Kind, tier.Name, ErrTierNotConfigured)
	}

	if t.limiter != nil {
		if u, err := url.Parse(requestURL); err == nil {
			if err := t.limiter.Wait(ctx, u.Host); err != nil {
				return "", &Error{URL: targetURL, Message: "rate limit wait aborted", Cause: err}
			}
		}
	}

	result, err := URL(ctx, requestURL, opts)
	if err != nil {
		if tier.Kind == KindUnlocker {
			return "", redactUnlockerError(targetURL, err)
		}
		return "", err
	}
	return result.HTML, nil
}

// redactUnlockerError rewrites an error from an intermediary request so that
// it names the product URL instead of the request URL, whose query carries
// the API key.
func redactUnlockerError(targetURL string, err error) error {
	var fe *Error
	if !errors.As(err, &fe) {
		return &Error{URL: targetURL, Message: "unlocker request failed", Cause: redactCause(err)}
	}
	return &Error{URL: targetURL, Message: "unlocker: " + fe.Message, Cause: redactCause(fe.Cause)}
}

// redactCause drops the query of a wrapped *url.Error.
func redactCause(err error) error {
	if err == nil {
		return nil
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: stripQuery(ue.URL), Err: ue.Err}
	}
	return err
}

func stripQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// Router dispatches tiers to the transport registered for their kind.
type Router map[TierKind]Transport

// Fetch implements Transport.
func (r Router) Fetch(ctx context.Context, tier Tier, targetURL string) (string, error) {
	t, ok := r[tier.Kind]
	if !ok || t == nil {
		return "", fmt.Errorf("no transport for %s tier %s: %w", tier.Kind, tier.Name, ErrTierNotConfigured)
	}
	return t.Fetch(ctx, tier, targetURL)
}

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonathan/listing-customizer/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_Direct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, MobileUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "/dp/B0ABCDEFGH", r.URL.Path)
		_, _ = w.Write([]byte("page"))
	}))
	defer server.Close()

	tr := NewHTTPTransport(nil, UnlockerConfig{}, ratelimit.NewKeyed(0, 0))
	tier := Tier{Name: "direct-mobile", Kind: KindDirect, UserAgent: MobileUserAgent, Timeout: time.Second}

	content, err := tr.Fetch(context.Background(), tier, server.URL+"/dp/B0ABCDEFGH")
	require.NoError(t, err)
	assert.Equal(t, "page", content)
}

func TestHTTPTransport_Unlocker(t *testing.T) {
	target := "https://www.amazon.co.uk/dp/B0ABCDEFGH"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("api_key"))
		assert.Equal(t, target, q.Get("url"))
		assert.Equal(t, "true", q.Get("render"))
		assert.Equal(t, "uk", q.Get("country_code"))
		_, _ = w.Write([]byte("rendered"))
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.Client(), UnlockerConfig{Endpoint: server.URL, APIKey: "secret", CountryCode: "uk"}, nil)
	tier := Tier{Name: "unlocker-render", Kind: KindUnlocker, Render: true, Timeout: time.Second}

	content, err := tr.Fetch(context.Background(), tier, target)
	require.NoError(t, err)
	assert.Equal(t, "rendered", content)
}

func TestHTTPTransport_UnlockerErrorsHideAPIKey(t *testing.T) {
	const apiKey = "SUPERSECRETKEY"
	target := "https://www.amazon.co.uk/dp/B0ABCDEFGH"

	forbidden := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer forbidden.Close()

	unreachable := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	unreachableURL := unreachable.URL
	unreachable.Close()

	tests := []struct {
		name     string
		endpoint string
		client   *http.Client
	}{
		{name: "upstream status", endpoint: forbidden.URL, client: forbidden.Client()},
		{name: "transport failure", endpoint: unreachableURL, client: &http.Client{Timeout: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewHTTPTransport(tt.client, UnlockerConfig{Endpoint: tt.endpoint, APIKey: apiKey}, nil)
			tier := Tier{Name: "unlocker", Kind: KindUnlocker, Timeout: time.Second}

			_, err := tr.Fetch(context.Background(), tier, target)
			require.Error(t, err)
			assert.NotContains(t, err.Error(), apiKey)

			var fe *Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, target, fe.URL)

			orch := NewOrchestrator(OrchestratorConfig{Tiers: []Tier{tier}, RequestBudget: 5 * time.Second}, tr, nil)
			_, err = orch.Fetch(context.Background(), target)
			require.Error(t, err)
			assert.NotContains(t, err.Error(), apiKey)
		})
	}
}

func TestHTTPTransport_UnlockerNotConfigured(t *testing.T) {
	tr := NewHTTPTransport(nil, UnlockerConfig{}, nil)
	_, err := tr.Fetch(context.Background(), Tier{Name: "unlocker", Kind: KindUnlocker}, "https://example.test/dp/B0ABCDEFGH")
	assert.ErrorIs(t, err, ErrTierNotConfigured)
}

func TestHTTPTransport_RejectsBrowserTier(t *testing.T) {
	tr := NewHTTPTransport(nil, UnlockerConfig{}, nil)
	_, err := tr.Fetch(context.Background(), Tier{Name: "browser", Kind: KindBrowser}, "https://example.test")
	assert.ErrorIs(t, err, ErrTierNotConfigured)
}

func TestUnlockerConfig_RequestURL(t *testing.T) {
	u := UnlockerConfig{Endpoint: "https://unlock.example/api", APIKey: "k"}
	assert.Equal(t, "https://unlock.example/api?api_key=k&url=https%3A%2F%2Fshop.example%2Fdp%2FX", u.RequestURL("https://shop.example/dp/X", false))
	assert.Contains(t, u.RequestURL("https://shop.example/dp/X", true), "render=true")
}

func TestRouter_MissingKind(t *testing.T) {
	r := Router{KindDirect: NewHTTPTransport(nil, UnlockerConfig{}, nil)}
	_, err := r.Fetch(context.Background(), Tier{Name: "browser", Kind: KindBrowser}, "https://example.test")
	assert.ErrorIs(t, err, ErrTierNotConfigured)
}

func TestDefaultTiers(t *testing.T) {
	tiers := DefaultTiers(10*time.Second, false)
	require.Len(t, tiers, 4)
	assert.Equal(t, []TierKind{KindDirect, KindDirect, KindUnlocker, KindUnlocker},
		[]TierKind{tiers[0].Kind, tiers[1].Kind, tiers[2].Kind, tiers[3].Kind})
	assert.NotEqual(t, tiers[0].UserAgent, tiers[1].UserAgent)
	assert.False(t, tiers[2].Render)
	assert.True(t, tiers[3].Render)

	withBrowser := DefaultTiers(0, true)
	require.Len(t, withBrowser, 5)
	assert.Equal(t, KindBrowser, withBrowser[4].Kind)
	assert.Equal(t, DefaultTimeout, withBrowser[0].Timeout)
}

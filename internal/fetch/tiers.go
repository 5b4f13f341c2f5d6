package fetch

import "time"

// TierKind selects which transport serves a tier.
type TierKind string

const (
	// KindDirect fetches the product page directly.
	KindDirect TierKind = "direct"
	// KindUnlocker fetches through an unlocking/rendering intermediary.
	KindUnlocker TierKind = "unlocker"
	// KindBrowser renders the page in a local headless browser.
	KindBrowser TierKind = "browser"
)

// Client identities presented by the direct tiers.
const (
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	MobileUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
)

// Tier is one fetch configuration in the escalation sequence.
type Tier struct {
	Name      string
	Kind      TierKind
	UserAgent string
	Render    bool
	Timeout   time.Duration
}

// DefaultTiers returns the standard escalation, cheapest first. The browser
// tier is appended only when withBrowser is set.
func DefaultTiers(timeout time.Duration, withBrowser bool) []Tier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tiers := []Tier{
		{Name: "direct-desktop", Kind: KindDirect, UserAgent: DesktopUserAgent, Timeout: timeout},
		{Name: "direct-mobile", Kind: KindDirect, UserAgent: MobileUserAgent, Timeout: timeout},
		{Name: "unlocker", Kind: KindUnlocker, Timeout: timeout},
		{Name: "unlocker-render", Kind: KindUnlocker, Render: true, Timeout: 2 * timeout},
	}
	if withBrowser {
		tiers = append(tiers, Tier{Name: "browser", Kind: KindBrowser, UserAgent: DesktopUserAgent, Render: true, Timeout: 2 * timeout})
	}
	return tiers
}

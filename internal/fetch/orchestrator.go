package fetch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultRequestBudget bounds a full escalation across every tier.
const DefaultRequestBudget = 2 * time.Minute

// Probe reports whether content is a genuine, usable product page.
type Probe func(content string) bool

// TitleAnchorProbe passes when the page carries a non-empty product title anchor.
func TitleAnchorProbe(content string) bool {
	if !strings.Contains(content, "productTitle") {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return false
	}
	return strings.TrimSpace(doc.Find("#productTitle").First().Text()) != ""
}

// Attempt records the outcome of one tier.
type Attempt struct {
	Tier        string        `json:"tier"`
	Index       int           `json:"index"`
	Err         error         `json:"-"`
	Bytes       int           `json:"bytes"`
	ProbePassed bool          `json:"probe_passed"`
	Duration    time.Duration `json:"duration"`
}

// FetchResult is the content chosen by an escalation. It is not persisted.
type FetchResult struct {
	Content        string
	TierUsed       int // 1-based index into the tier list
	TierName       string
	SucceededProbe bool
	Attempts       []Attempt
}

// Degraded reports whether content was obtained without passing the probe.
func (r *FetchResult) Degraded() bool {
	return !r.SucceededProbe
}

// OrchestratorConfig configures the escalation.
type OrchestratorConfig struct {
	Tiers         []Tier
	Probe         Probe
	RequestBudget time.Duration
}

// Orchestrator walks the tier list in order until one passes the probe.
type Orchestrator struct {
	tiers     []Tier
	probe     Probe
	budget    time.Duration
	transport Transport
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator. Zero config values fall back to
// the default tiers, TitleAnchorProbe and DefaultRequestBudget.
func NewOrchestrator(cfg OrchestratorConfig, transport Transport, logger *slog.Logger) *Orchestrator {
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultTiers(DefaultTimeout, false)
	}
	if cfg.Probe == nil {
		cfg.Probe = TitleAnchorProbe
	}
	if cfg.RequestBudget <= 0 {
		cfg.RequestBudget = DefaultRequestBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		tiers:     cfg.Tiers,
		probe:     cfg.Probe,
		budget:    cfg.RequestBudget,
		transport: transport,
		logger:    logger,
	}
}

// Tiers returns the configured tier list.
func (o *Orchestrator) Tiers() []Tier {
	return append([]Tier(nil), o.tiers...)
}

// Fetch escalates through the tiers for targetURL, strictly one at a time.
//
// The first tier whose content passes the probe wins. When none passes, the
// last content obtained is returned with SucceededProbe=false. Only when no
// tier obtained any content is *UpstreamUnavailableError returned; running out
// of the request budget returns *TimeoutError.
func (o *Orchestrator) Fetch(ctx context.Context, targetURL string) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.budget)
	defer cancel()

	result := &FetchResult{}
	haveContent := false

	for i, tier := range o.tiers {
		if err := ctx.Err(); err != nil {
			return nil, o.budgetError(targetURL, err)
		}

		start := time.Now()
		content, err := o.transport.Fetch(ctx, tier, targetURL)
		attempt := Attempt{Tier: tier.Name, Index: i + 1, Err: err, Duration: time.Since(start)}

		if err != nil {
			result.Attempts = append(result.Attempts, attempt)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, o.budgetError(targetURL, ctxErr)
			}
			if errors.Is(err, ErrTierNotConfigured) {
				o.logger.Debug("fetch tier skipped", "tier", tier.Name, "url", targetURL)
			} else {
				o.logger.Info("fetch tier failed", "tier", tier.Name, "url", targetURL, "error", err)
			}
			continue
		}

		attempt.Bytes = len(content)
		attempt.ProbePassed = o.probe(content)
		result.Attempts = append(result.Attempts, attempt)

		haveContent = true
		result.Content = content
		result.TierUsed = i + 1
		result.TierName = tier.Name

		if attempt.ProbePassed {
			result.SucceededProbe = true
			o.logger.Info("fetch tier succeeded", "tier", tier.Name, "index", i+1, "url", targetURL, "bytes", len(content))
			return result, nil
		}
		o.logger.Info("fetch tier failed validity probe", "tier", tier.Name, "url", targetURL, "bytes", len(content))
	}

	if !haveContent {
		return nil, &UpstreamUnavailableError{URL: targetURL, Attempts: result.Attempts}
	}

	o.logger.Warn("extraction degraded: no tier passed the validity probe",
		"url", targetURL, "tier", result.TierName, "bytes", len(result.Content))
	return result, nil
}

func (o *Orchestrator) budgetError(targetURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: targetURL, Budget: o.budget, Cause: err}
	}
	return err
}

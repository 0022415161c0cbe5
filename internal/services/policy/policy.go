package policy

import (
	"time"

	"github.com/coinharbor/deposit-monitor/internal/repository"
)

// Poll is the effective monitoring policy for one currency.
type Poll struct {
	Interval time.Duration
	Enabled  bool
}

// Resolve derives the policy from the currency's config row. A missing
// row (cfg == nil) or a zero interval falls back to the default and
// leaves monitoring enabled.
func Resolve(cfg *repository.MonitoringConfig, defaultInterval time.Duration) Poll {
	if cfg == nil {
		return Poll{Interval: defaultInterval, Enabled: true}
	}
	interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}
	return Poll{Interval: interval, Enabled: cfg.Enabled}
}

package decision

import (
	"context"
	"time"

	"github.com/vmunix/fetcharr/pkg/release"
)

// MinimumAgeSpec holds back usenet releases until they have propagated.
// Manual searches skip it.
type MinimumAgeSpec struct{}

func (MinimumAgeSpec) Name() string { return "minimum_age" }
func (MinimumAgeSpec) Priority() Priority { return PriorityDefault }

func (MinimumAgeSpec) Evaluate(_ context.Context, cfg *Config, c *Candidate, search *SearchContext) (Decision, error) {
	if search != nil || cfg.MinimumAgeMinutes <= 0 {
		return Accept(), nil
	}
	if c.Release.Protocol != release.ProtocolUsenet || c.Release.PublishDate.IsZero() {
		return Accept(), nil
	}

	age := cfg.now().Sub(c.Release.PublishDate)
	minimum := time.Duration(cfg.MinimumAgeMinutes) * time.Minute
	if age < minimum {
		return Reject(Temporary, "Release is %d minutes old, minimum age is %d minutes",
			int(age.Minutes()), cfg.MinimumAgeMinutes), nil
	}
	return Accept(), nil
}

// RetentionSpec rejects usenet releases older than the provider keeps.
type RetentionSpec struct{}

func (RetentionSpec) Name() string { return "retention" }
func (RetentionSpec) Priority() Priority { return PriorityDefault }

func (RetentionSpec) Evaluate(_ context.Context, cfg *Config, c *Candidate, _ *SearchContext) (Decision, error) {
	if cfg.RetentionDays <= 0 || c.Release.Protocol != release.ProtocolUsenet || c.Release.PublishDate.IsZero() {
		return Accept(), nil
	}

	days := int(cfg.now().Sub(c.Release.PublishDate).Hours() / 24)
	if days > cfg.RetentionDays {
		return Reject(Permanent, "Release is %d days old, older than the retention of %d days", days, cfg.RetentionDays), nil
	}
	return Accept(), nil
}

package decision

import (
	"context"
	"strings"
)

// QualityAllowedSpec rejects tiers the profile does not allow.
type QualityAllowedSpec struct{}

func (QualityAllowedSpec) Name() string { return "quality_allowed" }
func (QualityAllowedSpec) Priority() Priority { return PriorityDefault }

func (QualityAllowedSpec) Evaluate(_ context.Context, _ *Config, c *Candidate, _ *SearchContext) (Decision, error) {
	if !c.Profile.Allows(c.Quality.Quality) {
		return Reject(Permanent, "Quality %s is not wanted in profile %s (allowed: %s)",
			c.Quality.Quality, c.Profile.Name, strings.Join(c.Profile.AllowedNames(), ", ")), nil
	}
	return Accept(), nil
}

// CustomFormatScoreSpec rejects releases whose format score is below the
// profile minimum.
type CustomFormatScoreSpec struct{}

func (CustomFormatScoreSpec) Name() string { return "custom_format_score" }
func (CustomFormatScoreSpec) Priority() Priority { return PriorityDefault }

func (CustomFormatScoreSpec) Evaluate(_ context.Context, _ *Config, c *Candidate, _ *SearchContext) (Decision, error) {
	score := c.Profile.FormatScore(c.CustomFormats)
	if score < c.Profile.MinFormatScore {
		return Reject(Permanent, "Custom format score %d is below the minimum of %d", score, c.Profile.MinFormatScore), nil
	}
	return Accept(), nil
}

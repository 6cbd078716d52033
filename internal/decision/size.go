package decision

import (
	"context"

	"github.com/dustin/go-humanize"
)

// MaximumSizeSpec rejects releases larger than the configured limit.
type MaximumSizeSpec struct{}

func (MaximumSizeSpec) Name() string { return "maximum_size" }
func (MaximumSizeSpec) Priority() Priority { return PriorityDefault }

func (MaximumSizeSpec) Evaluate(_ context.Context, cfg *Config, c *Candidate, _ *SearchContext) (Decision, error) {
	if cfg.MaximumSizeMB <= 0 || c.Release.Size <= 0 {
		return Accept(), nil
	}
	limit := cfg.MaximumSizeMB * 1024 * 1024
	if c.Release.Size > limit {
		return Reject(Permanent, "%s is larger than the maximum allowed %s",
			humanize.IBytes(uint64(c.Release.Size)), humanize.IBytes(uint64(limit))), nil
	}
	return Accept(), nil
}

package decision

import (
	"context"
	"fmt"

	"github.com/vmunix/fetcharr/internal/quality"
)

// QueueSpec rejects releases when an item already has an in-flight download
// that is as good or already meets the cutoff.
type QueueSpec struct {
	queue QueueLookup
}

// NewQueueSpec creates the queue rule.
func NewQueueSpec(queue QueueLookup) *QueueSpec {
	return &QueueSpec{queue: queue}
}

func (s *QueueSpec) Name() string { return "queue" }
func (s *QueueSpec) Priority() Priority { return PriorityDatabase }

func (s *QueueSpec) Evaluate(ctx context.Context, _ *Config, c *Candidate, _ *SearchContext) (Decision, error) {
	for _, item := range c.Items {
		active, err := s.queue.ActiveForItem(ctx, item.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("queue for item %d: %w", item.ID, err)
		}
		for _, d := range active {
			formats := quality.FormatsFromNames(d.CustomFormats)
			if !quality.CutoffNotMet(c.Profile, []quality.Model{d.Quality}, formats, &c.Quality) {
				return Reject(Permanent, "Release in queue already meets cutoff: %s", d.Quality), nil
			}
			if !quality.IsUpgradable(c.Profile, d.Quality, formats, c.Quality, c.CustomFormats) {
				return Reject(Permanent, "Release in queue is of equal or higher quality: %s", d.Quality), nil
			}
		}
	}
	return Accept(), nil
}

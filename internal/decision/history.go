package decision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/fetcharr/internal/history"
	"github.com/vmunix/fetcharr/internal/quality"
)

// recentGrabWindow is how long a grab blocks equal or lesser releases.
const recentGrabWindow = 12 * time.Hour

// HistorySpec stops re-grabbing a release while an earlier grab of the same
// or better quality is still being processed. Manual searches bypass it, and
// so do stale grabs when completed download handling is off.
type HistorySpec struct {
	history HistoryLookup
	log     *slog.Logger
}

// NewHistorySpec creates the history rule.
func NewHistorySpec(h HistoryLookup, log *slog.Logger) *HistorySpec {
	if log == nil {
		log = slog.Default()
	}
	return &HistorySpec{history: h, log: log.With("rule", "history")}
}

func (s *HistorySpec) Name() string { return "history" }
func (s *HistorySpec) Priority() Priority { return PriorityDatabase }

func (s *HistorySpec) Evaluate(ctx context.Context, cfg *Config, c *Candidate, search *SearchContext) (Decision, error) {
	if search != nil {
		s.log.Debug("skipping history check during search")
		return Accept(), nil
	}

	now := cfg.now()
	for _, item := range c.Items {
		mostRecent, err := s.history.MostRecentForItem(ctx, item.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("history for item %d: %w", item.ID, err)
		}
		if mostRecent == nil || mostRecent.EventType != history.EventGrabbed {
			continue
		}

		recent := now.Sub(mostRecent.Date) < recentGrabWindow
		if !recent && !cfg.EnableCompletedDownloadHandling {
			continue
		}

		formats := quality.FormatsFromNames(mostRecent.CustomFormats)
		cutoffUnmet := quality.CutoffNotMet(c.Profile, []quality.Model{mostRecent.Quality}, formats, &c.Quality)
		upgradeable := quality.IsUpgradable(c.Profile, mostRecent.Quality, formats, c.Quality, c.CustomFormats)

		s.log.Debug("checked grab history", "item_id", item.ID, "recent", recent,
			"cutoff_unmet", cutoffUnmet, "upgradeable", upgradeable)

		if !cutoffUnmet {
			if recent {
				return Reject(Permanent, "Recent grab event in history already meets cutoff: %s", mostRecent.Quality), nil
			}
			return Reject(Permanent, "CDH is enabled and unprocessed grab event in history already meets cutoff: %s", mostRecent.Quality), nil
		}
		if !upgradeable {
			if recent {
				return Reject(Permanent, "Recent grab event in history is of equal or higher quality: %s", mostRecent.Quality), nil
			}
			return Reject(Permanent, "CDH is enabled and unprocessed grab event in history is of equal or higher quality: %s", mostRecent.Quality), nil
		}
	}
	return Accept(), nil
}

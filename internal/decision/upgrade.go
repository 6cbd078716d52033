package decision

import (
	"context"

	"github.com/vmunix/fetcharr/internal/quality"
)

// UpgradeDiskSpec rejects releases that would not improve on every item's
// file on disk.
type UpgradeDiskSpec struct{}

func (UpgradeDiskSpec) Name() string { return "upgrade_disk" }
func (UpgradeDiskSpec) Priority() Priority { return PriorityDatabase }

func (UpgradeDiskSpec) Evaluate(_ context.Context, _ *Config, c *Candidate, _ *SearchContext) (Decision, error) {
	for _, item := range c.Items {
		if !item.HasFile() {
			continue
		}
		onDisk := item.File.Quality
		formats := quality.FormatsFromNames(item.File.CustomFormats)

		if !quality.CutoffNotMet(c.Profile, []quality.Model{onDisk}, formats, &c.Quality) {
			return Reject(Permanent, "Existing file on disk already meets cutoff: %s", onDisk), nil
		}
		if !quality.IsUpgradable(c.Profile, onDisk, formats, c.Quality, c.CustomFormats) {
			return Reject(Permanent, "Existing file on disk is of equal or higher quality: %s", onDisk), nil
		}
		if !c.Profile.UpgradeAllowed && c.Profile.CompareQuality(c.Quality.Quality, onDisk.Quality) > 0 {
			return Reject(Permanent, "Quality profile %s does not allow upgrades from %s", c.Profile.Name, onDisk.Quality), nil
		}
	}
	return Accept(), nil
}

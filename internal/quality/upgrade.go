package quality

// CutoffNotMet reports whether further upgrades are still wanted for an item
// whose held qualities are current. Only the best held quality counts. The
// candidate is optional; when given, a revision upgrade of a quality sitting
// exactly at the cutoff still counts as unmet.
//
// Whether the candidate is allowed by the profile is not considered here.
func CutoffNotMet(profile *Profile, current []Model, currentFormats []CustomFormat, candidate *Model) bool {
	if len(current) == 0 {
		return true
	}

	best := current[0]
	for _, m := range current[1:] {
		if profile.Compare(m, best) > 0 {
			best = m
		}
	}

	switch c := profile.CompareQuality(best.Quality, profile.Cutoff); {
	case c < 0:
		return true
	case c == 0 && candidate != nil && IsRevisionUpgrade(best, *candidate):
		return true
	}

	return profile.FormatScore(currentFormats) < profile.CutoffFormatScore
}

// IsUpgradable reports whether candidate strictly improves on current,
// comparing (profile rank, revision, custom format score) in that order.
// Equal keys are not an upgrade.
func IsUpgradable(profile *Profile, current Model, currentFormats []CustomFormat, candidate Model, candidateFormats []CustomFormat) bool {
	if c := profile.Compare(candidate, current); c != 0 {
		return c > 0
	}
	return profile.FormatScore(candidateFormats) > profile.FormatScore(currentFormats)
}

// IsRevisionUpgrade reports whether candidate is a newer revision of the same tier.
func IsRevisionUpgrade(current, candidate Model) bool {
	return current.Quality.ID == candidate.Quality.ID &&
		candidate.Revision.Compare(current.Revision) > 0
}

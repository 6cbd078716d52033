package quality

import (
	"fmt"
	"regexp"
)

// ProfileItem is one tier in a profile, lowest preference first.
type ProfileItem struct {
	Quality Quality
	Allowed bool
}

// FormatItem assigns a signed score to a custom format.
type FormatItem struct {
	Format string
	Score  int
}

// Profile is a user's ordered list of acceptable tiers, a cutoff, and
// custom format scores. Items are ordered from least to most preferred.
type Profile struct {
	Name              string
	Items             []ProfileItem
	Cutoff            Quality
	UpgradeAllowed    bool
	FormatItems       []FormatItem
	MinFormatScore    int
	CutoffFormatScore int
}

// Index returns the rank of q in the profile, or -1 when q is not listed.
func (p *Profile) Index(q Quality) int {
	for i, item := range p.Items {
		if item.Quality.ID == q.ID {
			return i
		}
	}
	return -1
}

// Allows reports whether q is listed and allowed.
func (p *Profile) Allows(q Quality) bool {
	i := p.Index(q)
	return i >= 0 && p.Items[i].Allowed
}

// AllowedNames lists allowed tiers for messages.
func (p *Profile) AllowedNames() []string {
	var names []string
	for _, item := range p.Items {
		if item.Allowed {
			names = append(names, item.Quality.Name)
		}
	}
	return names
}

// CompareQuality orders two tiers by their rank in the profile.
func (p *Profile) CompareQuality(a, b Quality) int {
	return compareInt(p.Index(a), p.Index(b))
}

// Compare orders two models by rank, then revision.
func (p *Profile) Compare(a, b Model) int {
	if c := p.CompareQuality(a.Quality, b.Quality); c != 0 {
		return c
	}
	return a.Revision.Compare(b.Revision)
}

// FormatScore sums the profile's scores for the given formats. Formats the
// profile does not mention score zero.
func (p *Profile) FormatScore(formats []CustomFormat) int {
	score := 0
	for _, f := range formats {
		for _, item := range p.FormatItems {
			if item.Format == f.Name {
				score += item.Score
			}
		}
	}
	return score
}

// Validate checks that the profile is usable: at least one allowed tier and
// a cutoff that is listed.
func (p *Profile) Validate() error {
	if len(p.AllowedNames()) == 0 {
		return fmt.Errorf("profile %q: no allowed qualities", p.Name)
	}
	if p.Index(p.Cutoff) < 0 {
		return fmt.Errorf("profile %q: cutoff %s is not in the profile", p.Name, p.Cutoff)
	}
	return nil
}

func compareInt(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// CustomFormat is a named classifier matched against release titles.
type CustomFormat struct {
	Name     string
	patterns []*regexp.Regexp
}

// NewCustomFormat compiles patterns into a format that matches a title when
// any pattern matches.
func NewCustomFormat(name string, patterns ...string) (CustomFormat, error) {
	f := CustomFormat{Name: name}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return CustomFormat{}, fmt.Errorf("custom format %q: %w", name, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Matches reports whether the title satisfies the format.
func (f CustomFormat) Matches(title string) bool {
	for _, re := range f.patterns {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// MatchFormats returns the formats that match title.
func MatchFormats(formats []CustomFormat, title string) []CustomFormat {
	var matched []CustomFormat
	for _, f := range formats {
		if f.Matches(title) {
			matched = append(matched, f)
		}
	}
	return matched
}

// FormatsFromNames rebuilds pattern-less formats from a stored name snapshot.
// The result is only good for scoring.
func FormatsFromNames(names []string) []CustomFormat {
	formats := make([]CustomFormat, 0, len(names))
	for _, n := range names {
		formats = append(formats, CustomFormat{Name: n})
	}
	return formats
}

// FormatNames returns the names of formats.
func FormatNames(formats []CustomFormat) []string {
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, f.Name)
	}
	return names
}

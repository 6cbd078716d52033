package decision

import (
	"context"

	"github.com/vmunix/fetcharr/pkg/release"
)

// TitleMatchSpec rejects releases whose parsed title does not fuzzily match
// the item they were found for. Discographies are named after the artist,
// not an item, and are skipped.
type TitleMatchSpec struct{}

func (TitleMatchSpec) Name() string { return "title_match" }
func (TitleMatchSpec) Priority() Priority { return PriorityParsing }

func (TitleMatchSpec) Evaluate(_ context.Context, _ *Config, c *Candidate, _ *SearchContext) (Decision, error) {
	if c.Discography {
		return Accept(), nil
	}

	titles := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		titles = append(titles, item.Title)
	}
	match := release.MatchTitle(c.Parsed.Title, titles)
	if match.Confidence == release.ConfidenceNone {
		return Reject(Permanent, "Parsed title %q does not match %q (similarity %.2f)",
			c.Parsed.Title, titles[0], match.Score), nil
	}

	for _, item := range c.Items {
		if item.Title != match.Title {
			continue
		}
		if item.Year != 0 && c.Parsed.Year != 0 && item.Year != c.Parsed.Year {
			return Reject(Permanent, "Release year %d does not match %q (%d)", c.Parsed.Year, item.Title, item.Year), nil
		}
	}
	return Accept(), nil
}

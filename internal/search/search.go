// Package search queries indexers for an item and runs every result through
// the decision pipeline.
package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/fetcharr/internal/decision"
	"github.com/vmunix/fetcharr/internal/library"
	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/pkg/newznab"
	"github.com/vmunix/fetcharr/pkg/release"
)

//go:generate mockgen -destination=mocks/mock_indexer.go -package=mocks github.com/vmunix/fetcharr/internal/search Indexer

// Indexer is a source of releases.
type Indexer interface {
	Name() string
	Search(ctx context.Context, query string) ([]newznab.Release, error)
}

// Request names the items to search for.
type Request struct {
	Items   []*library.Item
	Profile *quality.Profile
	Query   string // defaults to the first item's title and year
	Manual  bool   // user-initiated; skips history and minimum age
}

// Result is the outcome of a search.
type Result struct {
	Query       string
	Evaluations []decision.Evaluation // accepted first, best first
	Errors      []error               // indexers that failed
}

// Accepted returns the accepted evaluations, best first.
func (r *Result) Accepted() []decision.Evaluation {
	i := slices.IndexFunc(r.Evaluations, func(e decision.Evaluation) bool { return !e.Decision.Accepted })
	if i < 0 {
		return r.Evaluations
	}
	return r.Evaluations[:i]
}

// Best returns the preferred accepted release, or nil.
func (r *Result) Best() *decision.Evaluation {
	if accepted := r.Accepted(); len(accepted) > 0 {
		return &accepted[0]
	}
	return nil
}

// Searcher fans a query out to every indexer.
type Searcher struct {
	indexers []Indexer
	pipeline *decision.Pipeline
	formats  []quality.CustomFormat
	log      *slog.Logger
}

// NewSearcher creates a searcher over the given indexers.
func NewSearcher(indexers []Indexer, pipeline *decision.Pipeline, formats []quality.CustomFormat, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	return &Searcher{
		indexers: indexers,
		pipeline: pipeline,
		formats:  formats,
		log:      log.With("component", "search"),
	}
}

// Search queries all indexers in parallel and evaluates the merged results.
// A failing indexer is reported in Result.Errors; the search only fails when
// every indexer does.
func (s *Searcher) Search(ctx context.Context, cfg *decision.Config, req Request) (*Result, error) {
	if len(s.indexers) == 0 {
		return nil, ErrNoIndexers
	}
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	query := req.Query
	if query == "" {
		query = QueryFor(req.Items[0])
	}
	start := time.Now()

	releases, errs := s.query(ctx, query)
	if len(errs) == len(s.indexers) {
		return nil, fmt.Errorf("search %q: %w", query, errors.Join(errs...))
	}

	itemIDs := make([]int64, 0, len(req.Items))
	for _, item := range req.Items {
		itemIDs = append(itemIDs, item.ID)
	}
	var searchCtx *decision.SearchContext
	if req.Manual {
		searchCtx = &decision.SearchContext{ItemIDs: itemIDs, Query: query}
	}

	candidates := make([]*decision.Candidate, 0, len(releases))
	for _, r := range releases {
		candidates = append(candidates, decision.NewCandidate(decision.Release{
			Title:       r.Title,
			GUID:        r.GUID,
			Indexer:     r.Indexer,
			DownloadURL: r.DownloadURL,
			Protocol:    r.Protocol,
			Size:        r.Size,
			PublishDate: r.PublishDate,
		}, req.Items, req.Profile, s.formats))
	}

	evaluations, err := s.pipeline.EvaluateAll(ctx, cfg, candidates, searchCtx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(evaluations, func(a, b decision.Evaluation) int {
		return compareEvaluations(req.Profile, a, b)
	})

	result := &Result{Query: query, Evaluations: evaluations, Errors: errs}
	s.log.Info("search complete", "query", query, "results", len(evaluations),
		"accepted", len(result.Accepted()), "errors", len(errs), "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (s *Searcher) query(ctx context.Context, query string) ([]newznab.Release, []error) {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		releases []newznab.Release
		errs     []error
	)
	for _, idx := range s.indexers {
		g.Go(func() error {
			start := time.Now()
			found, err := idx.Search(ctx, query)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("indexer failed", "indexer", idx.Name(), "error", err,
					"duration_ms", time.Since(start).Milliseconds())
				errs = append(errs, err)
				return nil
			}
			s.log.Debug("indexer returned", "indexer", idx.Name(), "results", len(found),
				"duration_ms", time.Since(start).Milliseconds())
			releases = append(releases, found...)
			return nil
		})
	}
	_ = g.Wait()
	return dedupe(releases), errs
}

// dedupe drops releases seen on more than one indexer, keeping the first.
func dedupe(releases []newznab.Release) []newznab.Release {
	seen := make(map[string]bool, len(releases))
	out := releases[:0]
	for _, r := range releases {
		key := r.GUID
		if key == "" {
			key = r.DownloadURL
		}
		if key != "" && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// QueryFor builds the search text for an item.
func QueryFor(item *library.Item) string {
	q := release.CleanTitle(item.Title)
	if item.Year > 0 {
		q = fmt.Sprintf("%s %d", q, item.Year)
	}
	return q
}

// compareEvaluations orders accepted before rejected, then by profile rank,
// custom format score and publish date, best first.
func compareEvaluations(profile *quality.Profile, a, b decision.Evaluation) int {
	if a.Decision.Accepted != b.Decision.Accepted {
		if a.Decision.Accepted {
			return -1
		}
		return 1
	}
	if profile != nil {
		if c := profile.Compare(b.Candidate.Quality, a.Candidate.Quality); c != 0 {
			return c
		}
		if c := cmp.Compare(profile.FormatScore(b.Candidate.CustomFormats), profile.FormatScore(a.Candidate.CustomFormats)); c != 0 {
			return c
		}
	}
	return b.Candidate.Release.PublishDate.Compare(a.Candidate.Release.PublishDate)
}

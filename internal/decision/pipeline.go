package decision

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultParallelism bounds EvaluateAll when no limit is given.
const DefaultParallelism = 4

// Dependencies are the lookups the database rules read from.
type Dependencies struct {
	History HistoryLookup
	Queue   QueueLookup
	Clients ProtocolLookup
	Log     *slog.Logger
}

// DefaultSpecifications returns the full rule set.
func DefaultSpecifications(deps Dependencies) []Specification {
	return []Specification{
		NewProtocolSpec(deps.Clients),
		QualityAllowedSpec{},
		CustomFormatScoreSpec{},
		MaximumSizeSpec{},
		MinimumAgeSpec{},
		RetentionSpec{},
		TitleMatchSpec{},
		UpgradeDiskSpec{},
		NewQueueSpec(deps.Queue),
		NewHistorySpec(deps.History, deps.Log),
	}
}

// Evaluation pairs a candidate with its decision.
type Evaluation struct {
	Candidate *Candidate
	Decision  Decision
}

// Pipeline runs specifications in ascending priority, stopping at the first
// rejection.
type Pipeline struct {
	specs       []Specification
	parallelism int
	log         *slog.Logger

	mu    sync.Mutex
	locks map[int64]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

// NewPipeline sorts specs by priority, keeping the given order within a
// priority. A parallelism below 1 uses DefaultParallelism.
func NewPipeline(specs []Specification, parallelism int, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if parallelism < 1 {
		parallelism = DefaultParallelism
	}
	sorted := slices.Clone(specs)
	slices.SortStableFunc(sorted, func(a, b Specification) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})
	return &Pipeline{
		specs:       sorted,
		parallelism: parallelism,
		log:         log.With("component", "decision"),
		locks:       make(map[int64]*itemLock),
	}
}

// Rules returns the rule names in evaluation order.
func (p *Pipeline) Rules() []string {
	names := make([]string, len(p.specs))
	for i, s := range p.specs {
		names[i] = s.Name()
	}
	return names
}

// Run evaluates a candidate. The first rejection is returned as is. An error
// from any rule aborts the run and is returned wrapped; it is never turned
// into a rejection.
func (p *Pipeline) Run(ctx context.Context, cfg *Config, c *Candidate, search *SearchContext) (Decision, error) {
	if c == nil || c.Profile == nil || len(c.Items) == 0 {
		return Decision{}, ErrInvalidCandidate
	}
	if cfg == nil {
		cfg = &Config{}
	}

	start := time.Now()
	for _, spec := range p.specs {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		d, err := spec.Evaluate(ctx, cfg, c, search)
		if err != nil {
			p.log.Error("rule failed", "rule", spec.Name(), "release", c.Release.Title, "error", err)
			return Decision{}, fmt.Errorf("rule %s: %w", spec.Name(), err)
		}
		if !d.Accepted {
			d.Rule = spec.Name()
			p.log.Debug("release rejected", "release", c.Release.Title, "rule", d.Rule,
				"type", d.Type, "reason", d.Reason, "duration_ms", time.Since(start).Milliseconds())
			return d, nil
		}
	}

	p.log.Debug("release accepted", "release", c.Release.Title, "duration_ms", time.Since(start).Milliseconds())
	return Accept(), nil
}

// EvaluateAll runs candidates in parallel. Candidates sharing a library item
// are evaluated one at a time. Results keep the input order; the first error
// cancels the remaining evaluations.
func (p *Pipeline) EvaluateAll(ctx context.Context, cfg *Config, candidates []*Candidate, search *SearchContext) ([]Evaluation, error) {
	results := make([]Evaluation, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for i, c := range candidates {
		g.Go(func() error {
			unlock := p.lockItems(c)
			defer unlock()

			d, err := p.Run(ctx, cfg, c, search)
			if err != nil {
				return fmt.Errorf("evaluate %q: %w", c.Release.Title, err)
			}
			results[i] = Evaluation{Candidate: c, Decision: d}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// lockItems locks every item of c in id order and returns the unlock func.
func (p *Pipeline) lockItems(c *Candidate) func() {
	if c == nil {
		return func() {}
	}
	ids := slices.Compact(slices.Sorted(slices.Values(c.ItemIDs())))

	held := make([]*itemLock, 0, len(ids))
	for _, id := range ids {
		p.mu.Lock()
		l, ok := p.locks[id]
		if !ok {
			l = &itemLock{}
			p.locks[id] = l
		}
		l.refs++
		p.mu.Unlock()

		l.mu.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			p.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(p.locks, ids[i])
			}
			p.mu.Unlock()
		}
	}
}

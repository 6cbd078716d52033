package decision_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/fetcharr/internal/decision"
	"github.com/vmunix/fetcharr/internal/decision/mocks"
	"github.com/vmunix/fetcharr/internal/library"
	"github.com/vmunix/fetcharr/internal/quality"
	"go.uber.org/mock/gomock"
)

// fakeSpec returns a fixed decision and counts its calls.
type fakeSpec struct {
	name     string
	priority decision.Priority
	decision decision.Decision
	err      error
	calls    atomic.Int32
}

func (f *fakeSpec) Name() string { return f.name }
func (f *fakeSpec) Priority() decision.Priority { return f.priority }

func (f *fakeSpec) Evaluate(context.Context, *decision.Config, *decision.Candidate, *decision.SearchContext) (decision.Decision, error) {
	f.calls.Add(1)
	return f.decision, f.err
}

func accepting(name string, p decision.Priority) *fakeSpec {
	return &fakeSpec{name: name, priority: p, decision: decision.Accept()}
}

func TestNewPipeline_OrdersByPriority(t *testing.T) {
	p := decision.NewPipeline([]decision.Specification{
		accepting("history", decision.PriorityDatabase),
		accepting("title", decision.PriorityParsing),
		accepting("size", decision.PriorityDefault),
		accepting("queue", decision.PriorityDatabase),
		accepting("quality", decision.PriorityDefault),
	}, 1, testLogger())

	assert.Equal(t, []string{"size", "quality", "title", "history", "queue"}, p.Rules())
}

func TestDefaultSpecifications_Order(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := decision.NewPipeline(decision.DefaultSpecifications(decision.Dependencies{
		History: mocks.NewMockHistoryLookup(ctrl),
		Queue:   mocks.NewMockQueueLookup(ctrl),
		Clients: mocks.NewMockProtocolLookup(ctrl),
		Log:     testLogger(),
	}), 0, testLogger())

	assert.Equal(t, []string{
		"protocol", "quality_allowed", "custom_format_score", "maximum_size", "minimum_age", "retention",
		"title_match",
		"upgrade_disk", "queue", "history",
	}, p.Rules())
}

func TestPipeline_Run_ShortCircuits(t *testing.T) {
	first := accepting("first", decision.PriorityDefault)
	reject := &fakeSpec{
		name:     "delay",
		priority: decision.PriorityDefault,
		decision: decision.Reject(decision.Temporary, "Release is too new"),
	}
	last := accepting("last", decision.PriorityDatabase)

	p := decision.NewPipeline([]decision.Specification{last, first, reject}, 1, testLogger())
	d, err := p.Run(context.Background(), testConfig(), newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP"), nil)
	require.NoError(t, err)

	assert.False(t, d.Accepted)
	assert.Equal(t, decision.Temporary, d.Type, "rejection type is preserved")
	assert.Equal(t, "delay", d.Rule)
	assert.Equal(t, "Release is too new", d.Reason)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(0), last.calls.Load(), "later rules are not run")
}

func TestPipeline_Run_AcceptsWhenAllPass(t *testing.T) {
	specs := []decision.Specification{accepting("a", decision.PriorityDefault), accepting("b", decision.PriorityParsing)}
	p := decision.NewPipeline(specs, 1, testLogger())

	d, err := p.Run(context.Background(), nil, newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP"), nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.Empty(t, d.Rule)
}

func TestPipeline_Run_PropagatesErrors(t *testing.T) {
	outage := errors.New("connection refused")
	failing := &fakeSpec{name: "history", priority: decision.PriorityDatabase, err: outage}
	after := accepting("after", decision.PriorityDatabase)

	p := decision.NewPipeline([]decision.Specification{failing, after}, 1, testLogger())
	d, err := p.Run(context.Background(), testConfig(), newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP"), nil)

	require.ErrorIs(t, err, outage)
	assert.Contains(t, err.Error(), "rule history")
	assert.False(t, d.Accepted)
	assert.Empty(t, d.Reason, "errors are not rejections")
	assert.Equal(t, int32(0), after.calls.Load())
}

func TestPipeline_Run_InvalidCandidate(t *testing.T) {
	p := decision.NewPipeline(nil, 1, testLogger())

	c := newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP")
	c.Items = nil
	_, err := p.Run(context.Background(), testConfig(), c, nil)
	require.ErrorIs(t, err, decision.ErrInvalidCandidate)

	c = newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP")
	c.Profile = nil
	_, err = p.Run(context.Background(), testConfig(), c, nil)
	require.ErrorIs(t, err, decision.ErrInvalidCandidate)
}

func TestPipeline_Run_DefaultRules(t *testing.T) {
	ctrl := gomock.NewController(t)
	hist := mocks.NewMockHistoryLookup(ctrl)
	queue := mocks.NewMockQueueLookup(ctrl)
	clients := mocks.NewMockProtocolLookup(ctrl)

	clients.EXPECT().HasProtocol(gomock.Any()).Return(true).AnyTimes()
	queue.EXPECT().ActiveForItem(gomock.Any(), int64(1)).Return(nil, nil).AnyTimes()
	hist.EXPECT().MostRecentForItem(gomock.Any(), int64(1)).Return(grab(time.Hour, quality.HDTV720p), nil).AnyTimes()

	p := decision.NewPipeline(decision.DefaultSpecifications(decision.Dependencies{
		History: hist, Queue: queue, Clients: clients, Log: testLogger(),
	}), 2, testLogger())

	d, err := p.Run(context.Background(), testConfig(), newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP"), nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted, d.String())

	d, err = p.Run(context.Background(), testConfig(), newCandidate(t, "Dune.2021.720p.HDTV.x264-GRP"), nil)
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Equal(t, "history", d.Rule)
	assert.Contains(t, d.String(), "rejected (permanent) by history")

	d, err = p.Run(context.Background(), testConfig(), newCandidate(t, "Dune.2021.DVDRip.XviD-GRP"), nil)
	require.NoError(t, err)
	assert.Equal(t, "quality_allowed", d.Rule, "cheap rules reject before history is read")
}

func TestPipeline_EvaluateAll(t *testing.T) {
	reject := &fakeSpec{name: "never", priority: decision.PriorityDefault, decision: decision.Reject(decision.Permanent, "no")}
	p := decision.NewPipeline([]decision.Specification{reject}, 3, testLogger())

	var candidates []*decision.Candidate
	for i := range 10 {
		item := &library.Item{ID: int64(i % 3), Title: "Dune"}
		c := newCandidate(t, fmt.Sprintf("Dune.2021.1080p.WEB-DL.x264-GRP%d", i), item)
		candidates = append(candidates, c)
	}

	results, err := p.EvaluateAll(context.Background(), testConfig(), candidates, nil)
	require.NoError(t, err)
	require.Len(t, results, len(candidates))
	for i, r := range results {
		assert.Same(t, candidates[i], r.Candidate, "results keep input order")
		assert.False(t, r.Decision.Accepted)
	}
	assert.Equal(t, int32(10), reject.calls.Load())
}

// itemTracker records how many evaluations hold each item at once.
type itemTracker struct {
	mu      sync.Mutex
	active  map[int64]int
	maxSeen map[int64]int
}

func (tr *itemTracker) Name() string { return "tracker" }
func (tr *itemTracker) Priority() decision.Priority { return decision.PriorityDatabase }

func (tr *itemTracker) Evaluate(_ context.Context, _ *decision.Config, c *decision.Candidate, _ *decision.SearchContext) (decision.Decision, error) {
	ids := c.ItemIDs()
	tr.mu.Lock()
	for _, id := range ids {
		tr.active[id]++
		tr.maxSeen[id] = max(tr.maxSeen[id], tr.active[id])
	}
	tr.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	tr.mu.Lock()
	for _, id := range ids {
		tr.active[id]--
	}
	tr.mu.Unlock()
	return decision.Accept(), nil
}

func TestPipeline_EvaluateAll_SerializesSharedItems(t *testing.T) {
	tracker := &itemTracker{active: map[int64]int{}, maxSeen: map[int64]int{}}
	p := decision.NewPipeline([]decision.Specification{tracker}, 8, testLogger())

	shared := &library.Item{ID: 1, Title: "Album One"}
	var candidates []*decision.Candidate
	for i := range 12 {
		items := []*library.Item{shared}
		if i%2 == 0 {
			items = append(items, &library.Item{ID: int64(100 + i), Title: "Album Two"})
		}
		candidates = append(candidates, newCandidate(t, "Artist - Discography", items...))
	}

	results, err := p.EvaluateAll(context.Background(), testConfig(), candidates, nil)
	require.NoError(t, err)
	assert.Len(t, results, 12)
	for id, n := range tracker.maxSeen {
		assert.Equal(t, 1, n, "item %d evaluated concurrently", id)
	}
}

func TestPipeline_EvaluateAll_Error(t *testing.T) {
	outage := errors.New("database is locked")
	p := decision.NewPipeline([]decision.Specification{
		&fakeSpec{name: "history", priority: decision.PriorityDatabase, err: outage},
	}, 2, testLogger())

	candidates := []*decision.Candidate{
		newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP"),
		newCandidate(t, "Dune.2021.720p.HDTV.x264-GRP"),
	}
	results, err := p.EvaluateAll(context.Background(), testConfig(), candidates, nil)
	assert.ErrorIs(t, err, outage)
	assert.Nil(t, results)
}

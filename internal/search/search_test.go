package search_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/fetcharr/internal/decision"
	"github.com/vmunix/fetcharr/internal/library"
	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/internal/search"
	"github.com/vmunix/fetcharr/internal/search/mocks"
	"github.com/vmunix/fetcharr/pkg/newznab"
	"github.com/vmunix/fetcharr/pkg/release"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// testLogger returns a discard logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hdProfile() *quality.Profile {
	return &quality.Profile{
		Name: "hd",
		Items: []quality.ProfileItem{
			{Quality: quality.HDTV720p, Allowed: true},
			{Quality: quality.WEBDL1080p, Allowed: true},
			{Quality: quality.Bluray1080p, Allowed: true},
		},
		Cutoff:         quality.Bluray1080p,
		UpgradeAllowed: true,
		FormatItems:    []quality.FormatItem{{Format: "x265", Score: 10}},
	}
}

func dune() *library.Item {
	return &library.Item{ID: 1, Title: "Dune", Year: 2021, QualityProfile: "hd"}
}

func nzb(guid, title string) newznab.Release {
	return newznab.Release{
		Title:       title,
		GUID:        guid,
		DownloadURL: "http://indexer/getnzb/" + guid,
		Protocol:    release.ProtocolUsenet,
		Size:        4 << 30,
		PublishDate: testNow.Add(-2 * time.Hour),
		Indexer:     "nzbgeek",
	}
}

func indexer(ctrl *gomock.Controller, name string) *mocks.MockIndexer {
	idx := mocks.NewMockIndexer(ctrl)
	idx.EXPECT().Name().Return(name).AnyTimes()
	return idx
}

func newSearcher(t *testing.T, indexers ...search.Indexer) *search.Searcher {
	t.Helper()
	x265, err := quality.NewCustomFormat("x265", `\bx265\b`)
	require.NoError(t, err)
	pipeline := decision.NewPipeline([]decision.Specification{
		decision.QualityAllowedSpec{},
		decision.MinimumAgeSpec{},
		decision.TitleMatchSpec{},
	}, 2, testLogger())
	return search.NewSearcher(indexers, pipeline, []quality.CustomFormat{x265}, testLogger())
}

func titles(evals []decision.Evaluation) []string {
	out := make([]string, 0, len(evals))
	for _, e := range evals {
		out = append(out, e.Candidate.Release.Title)
	}
	return out
}

func TestSearcher_Search(t *testing.T) {
	ctrl := gomock.NewController(t)

	first := indexer(ctrl, "nzbgeek")
	first.EXPECT().Search(gomock.Any(), "dune 2021").Return([]newznab.Release{
		nzb("a", "Dune.2021.720p.HDTV.x264-GRP"),
		nzb("b", "Dune.2021.1080p.BluRay.x264-GRP"),
	}, nil)
	second := indexer(ctrl, "drunkenslug")
	second.EXPECT().Search(gomock.Any(), "dune 2021").Return([]newznab.Release{
		nzb("c", "Dune.2021.1080p.WEB-DL.x265-GRP"),
		nzb("b", "Dune.2021.1080p.BluRay.x264-GRP"),
		nzb("d", "Dune.2021.2160p.WEB-DL.x265-GRP"),
		nzb("e", "Arrival.2016.1080p.BluRay.x264-GRP"),
	}, nil)

	searcher := newSearcher(t, first, second)
	result, err := searcher.Search(context.Background(), &decision.Config{Now: testNow},
		search.Request{Items: []*library.Item{dune()}, Profile: hdProfile()})
	require.NoError(t, err)

	assert.Equal(t, "dune 2021", result.Query)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Evaluations, 5, "duplicate GUID dropped")
	assert.Equal(t, []string{
		"Dune.2021.1080p.BluRay.x264-GRP",
		"Dune.2021.1080p.WEB-DL.x265-GRP",
		"Dune.2021.720p.HDTV.x264-GRP",
	}, titles(result.Accepted()))

	best := result.Best()
	require.NotNil(t, best)
	assert.Equal(t, "b", best.Candidate.Release.GUID)

	rejected := map[string]string{}
	for _, e := range result.Evaluations[3:] {
		rejected[e.Candidate.Release.GUID] = e.Decision.Rule
	}
	assert.Equal(t, map[string]string{"d": "quality_allowed", "e": "title_match"}, rejected)
}

func TestSearcher_Search_FormatScoreBreaksTies(t *testing.T) {
	ctrl := gomock.NewController(t)

	idx := indexer(ctrl, "nzbgeek")
	idx.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]newznab.Release{
		nzb("a", "Dune.2021.1080p.WEB-DL.x264-GRP"),
		nzb("b", "Dune.2021.1080p.WEB-DL.x265-GRP"),
	}, nil)

	result, err := newSearcher(t, idx).Search(context.Background(), &decision.Config{Now: testNow},
		search.Request{Items: []*library.Item{dune()}, Profile: hdProfile()})
	require.NoError(t, err)
	assert.Equal(t, "b", result.Best().Candidate.Release.GUID)
}

func TestSearcher_Search_IndexerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	outage := errors.New("connection refused")

	broken := indexer(ctrl, "broken")
	broken.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, outage)
	working := indexer(ctrl, "nzbgeek")
	working.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]newznab.Release{
		nzb("a", "Dune.2021.1080p.BluRay.x264-GRP"),
	}, nil)

	result, err := newSearcher(t, broken, working).Search(context.Background(), &decision.Config{Now: testNow},
		search.Request{Items: []*library.Item{dune()}, Profile: hdProfile()})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], outage)
	assert.Len(t, result.Accepted(), 1)
}

func TestSearcher_Search_AllIndexersFail(t *testing.T) {
	ctrl := gomock.NewController(t)
	outage := errors.New("connection refused")

	idx := indexer(ctrl, "broken")
	idx.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, outage)

	_, err := newSearcher(t, idx).Search(context.Background(), &decision.Config{Now: testNow},
		search.Request{Items: []*library.Item{dune()}, Profile: hdProfile()})
	assert.ErrorIs(t, err, outage)
}

func TestSearcher_Search_ManualSkipsMinimumAge(t *testing.T) {
	ctrl := gomock.NewController(t)

	fresh := nzb("a", "Dune.2021.1080p.BluRay.x264-GRP")
	fresh.PublishDate = testNow.Add(-5 * time.Minute)
	idx := indexer(ctrl, "nzbgeek")
	idx.EXPECT().Search(gomock.Any(), "dune part one").Return([]newznab.Release{fresh}, nil).Times(2)

	searcher := newSearcher(t, idx)
	cfg := &decision.Config{Now: testNow, MinimumAgeMinutes: 30}
	req := search.Request{Items: []*library.Item{dune()}, Profile: hdProfile(), Query: "dune part one"}

	result, err := searcher.Search(context.Background(), cfg, req)
	require.NoError(t, err)
	assert.Nil(t, result.Best())
	assert.Equal(t, decision.Temporary, result.Evaluations[0].Decision.Type)

	req.Manual = true
	result, err = searcher.Search(context.Background(), cfg, req)
	require.NoError(t, err)
	assert.NotNil(t, result.Best())
}

func TestSearcher_Search_InvalidRequest(t *testing.T) {
	_, err := newSearcher(t).Search(context.Background(), nil, search.Request{Items: []*library.Item{dune()}})
	assert.ErrorIs(t, err, search.ErrNoIndexers)

	ctrl := gomock.NewController(t)
	_, err = newSearcher(t, indexer(ctrl, "nzbgeek")).Search(context.Background(), nil, search.Request{})
	assert.ErrorIs(t, err, search.ErrNoItems)
}

func TestQueryFor(t *testing.T) {
	assert.Equal(t, "dune 2021", search.QueryFor(&library.Item{Title: "Dune", Year: 2021}))
	assert.Equal(t, "amelie", search.QueryFor(&library.Item{Title: "Amélie"}))
}

package decision_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/fetcharr/internal/decision"
	"github.com/vmunix/fetcharr/internal/decision/mocks"
	"github.com/vmunix/fetcharr/internal/download"
	"github.com/vmunix/fetcharr/internal/library"
	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/pkg/release"
	"go.uber.org/mock/gomock"
)

func TestProtocolSpec(t *testing.T) {
	ctrl := gomock.NewController(t)
	clients := mocks.NewMockProtocolLookup(ctrl)
	clients.EXPECT().HasProtocol(release.ProtocolUsenet).Return(true)
	clients.EXPECT().HasProtocol(release.ProtocolTorrent).Return(false)

	spec := decision.NewProtocolSpec(clients)
	c := newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP")

	d, err := spec.Evaluate(context.Background(), testConfig(), c, nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted)

	c.Release.Protocol = release.ProtocolTorrent
	d, err = spec.Evaluate(context.Background(), testConfig(), c, nil)
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Equal(t, decision.Temporary, d.Type)
	assert.Contains(t, d.Reason, "torrent")
}

func TestQualityAllowedSpec(t *testing.T) {
	tests := []struct {
		release string
		want    bool
	}{
		{"Dune.2021.1080p.WEB-DL.x264-GRP", true},
		{"Dune.2021.720p.HDTV.x264-GRP", true},
		{"Dune.2021.DVDRip.XviD-GRP", false},       // listed but not allowed
		{"Dune.2021.2160p.BluRay.x265-GRP", false}, // not listed
		{"Dune.2021.HDCAM.x264-GRP", false},
	}
	for _, tt := range tests {
		t.Run(tt.release, func(t *testing.T) {
			d, err := decision.QualityAllowedSpec{}.Evaluate(context.Background(), testConfig(), newCandidate(t, tt.release), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Accepted)
			if !tt.want {
				assert.Equal(t, decision.Permanent, d.Type)
				assert.Contains(t, d.Reason, "is not wanted in profile hd")
			}
		})
	}
}

func TestCustomFormatScoreSpec(t *testing.T) {
	d, err := decision.CustomFormatScoreSpec{}.Evaluate(context.Background(), testConfig(),
		newCandidate(t, "Dune.2021.1080p.WEB-DL.x265-GRP"), nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted)

	d, err = decision.CustomFormatScoreSpec{}.Evaluate(context.Background(), testConfig(),
		newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-BADGRP"), nil)
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Contains(t, d.Reason, "-100")
}

func TestMaximumSizeSpec(t *testing.T) {
	c := newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP") // 4 GiB

	d, err := decision.MaximumSizeSpec{}.Evaluate(context.Background(), &decision.Config{}, c, nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted, "no limit configured")

	d, err = decision.MaximumSizeSpec{}.Evaluate(context.Background(), &decision.Config{MaximumSizeMB: 8192}, c, nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted)

	d, err = decision.MaximumSizeSpec{}.Evaluate(context.Background(), &decision.Config{MaximumSizeMB: 2048}, c, nil)
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Contains(t, d.Reason, "4.0 GiB")
	assert.Contains(t, d.Reason, "2.0 GiB")
}

func TestMinimumAgeSpec(t *testing.T) {
	cfg := &decision.Config{Now: testNow, MinimumAgeMinutes: 180}
	c := newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP") // published two hours ago

	d, err := decision.MinimumAgeSpec{}.Evaluate(context.Background(), cfg, c, nil)
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Equal(t, decision.Temporary, d.Type)
	assert.Contains(t, d.Reason, "120 minutes old")

	d, err = decision.MinimumAgeSpec{}.Evaluate(context.Background(), cfg, c, &decision.SearchContext{})
	require.NoError(t, err)
	assert.True(t, d.Accepted, "manual search skips the delay")

	c.Release.Protocol = release.ProtocolTorrent
	d, err = decision.MinimumAgeSpec{}.Evaluate(context.Background(), cfg, c, nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted, "torrents are not delayed")

	cfg.MinimumAgeMinutes = 60
	c.Release.Protocol = release.ProtocolUsenet
	d, err = decision.MinimumAgeSpec{}.Evaluate(context.Background(), cfg, c, nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted)
}

func TestRetentionSpec(t *testing.T) {
	c := newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP")
	c.Release.PublishDate = testNow.Add(-30 * 24 * time.Hour)

	d, err := decision.RetentionSpec{}.Evaluate(context.Background(), &decision.Config{Now: testNow, RetentionDays: 10}, c, nil)
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Equal(t, decision.Permanent, d.Type)
	assert.Contains(t, d.Reason, "30 days old")

	d, err = decision.RetentionSpec{}.Evaluate(context.Background(), &decision.Config{Now: testNow, RetentionDays: 3000}, c, nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted)

	d, err = decision.RetentionSpec{}.Evaluate(context.Background(), &decision.Config{Now: testNow}, c, nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted, "unlimited retention")
}

func TestTitleMatchSpec(t *testing.T) {
	tests := []struct {
		name    string
		release string
		items   []*library.Item
		want    bool
		reason  string
	}{
		{name: "exact", release: "Dune.2021.1080p.WEB-DL.x264-GRP", want: true},
		{name: "other title", release: "Arrival.2016.1080p.WEB-DL.x264-GRP", reason: "does not match"},
		{name: "wrong year", release: "Dune.1984.1080p.BluRay.x264-GRP", reason: "Release year 1984"},
		{
			name:    "discography skips matching",
			release: "Alien Ant Farm - Discography",
			items:   []*library.Item{{ID: 4, Title: "Anthology"}, {ID: 5, Title: "Truant"}},
			want:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decision.TitleMatchSpec{}.Evaluate(context.Background(), testConfig(), newCandidate(t, tt.release, tt.items...), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Accepted, d.Reason)
			if tt.reason != "" {
				assert.Contains(t, d.Reason, tt.reason)
			}
		})
	}
}

func TestUpgradeDiskSpec(t *testing.T) {
	withFile := func(q quality.Quality, formats ...string) *library.Item {
		item := dune()
		item.File = &library.File{Quality: quality.NewModel(q), CustomFormats: formats}
		return item
	}

	tests := []struct {
		name    string
		item    *library.Item
		release string
		want    bool
		reason  string
	}{
		{name: "no file", item: dune(), release: "Dune.2021.720p.HDTV.x264-GRP", want: true},
		{name: "better tier", item: withFile(quality.HDTV720p), release: "Dune.2021.1080p.WEB-DL.x264-GRP", want: true},
		{name: "same tier", item: withFile(quality.WEBDL720p), release: "Dune.2021.720p.WEB-DL.x264-GRP", reason: "equal or higher quality"},
		{name: "worse tier", item: withFile(quality.WEBDL720p), release: "Dune.2021.720p.HDTV.x264-GRP", reason: "equal or higher quality"},
		{name: "cutoff met", item: withFile(quality.WEBDL1080p), release: "Dune.2021.1080p.BluRay.x264-GRP", reason: "already meets cutoff"},
		{name: "proper at cutoff", item: withFile(quality.WEBDL1080p), release: "Dune.2021.1080p.WEB-DL.PROPER.x264-GRP", want: true},
		{name: "same tier better format", item: withFile(quality.WEBDL720p), release: "Dune.2021.720p.WEB-DL.x265-GRP", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decision.UpgradeDiskSpec{}.Evaluate(context.Background(), testConfig(), newCandidate(t, tt.release, tt.item), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Accepted, d.Reason)
			if tt.reason != "" {
				assert.Contains(t, d.Reason, tt.reason)
			}
		})
	}
}

func TestUpgradeDiskSpec_UpgradesDisabled(t *testing.T) {
	item := dune()
	item.File = &library.File{Quality: quality.NewModel(quality.HDTV720p)}

	c := newCandidate(t, "Dune.2021.1080p.WEB-DL.x264-GRP", item)
	c.Profile.UpgradeAllowed = false
	d, err := decision.UpgradeDiskSpec{}.Evaluate(context.Background(), testConfig(), c, nil)
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Contains(t, d.Reason, "does not allow upgrades")

	c = newCandidate(t, "Dune.2021.720p.HDTV.PROPER.x264-GRP", item)
	c.Profile.UpgradeAllowed = false
	d, err = decision.UpgradeDiskSpec{}.Evaluate(context.Background(), testConfig(), c, nil)
	require.NoError(t, err)
	assert.True(t, d.Accepted, "revision upgrades are still taken")
}

func TestQueueSpec(t *testing.T) {
	queued := func(q quality.Quality) []*download.Download {
		return []*download.Download{{ID: 3, ItemID: 1, Client: "sab", Status: download.StatusDownloading, Quality: quality.NewModel(q)}}
	}

	tests := []struct {
		name    string
		active  []*download.Download
		release string
		want    bool
		reason  string
	}{
		{name: "empty queue", release: "Dune.2021.720p.HDTV.x264-GRP", want: true},
		{name: "queued lower", active: queued(quality.HDTV720p), release: "Dune.2021.720p.WEB-DL.x264-GRP", want: true},
		{name: "queued equal", active: queued(quality.WEBDL720p), release: "Dune.2021.720p.WEB-DL.x264-GRP", reason: "equal or higher quality"},
		{name: "queued at cutoff", active: queued(quality.WEBDL1080p), release: "Dune.2021.1080p.BluRay.x264-GRP", reason: "already meets cutoff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			queue := mocks.NewMockQueueLookup(ctrl)
			queue.EXPECT().ActiveForItem(gomock.Any(), int64(1)).Return(tt.active, nil)

			d, err := decision.NewQueueSpec(queue).Evaluate(context.Background(), testConfig(), newCandidate(t, tt.release), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Accepted, d.Reason)
			if tt.reason != "" {
				assert.Contains(t, d.Reason, tt.reason)
			}
		})
	}
}

func TestQueueSpec_LookupError(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockQueueLookup(ctrl)
	boom := errors.New("no such table: downloads")
	queue.EXPECT().ActiveForItem(gomock.Any(), int64(1)).Return(nil, boom)

	_, err := decision.NewQueueSpec(queue).Evaluate(context.Background(), testConfig(), newCandidate(t, "Dune.2021.720p.HDTV.x264-GRP"), nil)
	assert.ErrorIs(t, err, boom)
}

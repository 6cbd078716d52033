// Package quality defines quality tiers, quality profiles and the upgrade
// arithmetic used when deciding whether a release improves on what is held.
package quality

import (
	"fmt"
	"strings"

	"github.com/vmunix/fetcharr/pkg/release"
)

// Quality is a single quality tier. Tiers carry no global order; a Profile
// ranks them.
type Quality struct {
	ID         int
	Name       string
	Resolution release.Resolution
	Source     release.Source
}

func (q Quality) String() string {
	return q.Name
}

// Known tiers.
var (
	Unknown     = Quality{ID: 0, Name: "Unknown"}
	CAM         = Quality{ID: 1, Name: "CAM", Source: release.SourceCAM}
	Telesync    = Quality{ID: 2, Name: "TELESYNC", Source: release.SourceTelesync}
	SDTV        = Quality{ID: 3, Name: "SDTV", Resolution: release.Resolution480p, Source: release.SourceHDTV}
	DVD         = Quality{ID: 4, Name: "DVD", Resolution: release.Resolution480p, Source: release.SourceDVD}
	HDTV720p    = Quality{ID: 5, Name: "HDTV-720p", Resolution: release.Resolution720p, Source: release.SourceHDTV}
	WEBRip720p  = Quality{ID: 6, Name: "WEBRip-720p", Resolution: release.Resolution720p, Source: release.SourceWEBRip}
	WEBDL720p   = Quality{ID: 7, Name: "WEBDL-720p", Resolution: release.Resolution720p, Source: release.SourceWEBDL}
	Bluray720p  = Quality{ID: 8, Name: "Bluray-720p", Resolution: release.Resolution720p, Source: release.SourceBluRay}
	HDTV1080p   = Quality{ID: 9, Name: "HDTV-1080p", Resolution: release.Resolution1080p, Source: release.SourceHDTV}
	WEBRip1080p = Quality{ID: 10, Name: "WEBRip-1080p", Resolution: release.Resolution1080p, Source: release.SourceWEBRip}
	WEBDL1080p  = Quality{ID: 11, Name: "WEBDL-1080p", Resolution: release.Resolution1080p, Source: release.SourceWEBDL}
	Bluray1080p = Quality{ID: 12, Name: "Bluray-1080p", Resolution: release.Resolution1080p, Source: release.SourceBluRay}
	Remux1080p  = Quality{ID: 13, Name: "Remux-1080p", Resolution: release.Resolution1080p, Source: release.SourceRemux}
	HDTV2160p   = Quality{ID: 14, Name: "HDTV-2160p", Resolution: release.Resolution2160p, Source: release.SourceHDTV}
	WEBRip2160p = Quality{ID: 15, Name: "WEBRip-2160p", Resolution: release.Resolution2160p, Source: release.SourceWEBRip}
	WEBDL2160p  = Quality{ID: 16, Name: "WEBDL-2160p", Resolution: release.Resolution2160p, Source: release.SourceWEBDL}
	Bluray2160p = Quality{ID: 17, Name: "Bluray-2160p", Resolution: release.Resolution2160p, Source: release.SourceBluRay}
	Remux2160p  = Quality{ID: 18, Name: "Remux-2160p", Resolution: release.Resolution2160p, Source: release.SourceRemux}
)

// All lists every known tier in ID order.
var All = []Quality{
	Unknown, CAM, Telesync, SDTV, DVD,
	HDTV720p, WEBRip720p, WEBDL720p, Bluray720p,
	HDTV1080p, WEBRip1080p, WEBDL1080p, Bluray1080p, Remux1080p,
	HDTV2160p, WEBRip2160p, WEBDL2160p, Bluray2160p, Remux2160p,
}

// FindByName looks up a tier by name, case-insensitively.
func FindByName(name string) (Quality, bool) {
	for _, q := range All {
		if strings.EqualFold(q.Name, name) {
			return q, true
		}
	}
	return Unknown, false
}

// Revision tracks proper/repack releases of the same tier.
type Revision struct {
	Version int
	Real    int
}

// Compare orders revisions: REAL tags outrank version bumps.
func (r Revision) Compare(other Revision) int {
	switch {
	case r.Real > other.Real:
		return 1
	case r.Real < other.Real:
		return -1
	case r.Version > other.Version:
		return 1
	case r.Version < other.Version:
		return -1
	default:
		return 0
	}
}

// Model is a tier plus its revision.
type Model struct {
	Quality  Quality
	Revision Revision
}

// NewModel returns a first-revision model for q.
func NewModel(q Quality) Model {
	return Model{Quality: q, Revision: Revision{Version: 1}}
}

func (m Model) String() string {
	s := fmt.Sprintf("%s v%d", m.Quality.Name, m.Revision.Version)
	if m.Revision.Real > 0 {
		s += fmt.Sprintf(" REAL%d", m.Revision.Real)
	}
	return s
}

// FromInfo derives a quality model from parsed release information.
func FromInfo(info release.Info) Model {
	return Model{
		Quality:  tierFor(info.Resolution, info.Source),
		Revision: Revision{Version: max(info.Version, 1), Real: info.Real},
	}
}

func tierFor(res release.Resolution, src release.Source) Quality {
	switch src {
	case release.SourceCAM:
		return CAM
	case release.SourceTelesync:
		return Telesync
	case release.SourceDVD:
		return DVD
	}

	for _, q := range All {
		if q.Resolution == res && q.Source == src && res != release.ResolutionUnknown {
			return q
		}
	}

	// Unknown source at a known resolution is treated as the weakest HD source.
	switch res {
	case release.Resolution480p:
		return SDTV
	case release.Resolution720p:
		return HDTV720p
	case release.Resolution1080p:
		return HDTV1080p
	case release.Resolution2160p:
		return HDTV2160p
	}
	if src == release.SourceHDTV {
		return SDTV
	}
	return Unknown
}

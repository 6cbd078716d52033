// Package release parses release names and describes where a release comes from.
package release

// Resolution represents the video resolution of a release.
type Resolution int

const (
	ResolutionUnknown Resolution = iota
	Resolution480p
	Resolution720p
	Resolution1080p
	Resolution2160p
)

// unknownStr is the string representation for unknown values.
const unknownStr = "unknown"

func (r Resolution) String() string {
	switch r {
	case Resolution480p:
		return "480p"
	case Resolution720p:
		return "720p"
	case Resolution1080p:
		return "1080p"
	case Resolution2160p:
		return "2160p"
	default:
		return unknownStr
	}
}

// Source represents the media source type of a release.
type Source int

const (
	SourceUnknown Source = iota
	SourceBluRay
	SourceRemux
	SourceWEBDL
	SourceWEBRip
	SourceHDTV
	SourceDVD
	SourceCAM
	SourceTelesync
)

func (s Source) String() string {
	switch s {
	case SourceBluRay:
		return "bluray"
	case SourceRemux:
		return "remux"
	case SourceWEBDL:
		return "webdl"
	case SourceWEBRip:
		return "webrip"
	case SourceHDTV:
		return "hdtv"
	case SourceDVD:
		return "dvd"
	case SourceCAM:
		return "cam"
	case SourceTelesync:
		return "telesync"
	default:
		return unknownStr
	}
}

// Codec represents the video codec used in a release.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecX264
	CodecX265
	CodecXviD
)

func (c Codec) String() string {
	switch c {
	case CodecX264:
		return "x264"
	case CodecX265:
		return "x265"
	case CodecXviD:
		return "xvid"
	default:
		return unknownStr
	}
}

// Protocol is the transport a release is fetched over.
type Protocol string

const (
	ProtocolUnknown Protocol = "unknown"
	ProtocolUsenet  Protocol = "usenet"
	ProtocolTorrent Protocol = "torrent"
)

// ParseProtocol maps a config or CLI value onto a Protocol.
func ParseProtocol(s string) Protocol {
	switch s {
	case "usenet", "nzb":
		return ProtocolUsenet
	case "torrent", "magnet":
		return ProtocolTorrent
	default:
		return ProtocolUnknown
	}
}

// Info contains parsed release information.
type Info struct {
	Title      string
	Year       int
	Resolution Resolution
	Source     Source
	Codec      Codec
	Group      string

	// Version is 1 for an original release and increases for each
	// proper/repack/vN; Real counts REAL tags.
	Version int
	Real    int
	Proper  bool
	Repack  bool

	// Discography marks a combined multi-item release (discography,
	// complete collection, anthology).
	Discography bool

	// Normalized title for matching
	CleanTitle string
}

package release

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	yearRegex        = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	resolutionRegex  = regexp.MustCompile(`(?i)\b(2160p|4k|uhd|1080p|720p|576p|480p)\b`)
	versionRegex     = regexp.MustCompile(`(?i)\bv([2-9])\b`)
	realRegex        = regexp.MustCompile(`\bREAL\b`)
	discographyRegex = regexp.MustCompile(`(?i)\b(discography|complete[ ._-]+(collection|works|discography)|anthology)\b`)
	groupRegex       = regexp.MustCompile(`-([A-Za-z0-9]+)(\.[a-z0-9]{2,4})?$`)

	// titleStopRegex marks where the title part of a release name ends.
	titleStopRegex = regexp.MustCompile(`(?i)[ ._(\[]((?:19|20)\d{2}|2160p|4k|uhd|1080p|720p|576p|480p|s\d{1,2}e\d{1,3}|bluray|web[ ._-]?dl|webrip|hdtv|dvdrip|proper|repack|discography|complete)\b`)
)

// Parse extracts information from a release name.
func Parse(name string) Info {
	info := Info{Version: 1}
	normalized := strings.NewReplacer(".", " ", "_", " ").Replace(name)

	info.Title = parseTitle(name)
	info.CleanTitle = CleanTitle(info.Title)

	if m := yearRegex.FindAllStringSubmatch(normalized, -1); len(m) > 0 {
		// The last year wins so titles like "2001 A Space Odyssey 1968" parse correctly.
		info.Year, _ = strconv.Atoi(m[len(m)-1][1])
	}

	info.Resolution = parseResolution(normalized)
	info.Source = parseSource(normalized)
	info.Codec = parseCodec(normalized)

	info.Proper = containsWord(normalized, "proper")
	info.Repack = containsWord(normalized, "repack", "rerip")
	if info.Proper || info.Repack {
		info.Version = 2
	}
	if m := versionRegex.FindStringSubmatch(normalized); m != nil {
		info.Version, _ = strconv.Atoi(m[1])
	}
	info.Real = len(realRegex.FindAllString(normalized, -1))

	info.Discography = discographyRegex.MatchString(name)

	if m := groupRegex.FindStringSubmatch(strings.TrimSpace(name)); m != nil {
		info.Group = m[1]
	}

	return info
}

func parseTitle(name string) string {
	title := name
	if loc := titleStopRegex.FindStringIndex(name); loc != nil && loc[0] > 0 {
		title = name[:loc[0]]
	}
	title = strings.NewReplacer(".", " ", "_", " ").Replace(title)
	title = strings.TrimRight(strings.TrimSpace(title), "-([ ")
	return strings.Join(strings.Fields(title), " ")
}

func parseResolution(name string) Resolution {
	m := resolutionRegex.FindString(name)
	switch strings.ToLower(m) {
	case "2160p", "4k", "uhd":
		return Resolution2160p
	case "1080p":
		return Resolution1080p
	case "720p":
		return Resolution720p
	case "576p", "480p":
		return Resolution480p
	default:
		return ResolutionUnknown
	}
}

func parseSource(name string) Source {
	switch {
	case containsWord(name, "remux"):
		return SourceRemux
	case containsWord(name, "bluray", "blu-ray", "bdrip", "brrip"):
		return SourceBluRay
	case containsWord(name, "web-dl", "webdl", "web dl"):
		return SourceWEBDL
	case containsWord(name, "webrip", "web-rip"):
		return SourceWEBRip
	case containsWord(name, "hdtv", "pdtv", "sdtv"):
		return SourceHDTV
	case containsWord(name, "dvdrip", "dvd"):
		return SourceDVD
	case containsWord(name, "cam", "camrip", "hdcam"):
		return SourceCAM
	case containsWord(name, "telesync", "hdts", "ts"):
		return SourceTelesync
	default:
		return SourceUnknown
	}
}

func parseCodec(name string) Codec {
	switch {
	case containsWord(name, "x265", "h265", "h 265", "hevc"):
		return CodecX265
	case containsWord(name, "x264", "h264", "h 264", "avc"):
		return CodecX264
	case containsWord(name, "xvid", "divx"):
		return CodecXviD
	default:
		return CodecUnknown
	}
}

// containsWord reports whether any of words appears in s delimited by
// non-alphanumeric characters, case-insensitively.
func containsWord(s string, words ...string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		w = strings.ToLower(w)
		for i := 0; ; {
			idx := strings.Index(lower[i:], w)
			if idx < 0 {
				break
			}
			start := i + idx
			end := start + len(w)
			if isBoundary(lower, start-1) && isBoundary(lower, end) {
				return true
			}
			i = start + 1
		}
	}
	return false
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}

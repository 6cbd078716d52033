// Package newznab queries Newznab (usenet) and Torznab (torrent) indexers.
// Both speak the same RSS dialect; Torznab adds magnet links.
package newznab

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/fetcharr/pkg/release"
)

// maxResponseSize caps how much of a search response is read.
const maxResponseSize = 16 << 20

// ErrAuth is returned when the indexer rejects the API key.
var ErrAuth = errors.New("indexer rejected api key")

// Settings configures a Client.
type Settings struct {
	Name       string
	URL        string
	APIKey     string
	Protocol   release.Protocol // usenet for Newznab, torrent for Torznab
	Categories []int
	Timeout    time.Duration
}

// Client queries a single indexer.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	protocol   release.Protocol
	categories []int
	httpClient *http.Client
	log        *slog.Logger
}

// Release is one search result.
type Release struct {
	Title       string
	GUID        string
	DownloadURL string // NZB or .torrent URL, or a magnet link
	Protocol    release.Protocol
	Size        int64
	PublishDate time.Time
	Indexer     string
}

// NewClient creates a client. The protocol defaults to usenet.
func NewClient(s Settings, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if s.Protocol == "" || s.Protocol == release.ProtocolUnknown {
		s.Protocol = release.ProtocolUsenet
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	return &Client{
		name:       s.Name,
		baseURL:    strings.TrimSuffix(s.URL, "/"),
		apiKey:     s.APIKey,
		protocol:   s.Protocol,
		categories: s.Categories,
		httpClient: &http.Client{Timeout: s.Timeout},
		log:        log.With("component", "indexer", "indexer", s.Name),
	}
}

func (c *Client) Name() string { return c.name }
func (c *Client) Protocol() release.Protocol { return c.protocol }

type rssResponse struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title     string       `xml:"title"`
	GUID      string       `xml:"guid"`
	Link      string       `xml:"link"`
	Size      int64        `xml:"size"`
	PubDate   string       `xml:"pubDate"`
	Enclosure rssEnclosure `xml:"enclosure"`
	Attrs     []rssAttr    `xml:"attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
}

// rssAttr matches both newznab:attr and torznab:attr.
type rssAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type apiError struct {
	XMLName     xml.Name `xml:"error"`
	Code        int      `xml:"code,attr"`
	Description string   `xml:"description,attr"`
}

var pubDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// Search runs a free-text search in the client's categories.
func (c *Client) Search(ctx context.Context, query string) ([]Release, error) {
	start := time.Now()

	reqURL, err := url.Parse(c.baseURL + "/api")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("t", "search")
	if query != "" {
		params.Set("q", query)
	}
	if len(c.categories) > 0 {
		cats := make([]string, len(c.categories))
		for i, cat := range c.categories {
			cats[i] = strconv.Itoa(cat)
		}
		params.Set("cat", strings.Join(cats, ","))
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL carries the api key.
		var ue *url.Error
		if errors.As(err, &ue) {
			return nil, fmt.Errorf("indexer %s: %w", c.name, ue.Err)
		}
		return nil, fmt.Errorf("indexer %s: %w", c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("indexer %s: %w", c.name, ErrAuth)
	default:
		return nil, fmt.Errorf("indexer %s: unexpected status: %d", c.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("indexer %s: read response: %w", c.name, err)
	}
	var apiErr apiError
	if xml.Unmarshal(body, &apiErr) == nil {
		if apiErr.Code == 100 || apiErr.Code == 101 {
			return nil, fmt.Errorf("indexer %s: %w", c.name, ErrAuth)
		}
		return nil, fmt.Errorf("indexer %s: error %d: %s", c.name, apiErr.Code, apiErr.Description)
	}

	var rss rssResponse
	if err := xml.Unmarshal(body, &rss); err != nil {
		return nil, fmt.Errorf("indexer %s: parse response: %w", c.name, err)
	}

	releases := make([]Release, 0, len(rss.Channel.Items))
	for _, item := range rss.Channel.Items {
		releases = append(releases, c.toRelease(item))
	}

	c.log.Debug("search complete", "query", query, "results", len(releases),
		"duration_ms", time.Since(start).Milliseconds())
	return releases, nil
}

func (c *Client) toRelease(item rssItem) Release {
	rel := Release{
		Title:       item.Title,
		GUID:        item.GUID,
		DownloadURL: item.Link,
		Protocol:    c.protocol,
		Size:        item.Size,
		Indexer:     c.name,
	}
	if item.Enclosure.Length > 0 {
		rel.Size = item.Enclosure.Length
	}
	if rel.DownloadURL == "" {
		rel.DownloadURL = item.Enclosure.URL
	}

	for _, attr := range item.Attrs {
		switch attr.Name {
		case "size":
			if rel.Size == 0 {
				rel.Size, _ = strconv.ParseInt(attr.Value, 10, 64)
			}
		case "magneturl":
			if c.protocol == release.ProtocolTorrent && attr.Value != "" {
				rel.DownloadURL = attr.Value
			}
		}
	}

	for _, format := range pubDateFormats {
		if t, err := time.Parse(format, item.PubDate); err == nil {
			rel.PublishDate = t
			break
		}
	}
	return rel
}

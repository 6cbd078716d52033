package download

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anacrolix/torrent/metainfo"

	"github.com/vmunix/fetcharr/pkg/release"
)

// QBittorrentSettings configures a qBittorrent WebUI client.
type QBittorrentSettings struct {
	Name     string
	URL      string
	Username string
	Password string
	Category string
	Timeout  time.Duration
}

// QBittorrentClient talks to the qBittorrent WebUI API v2.
type QBittorrentClient struct {
	name       string
	baseURL    string
	username   string
	password   string
	category   string
	httpClient *http.Client
	log        *slog.Logger

	mu       sync.Mutex
	loggedIn bool
}

// NewQBittorrentClient creates a qBittorrent client. It logs in lazily.
func NewQBittorrentClient(s QBittorrentSettings, log *slog.Logger) (*QBittorrentClient, error) {
	if log == nil {
		log = slog.Default()
	}
	if s.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidSettings)
	}
	if _, err := url.Parse(s.URL); err != nil {
		return nil, fmt.Errorf("%w: url: %w", ErrInvalidSettings, err)
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &QBittorrentClient{
		name:     s.Name,
		baseURL:  strings.TrimSuffix(s.URL, "/"),
		username: s.Username,
		password: s.Password,
		category: s.Category,
		log:      log.With("component", "qbittorrent", "client", s.Name),
		httpClient: &http.Client{
			Timeout: s.Timeout,
			Jar:     jar,
		},
	}, nil
}

func (c *QBittorrentClient) Name() string { return c.name }
func (c *QBittorrentClient) Kind() Kind { return KindRPC }
func (c *QBittorrentClient) Protocol() release.Protocol { return release.ProtocolTorrent }

func (c *QBittorrentClient) Capabilities() Capabilities {
	return Capabilities{Remove: true, Discography: true}
}

// Submit adds a magnet link directly, or fetches the torrent file and uploads
// it. The id is the info hash, so a duplicate add resolves to the same job.
func (c *QBittorrentClient) Submit(ctx context.Context, s *Submission) (string, error) {
	if s.Protocol != release.ProtocolTorrent {
		return "", unsupported(c.name, OpProtocol)
	}

	category := s.Category
	if category == "" {
		category = c.category
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	var hash metainfo.Hash

	if isMagnet(s.DownloadURL) {
		m, err := metainfo.ParseMagnetURI(s.DownloadURL)
		if err != nil {
			return "", fmt.Errorf("parse magnet: %w", err)
		}
		hash = m.InfoHash
		if err := mw.WriteField("urls", s.DownloadURL); err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
	} else {
		data, err := fetchJobFile(ctx, c.httpClient, s.DownloadURL)
		if err != nil {
			return "", err
		}
		if hash, _, err = parseTorrent(data); err != nil {
			return "", err
		}
		part, err := mw.CreateFormFile("torrents", CleanFileName(s.Title)+".torrent")
		if err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
	}

	fields := map[string]string{"rename": s.Title}
	if category != "" {
		fields["category"] = category
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.post(ctx, "/api/v2/torrents/add", mw.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}

	id := hash.HexString()
	if strings.TrimSpace(resp) != "Ok." {
		// qBittorrent answers "Fails." when the torrent is already present.
		existing, err := c.torrents(ctx, url.Values{"hashes": {id}})
		if err != nil {
			return "", err
		}
		if len(existing) == 0 {
			return "", fmt.Errorf("qbittorrent add failed: %s", strings.TrimSpace(resp))
		}
		c.log.Debug("torrent already present", "hash", id)
	}

	c.log.Debug("torrent added", "hash", id, "category", category)
	return id, nil
}

// Items returns the torrents in the configured category.
func (c *QBittorrentClient) Items(ctx context.Context) ([]*Item, error) {
	params := url.Values{}
	if c.category != "" {
		params.Set("category", c.category)
	}
	torrents, err := c.torrents(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]*Item, 0, len(torrents))
	for _, t := range torrents {
		items = append(items, &Item{
			ID:           t.Hash,
			Title:        t.Name,
			Client:       c.name,
			Status:       mapTorrentState(t.State),
			Progress:     t.Progress * 100,
			Size:         t.Size,
			Remaining:    t.AmountLeft,
			OutputPath:   t.ContentPath,
			CanBeRemoved: true,
		})
	}
	return items, nil
}

// RemoveItem deletes a torrent and optionally its data.
func (c *QBittorrentClient) RemoveItem(ctx context.Context, item *Item, deleteData bool) error {
	form := url.Values{
		"hashes":      {item.ID},
		"deleteFiles": {strconv.FormatBool(deleteData)},
	}
	if _, err := c.post(ctx, "/api/v2/torrents/delete", "application/x-www-form-urlencoded", strings.NewReader(form.Encode())); err != nil {
		return err
	}
	c.log.Debug("torrent removed", "hash", item.ID, "delete_data", deleteData)
	return nil
}

func (c *QBittorrentClient) torrents(ctx context.Context, params url.Values) ([]torrentInfo, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v2/torrents/info?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var torrents []torrentInfo
	if err := json.Unmarshal(body, &torrents); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return torrents, nil
}

func (c *QBittorrentClient) post(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// do sends req and returns the body of a 200 response. A 403 drops the session
// so the next call logs in again.
func (c *QBittorrentClient) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "path", req.URL.Path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrClientUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		c.mu.Lock()
		c.loggedIn = false
		c.mu.Unlock()
		return nil, fmt.Errorf("qbittorrent %s: %w", req.URL.Path, ErrAuthFailed)
	default:
		return nil, fmt.Errorf("qbittorrent %s: unexpected status: %d", req.URL.Path, resp.StatusCode)
	}

	c.log.Debug("api request complete", "path", req.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	return body, nil
}

func (c *QBittorrentClient) ensureLogin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}

	form := url.Values{"username": {c.username}, "password": {c.password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClientUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "Ok." {
		return fmt.Errorf("qbittorrent login: %w", ErrAuthFailed)
	}

	c.loggedIn = true
	c.log.Debug("logged in")
	return nil
}

type torrentInfo struct {
	Hash        string  `json:"hash"`
	Name        string  `json:"name"`
	State       string  `json:"state"`
	Progress    float64 `json:"progress"` // 0-1
	Size        int64   `json:"size"`
	AmountLeft  int64   `json:"amount_left"`
	ContentPath string  `json:"content_path"`
}

// mapTorrentState maps a qBittorrent torrent state to our Status type.
func mapTorrentState(state string) Status {
	switch state {
	case "error", "missingFiles":
		return StatusFailed
	case "uploading", "stalledUP", "pausedUP", "stoppedUP", "queuedUP", "forcedUP", "checkingUP":
		return StatusCompleted
	case "queuedDL", "metaDL", "pausedDL", "stoppedDL", "allocating", "checkingResumeData":
		return StatusQueued
	default:
		return StatusDownloading
	}
}

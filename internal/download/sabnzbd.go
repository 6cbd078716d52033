package download

import (
	"context"
	"encoding/json"
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

const (
	// sabHistoryLimit bounds the history page fetched on every refresh.
	sabHistoryLimit = 200
	sabMaxResponse  = 8 << 20
)

// SABnzbdSettings configures a SABnzbd client.
type SABnzbdSettings struct {
	Name     string
	URL      string
	APIKey   string
	Category string
	Timeout  time.Duration
}

// SABnzbdClient interacts with SABnzbd.
type SABnzbdClient struct {
	name       string
	baseURL    string
	apiKey     string
	category   string
	httpClient *http.Client
	log        *slog.Logger
}

// NewSABnzbdClient creates a new SABnzbd client.
func NewSABnzbdClient(s SABnzbdSettings, log *slog.Logger) (*SABnzbdClient, error) {
	if log == nil {
		log = slog.Default()
	}
	if s.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidSettings)
	}
	if s.APIKey == "" {
		return nil, fmt.Errorf("%w: api_key is required", ErrInvalidSettings)
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	return &SABnzbdClient{
		name:     s.Name,
		baseURL:  strings.TrimSuffix(s.URL, "/"),
		apiKey:   s.APIKey,
		category: s.Category,
		log:      log.With("component", "sabnzbd", "client", s.Name),
		httpClient: &http.Client{
			Timeout: s.Timeout,
		},
	}, nil
}

func (c *SABnzbdClient) Name() string { return c.name }
func (c *SABnzbdClient) Kind() Kind { return KindRPC }
func (c *SABnzbdClient) Protocol() release.Protocol { return release.ProtocolUsenet }

func (c *SABnzbdClient) Capabilities() Capabilities {
	return Capabilities{Remove: true, Discography: true}
}

// Submit sends an NZB URL to SABnzbd.
func (c *SABnzbdClient) Submit(ctx context.Context, s *Submission) (string, error) {
	if s.Protocol != release.ProtocolUsenet {
		return "", unsupported(c.name, OpProtocol)
	}

	category := s.Category
	if category == "" {
		category = c.category
	}
	c.log.Debug("adding nzb", "title", s.Title, "category", category)

	params := c.params("addurl")
	params.Set("name", s.DownloadURL)
	params.Set("nzbname", s.Title)
	if category != "" {
		params.Set("cat", category)
	}

	var resp addResponse
	if err := c.call(ctx, params, &resp); err != nil {
		return "", err
	}
	if !resp.Status || len(resp.NzoIDs) == 0 {
		return "", fmt.Errorf("sabnzbd addurl %q: no job created", s.Title)
	}

	c.log.Debug("nzb added", "nzo_id", resp.NzoIDs[0])
	return resp.NzoIDs[0], nil
}

// Items returns queue and history slots, queue first. A job that finishes
// between the two calls is reported once, from history.
func (c *SABnzbdClient) Items(ctx context.Context) ([]*Item, error) {
	queued, err := c.queue(ctx)
	if err != nil {
		return nil, err
	}
	finished, err := c.history(ctx)
	if err != nil {
		return nil, err
	}

	done := make(map[string]bool, len(finished))
	for _, item := range finished {
		done[item.ID] = true
	}
	items := make([]*Item, 0, len(queued)+len(finished))
	for _, item := range queued {
		if !done[item.ID] {
			items = append(items, item)
		}
	}
	return append(items, finished...), nil
}

// RemoveItem deletes a job from the queue, or from history once it has finished.
func (c *SABnzbdClient) RemoveItem(ctx context.Context, item *Item, deleteData bool) error {
	c.log.Debug("removing download", "client_id", item.ID, "delete_data", deleteData)

	mode := "queue"
	if item.Status.IsTerminal() {
		mode = "history"
	}
	params := c.params(mode)
	params.Set("name", "delete")
	params.Set("value", item.ID)
	if deleteData {
		params.Set("del_files", "1")
	}

	var resp statusResponse
	if err := c.call(ctx, params, &resp); err != nil {
		return err
	}
	if !resp.Status {
		return fmt.Errorf("sabnzbd remove %s: %w", item.ID, ErrDownloadNotFound)
	}

	c.log.Debug("download removed", "client_id", item.ID)
	return nil
}

func (c *SABnzbdClient) params(mode string) url.Values {
	return url.Values{
		"apikey": {c.apiKey},
		"output": {"json"},
		"mode":   {mode},
	}
}

func (c *SABnzbdClient) queue(ctx context.Context) ([]*Item, error) {
	var resp queueResponse
	if err := c.call(ctx, c.params("queue"), &resp); err != nil {
		return nil, err
	}

	items := make([]*Item, 0, len(resp.Queue.Slots))
	for i := range resp.Queue.Slots {
		slot := &resp.Queue.Slots[i]
		items = append(items, &Item{
			ID:           slot.NzoID,
			Title:        slot.Filename,
			Client:       c.name,
			Status:       mapQueueStatus(slot.Status),
			Progress:     parseFloat(slot.Percentage),
			Size:         megabytes(slot.MB),
			Remaining:    megabytes(slot.MBLeft),
			CanBeRemoved: true,
		})
	}

	return items, nil
}

// history fetches the newest finished jobs, restricted to the configured
// category so other tools' jobs are never reconciled against ours.
func (c *SABnzbdClient) history(ctx context.Context) ([]*Item, error) {
	params := c.params("history")
	params.Set("limit", strconv.Itoa(sabHistoryLimit))
	if c.category != "" {
		params.Set("category", c.category)
	}

	var resp historyResponse
	if err := c.call(ctx, params, &resp); err != nil {
		return nil, err
	}

	items := make([]*Item, 0, len(resp.History.Slots))
	for _, slot := range resp.History.Slots {
		status := mapHistoryStatus(slot.Status)
		progress := 0.0
		if status == StatusCompleted {
			progress = 100
		}
		if status == StatusFailed && slot.FailMessage != "" {
			c.log.Debug("job failed", "client_id", slot.NzoID, "reason", slot.FailMessage)
		}
		items = append(items, &Item{
			ID:           slot.NzoID,
			Title:        slot.Name,
			Client:       c.name,
			Status:       status,
			Progress:     progress,
			Size:         slot.Bytes,
			OutputPath:   slot.Storage,
			CanBeRemoved: true,
		})
	}

	return items, nil
}

// call issues one API request and decodes the JSON reply into result. SABnzbd
// answers every mode with HTTP 200 and reports failures in the body as
// {"status": false, "error": "..."}, so the envelope is checked first.
func (c *SABnzbdClient) call(ctx context.Context, params url.Values, result any) error {
	mode := params.Get("mode")
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "mode", mode, "error", err)
		return fmt.Errorf("%w: %w", ErrClientUnavailable, redactError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sabnzbd %s: unexpected status: %d", mode, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, sabMaxResponse))
	if err != nil {
		return fmt.Errorf("sabnzbd %s: read response: %w", mode, err)
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("sabnzbd %s: decode response: %w", mode, err)
	}
	if envelope.Error != "" {
		if isAPIKeyError(envelope.Error) {
			return fmt.Errorf("sabnzbd %s: %w", mode, ErrInvalidAPIKey)
		}
		return fmt.Errorf("sabnzbd %s: %s", mode, envelope.Error)
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("sabnzbd %s: decode response: %w", mode, err)
	}

	c.log.Debug("api request complete", "mode", mode, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

type addResponse struct {
	Status bool     `json:"status"`
	NzoIDs []string `json:"nzo_ids"`
}

type statusResponse struct {
	Status bool `json:"status"`
}

type queueResponse struct {
	Queue struct {
		Slots []queueSlot `json:"slots"`
	} `json:"queue"`
}

type queueSlot struct {
	NzoID      string `json:"nzo_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Percentage string `json:"percentage"`
	MB         string `json:"mb"`
	MBLeft     string `json:"mbleft"`
}

type historyResponse struct {
	History struct {
		Slots []historySlot `json:"slots"`
	} `json:"history"`
}

type historySlot struct {
	NzoID       string `json:"nzo_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Bytes       int64  `json:"bytes"`
	Storage     string `json:"storage"`
	FailMessage string `json:"fail_message"`
}

func mapQueueStatus(sabStatus string) Status {
	switch sabStatus {
	case "Queued", "Paused", "Propagating":
		return StatusQueued
	default:
		return StatusDownloading
	}
}

// Post-processing stages (Verifying, Extracting, ...) still count as downloading.
func mapHistoryStatus(sabStatus string) Status {
	switch sabStatus {
	case "Completed":
		return StatusCompleted
	case "Failed":
		return StatusFailed
	default:
		return StatusDownloading
	}
}

func isAPIKeyError(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	return strings.Contains(lower, "api key") || strings.Contains(lower, "apikey")
}

// parseFloat reads SABnzbd's stringly numbers; garbage reads as zero.
func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func megabytes(s string) int64 {
	return int64(parseFloat(s) * 1024 * 1024)
}

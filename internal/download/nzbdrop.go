package download

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmunix/fetcharr/pkg/release"
)

// NZBDropSettings configures an NZB drop folder client.
type NZBDropSettings struct {
	Name       string
	NZBFolder  string // where .nzb files are written
	StrmFolder string // where .strm files pointing the media center at each job go
	Timeout    time.Duration
}

// NZBDropClient writes NZB files into a folder watched by a streaming media
// center, plus a .strm file per job that plays it through the Pneumatic
// plugin. Once written a job belongs to the media center and this client has
// no further control over it.
type NZBDropClient struct {
	name       string
	nzbFolder  string
	strmFolder string
	httpClient *http.Client
	log        *slog.Logger
}

// NewNZBDropClient validates the folders and creates the client.
func NewNZBDropClient(s NZBDropSettings, log *slog.Logger) (*NZBDropClient, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := requireDir("nzb_folder", s.NZBFolder); err != nil {
		return nil, err
	}
	if err := requireDir("strm_folder", s.StrmFolder); err != nil {
		return nil, err
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	return &NZBDropClient{
		name:       s.Name,
		nzbFolder:  s.NZBFolder,
		strmFolder: s.StrmFolder,
		httpClient: &http.Client{Timeout: s.Timeout},
		log:        log.With("component", "nzbdrop", "client", s.Name),
	}, nil
}

func (c *NZBDropClient) Name() string { return c.name }
func (c *NZBDropClient) Kind() Kind { return KindFileDrop }
func (c *NZBDropClient) Protocol() release.Protocol { return release.ProtocolUsenet }
func (c *NZBDropClient) Capabilities() Capabilities { return Capabilities{} }

// Submit fetches the NZB, writes it as <title>.nzb and writes <title>.strm
// pointing at it. Submitting the same title again overwrites both files.
func (c *NZBDropClient) Submit(ctx context.Context, s *Submission) (string, error) {
	if s.Protocol != release.ProtocolUsenet {
		return "", unsupported(c.name, OpProtocol)
	}
	if s.Discography {
		return "", unsupported(c.name, OpDiscography)
	}

	data, err := fetchJobFile(ctx, c.httpClient, s.DownloadURL)
	if err != nil {
		return "", err
	}

	id := CleanFileName(s.Title)
	path, err := writeJobFile(ctx, c.nzbFolder, id+".nzb", data)
	if err != nil {
		return "", err
	}

	strm, err := writeJobFile(ctx, c.strmFolder, id+".strm", []byte(strmTarget(path, id)))
	if err != nil {
		return "", fmt.Errorf("write strm for %s: %w", path, err)
	}

	c.log.Info("nzb written", "path", path, "strm", strm, "bytes", len(data))
	return id, nil
}

// strmTarget is the plugin URL a .strm file holds to stream nzbFile.
func strmTarget(nzbFile, title string) string {
	return "plugin://plugin.program.pneumatic/?mode=strm&type=add_file&nzb=" +
		url.QueryEscape(nzbFile) + "&nzbname=" + url.QueryEscape(title)
}

// Items reports every .strm file as a completed job: the media center streams
// it on demand, so there is nothing left to download.
func (c *NZBDropClient) Items(_ context.Context) ([]*Item, error) {
	entries, err := os.ReadDir(c.strmFolder)
	if err != nil {
		return nil, fmt.Errorf("read strm folder: %w", err)
	}

	var items []*Item
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) || filepath.Ext(e.Name()) != ".strm" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		title := strings.TrimSuffix(e.Name(), ".strm")
		items = append(items, &Item{
			ID:         title,
			Title:      title,
			Client:     c.name,
			Status:     StatusCompleted,
			Progress:   100,
			Size:       info.Size(),
			OutputPath: filepath.Join(c.strmFolder, e.Name()),
		})
	}
	return items, nil
}

// RemoveItem always fails: the job already belongs to the media center.
func (c *NZBDropClient) RemoveItem(_ context.Context, _ *Item, _ bool) error {
	return unsupported(c.name, OpRemove)
}

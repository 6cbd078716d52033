package download

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anacrolix/torrent/metainfo"

	"github.com/vmunix/fetcharr/pkg/release"
)

// jobIndexName is the hidden file in the torrent folder that maps the names a
// job may show up under in the watch folder to its info hash.
const jobIndexName = ".fetcharr-jobs.json"

// TorrentBlackholeSettings configures a torrent watch folder client.
type TorrentBlackholeSettings struct {
	Name          string
	TorrentFolder string // where .torrent and .magnet files are written
	WatchFolder   string // where the torrent client places finished downloads
	Timeout       time.Duration
}

// TorrentBlackholeClient hands torrents to any client that watches a folder.
type TorrentBlackholeClient struct {
	name          string
	torrentFolder string
	watchFolder   string
	httpClient    *http.Client
	log           *slog.Logger
}

// NewTorrentBlackholeClient validates the folders and creates the client.
func NewTorrentBlackholeClient(s TorrentBlackholeSettings, log *slog.Logger) (*TorrentBlackholeClient, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := requireDir("torrent_folder", s.TorrentFolder); err != nil {
		return nil, err
	}
	if err := requireDir("watch_folder", s.WatchFolder); err != nil {
		return nil, err
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	return &TorrentBlackholeClient{
		name:          s.Name,
		torrentFolder: s.TorrentFolder,
		watchFolder:   s.WatchFolder,
		httpClient:    &http.Client{Timeout: s.Timeout},
		log:           log.With("component", "blackhole", "client", s.Name),
	}, nil
}

func (c *TorrentBlackholeClient) Name() string { return c.name }
func (c *TorrentBlackholeClient) Kind() Kind { return KindFileDrop }
func (c *TorrentBlackholeClient) Protocol() release.Protocol { return release.ProtocolTorrent }

func (c *TorrentBlackholeClient) Capabilities() Capabilities {
	return Capabilities{Remove: true, Discography: true}
}

// Submit writes a magnet link as <title>.magnet, or fetches a torrent file and
// writes it as <title>.torrent. The returned id is the info hash, and it stays
// the id once the torrent client moves the job into the watch folder.
func (c *TorrentBlackholeClient) Submit(ctx context.Context, s *Submission) (string, error) {
	if s.Protocol != release.ProtocolTorrent {
		return "", unsupported(c.name, OpProtocol)
	}

	name := CleanFileName(s.Title)
	var (
		hash        metainfo.Hash
		torrentName string
		data        []byte
		ext         string
	)

	if isMagnet(s.DownloadURL) {
		m, err := metainfo.ParseMagnetURI(s.DownloadURL)
		if err != nil {
			return "", fmt.Errorf("parse magnet: %w", err)
		}
		hash, torrentName, data, ext = m.InfoHash, m.DisplayName, []byte(s.DownloadURL), ".magnet"
	} else {
		raw, err := fetchJobFile(ctx, c.httpClient, s.DownloadURL)
		if err != nil {
			return "", err
		}
		hash, torrentName, err = parseTorrent(raw)
		if err != nil {
			return "", err
		}
		data, ext = raw, ".torrent"
	}
	id := hash.HexString()

	var path string
	err := withFolderLock(ctx, c.torrentFolder, func() error {
		var err error
		if path, err = writeFileAtomic(c.torrentFolder, name+ext, data); err != nil {
			return err
		}
		// The job is already handed over; a stale index only costs name matching.
		if err := c.updateIndex(func(idx jobIndex) { idx.add(id, name, torrentName) }); err != nil {
			c.log.Warn("job index not updated", "hash", id, "error", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	c.log.Info("torrent written", "path", path, "hash", id, "torrent_name", torrentName)
	return id, nil
}

// Items reports job files not yet picked up as queued and everything in the
// watch folder as completed.
func (c *TorrentBlackholeClient) Items(_ context.Context) ([]*Item, error) {
	var items []*Item

	jobs, err := os.ReadDir(c.torrentFolder)
	if err != nil {
		return nil, fmt.Errorf("read torrent folder: %w", err)
	}
	for _, e := range jobs {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || isHidden(e.Name()) || (ext != ".torrent" && ext != ".magnet") {
			continue
		}
		path := filepath.Join(c.torrentFolder, e.Name())
		id, err := jobFileHash(path, ext)
		if err != nil {
			c.log.Warn("unreadable job file", "path", path, "error", err)
			continue
		}
		items = append(items, &Item{
			ID:           id,
			Title:        strings.TrimSuffix(e.Name(), ext),
			Client:       c.name,
			Status:       StatusQueued,
			OutputPath:   path,
			CanBeRemoved: true,
		})
	}

	outputs, err := os.ReadDir(c.watchFolder)
	if err != nil {
		return nil, fmt.Errorf("read watch folder: %w", err)
	}
	idx, err := c.loadIndex()
	if err != nil {
		c.log.Warn("job index unreadable", "error", err)
		idx = jobIndex{}
	}
	for _, e := range outputs {
		if isHidden(e.Name()) {
			continue
		}
		path := filepath.Join(c.watchFolder, e.Name())
		size, err := pathSize(path)
		if err != nil {
			return nil, fmt.Errorf("size of %s: %w", path, err)
		}
		title := e.Name()
		if !e.IsDir() {
			title = strings.TrimSuffix(title, filepath.Ext(title))
		}
		id := idx.lookup(e.Name(), title)
		if id == "" {
			id = title
		}
		items = append(items, &Item{
			ID:           id,
			Title:        title,
			Client:       c.name,
			Status:       StatusCompleted,
			Progress:     100,
			Size:         size,
			OutputPath:   path,
			CanBeRemoved: true,
		})
	}

	return items, nil
}

// RemoveItem deletes a job file that has not been picked up, or the finished
// output when deleteData is set. A picked-up job belongs to the torrent client,
// so removing it without its data is a *CapabilityError. Paths outside the
// configured folders are refused.
func (c *TorrentBlackholeClient) RemoveItem(ctx context.Context, item *Item, deleteData bool) error {
	switch {
	case item.OutputPath == "":
		return fmt.Errorf("remove %s: %w", item.ID, ErrDownloadNotFound)
	case within(c.torrentFolder, item.OutputPath):
		if err := os.Remove(item.OutputPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove job file: %w", err)
		}
	case within(c.watchFolder, item.OutputPath):
		if !deleteData {
			return unsupported(c.name, OpRemove)
		}
		if err := os.RemoveAll(item.OutputPath); err != nil {
			return fmt.Errorf("remove output: %w", err)
		}
		err := withFolderLock(ctx, c.torrentFolder, func() error {
			return c.updateIndex(func(idx jobIndex) { idx.forget(item.ID) })
		})
		if err != nil {
			c.log.Warn("job index not updated", "hash", item.ID, "error", err)
		}
	default:
		return fmt.Errorf("remove %s: path %s is outside the client folders", item.ID, item.OutputPath)
	}

	c.log.Info("item removed", "id", item.ID, "delete_data", deleteData)
	return nil
}

func isMagnet(u string) bool {
	return strings.HasPrefix(strings.ToLower(u), "magnet:")
}

// parseTorrent returns the info hash and the name the torrent will be saved
// under.
func parseTorrent(data []byte) (metainfo.Hash, string, error) {
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return metainfo.Hash{}, "", fmt.Errorf("parse torrent: %w", err)
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return metainfo.Hash{}, "", fmt.Errorf("parse torrent info: %w", err)
	}
	return mi.HashInfoBytes(), info.Name, nil
}

func jobFileHash(path, ext string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if ext == ".magnet" {
		m, err := metainfo.ParseMagnetURI(strings.TrimSpace(string(data)))
		if err != nil {
			return "", err
		}
		return m.InfoHash.HexString(), nil
	}
	h, _, err := parseTorrent(data)
	if err != nil {
		return "", err
	}
	return h.HexString(), nil
}

// jobIndex maps output names to info hashes.
type jobIndex map[string]string

func (idx jobIndex) add(hash string, names ...string) {
	for _, n := range names {
		if n != "" {
			idx[n] = hash
			idx[CleanFileName(n)] = hash
		}
	}
}

func (idx jobIndex) forget(hash string) {
	for n, h := range idx {
		if h == hash {
			delete(idx, n)
		}
	}
}

func (idx jobIndex) lookup(names ...string) string {
	for _, n := range names {
		if h, ok := idx[n]; ok {
			return h
		}
	}
	return ""
}

func (c *TorrentBlackholeClient) loadIndex() (jobIndex, error) {
	data, err := os.ReadFile(filepath.Join(c.torrentFolder, jobIndexName))
	if errors.Is(err, os.ErrNotExist) {
		return jobIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read job index: %w", err)
	}
	idx := jobIndex{}
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse job index: %w", err)
	}
	return idx, nil
}

// updateIndex applies fn to the stored index. The caller holds the folder lock.
func (c *TorrentBlackholeClient) updateIndex(fn func(jobIndex)) error {
	idx, err := c.loadIndex()
	if err != nil {
		c.log.Warn("resetting job index", "error", err)
		idx = jobIndex{}
	}
	fn(idx)
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	_, err = writeFileAtomic(c.torrentFolder, jobIndexName, data)
	return err
}

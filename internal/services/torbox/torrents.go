package torbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// TorrentFile is one file inside a torrent on the account
type TorrentFile struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimetype"`
}

// DisplayName is the file's base name
func (f TorrentFile) DisplayName() string {
	if f.ShortName != "" {
		return f.ShortName
	}
	if i := strings.LastIndex(f.Name, "/"); i >= 0 {
		return f.Name[i+1:]
	}
	return f.Name
}

// Torrent is a torrent on the account
type Torrent struct {
	ID               int           `json:"id"`
	Hash             string        `json:"hash"`
	Name             string        `json:"name"`
	Size             int64         `json:"size"`
	DownloadState    string        `json:"download_state"`
	DownloadFinished bool          `json:"download_finished"`
	DownloadPresent  bool          `json:"download_present"`
	Cached           bool          `json:"cached"`
	Files            []TorrentFile `json:"files"`
}

type createTorrentData struct {
	TorrentID int    `json:"torrent_id"`
	Hash      string `json:"hash"`
	AuthID    string `json:"auth_id"`
}

// CreateTorrent adds a magnet to the account and returns the torrent id
func (c *Client) CreateTorrent(ctx context.Context, apiKey, magnet string) (int, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("magnet", magnet); err != nil {
		return 0, fmt.Errorf("failed to add magnet field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, apiKey, http.MethodPost, "/torrents/createtorrent", nil, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result response[createTorrentData]
	if err := do(c, "createtorrent", req, &result); err != nil {
		return 0, err
	}
	if !result.Success || result.Data.TorrentID == 0 {
		return 0, fmt.Errorf("torrent creation failed: %w", envelopeError(result.Detail, result.Error))
	}

	c.logger.Info().
		Int("torrent_id", result.Data.TorrentID).
		Str("detail", result.Detail).
		Msg("Created TorBox torrent")
	return result.Data.TorrentID, nil
}

// ListTorrents returns every torrent on the account
func (c *Client) ListTorrents(ctx context.Context, apiKey string, bypassCache bool) ([]Torrent, error) {
	query := url.Values{}
	if bypassCache {
		query.Set("bypass_cache", "true")
	}

	req, err := c.newRequest(ctx, apiKey, http.MethodGet, "/torrents/mylist", query, nil)
	if err != nil {
		return nil, err
	}

	var result response[[]Torrent]
	if err := do(c, "mylist", req, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("failed to list torrents: %w", envelopeError(result.Detail, result.Error))
	}
	return result.Data, nil
}

// GetTorrent returns the torrent with the given id, or nil when the account has none
func (c *Client) GetTorrent(ctx context.Context, apiKey string, torrentID int) (*Torrent, error) {
	torrents, err := c.ListTorrents(ctx, apiKey, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list torrents: %w", err)
	}
	for i := range torrents {
		if torrents[i].ID == torrentID {
			return &torrents[i], nil
		}
	}
	return nil, nil
}

// FindTorrentByHash returns the account's torrent for an info hash, or nil
func (c *Client) FindTorrentByHash(ctx context.Context, apiKey, hash string) (*Torrent, error) {
	torrents, err := c.ListTorrents(ctx, apiKey, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list torrents: %w", err)
	}
	for i := range torrents {
		if strings.EqualFold(torrents[i].Hash, hash) {
			return &torrents[i], nil
		}
	}
	return nil, nil
}

// CheckCached reports whether TorBox holds a cached copy of the info hash
func (c *Client) CheckCached(ctx context.Context, apiKey, hash string) (bool, error) {
	query := url.Values{}
	query.Set("hash", hash)
	query.Set("format", "list")
	query.Set("list_files", "false")

	req, err := c.newRequest(ctx, apiKey, http.MethodGet, "/torrents/checkcached", query, nil)
	if err != nil {
		return false, err
	}

	var result response[json.RawMessage]
	if err := do(c, "checkcached", req, &result); err != nil {
		return false, err
	}
	if !result.Success {
		return false, fmt.Errorf("failed to check cache: %w", envelopeError(result.Detail, result.Error))
	}

	switch strings.TrimSpace(string(result.Data)) {
	case "", "null", "[]", "{}", "false":
		return false, nil
	default:
		return true, nil
	}
}

// RequestDownloadLink returns a direct download URL for one file of a torrent
func (c *Client) RequestDownloadLink(ctx context.Context, apiKey string, torrentID, fileID int) (string, error) {
	query := url.Values{}
	query.Set("token", c.key(apiKey))
	query.Set("torrent_id", strconv.Itoa(torrentID))
	query.Set("file_id", strconv.Itoa(fileID))

	req, err := c.newRequest(ctx, apiKey, http.MethodGet, "/torrents/requestdl", query, nil)
	if err != nil {
		return "", err
	}

	var result response[string]
	if err := do(c, "requestdl", req, &result); err != nil {
		return "", err
	}
	if !result.Success || result.Data == "" {
		return "", fmt.Errorf("failed to get download link: %w", envelopeError(result.Detail, result.Error))
	}
	return result.Data, nil
}

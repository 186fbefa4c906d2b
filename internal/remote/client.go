// Package remote talks to the sync backend: authentication, per-user
// liked tracks and playlists, and a websocket feed of remote changes.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lmartel/cadenza/internal/catalog"
)

// ErrUnauthorized is returned when the backend rejects the token. The
// caller should treat it as a sign-out.
var ErrUnauthorized = errors.New("remote: unauthorized")

// Client is a thin HTTP client for the sync backend. Safe for concurrent
// use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("remote: login response carried no token")
	}
	return out.Token, nil
}

// LikedTracks fetches the user's liked list, newest first.
func (c *Client) LikedTracks(ctx context.Context, userID string) ([]catalog.Track, error) {
	var out struct {
		Tracks []catalog.Track `json:"tracks"`
	}
	path := fmt.Sprintf("/api/users/%s/liked", url.PathEscape(userID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Tracks, nil
}

// SaveLikedTracks replaces the user's liked list.
func (c *Client) SaveLikedTracks(ctx context.Context, userID string, tracks []catalog.Track) error {
	in := map[string]any{"tracks": tracks}
	path := fmt.Sprintf("/api/users/%s/liked", url.PathEscape(userID))
	return c.do(ctx, http.MethodPut, path, in, nil)
}

// Playlists fetches all of the user's playlists, system ones included.
func (c *Client) Playlists(ctx context.Context, userID string) ([]PlaylistDoc, error) {
	var out struct {
		Playlists []PlaylistDoc `json:"playlists"`
	}
	path := fmt.Sprintf("/api/users/%s/playlists", url.PathEscape(userID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Playlists, nil
}

// SavePlaylist upserts one playlist document.
func (c *Client) SavePlaylist(ctx context.Context, userID string, doc PlaylistDoc) error {
	path := fmt.Sprintf("/api/users/%s/playlists/%s", url.PathEscape(userID), url.PathEscape(doc.ID))
	return c.do(ctx, http.MethodPut, path, doc, nil)
}

// DeletePlaylist removes one playlist document.
func (c *Client) DeletePlaylist(ctx context.Context, userID, playlistID string) error {
	path := fmt.Sprintf("/api/users/%s/playlists/%s", url.PathEscape(userID), url.PathEscape(playlistID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// UpdateProfile patches the user's editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, userID string, p Profile) error {
	path := fmt.Sprintf("/api/users/%s/profile", url.PathEscape(userID))
	return c.do(ctx, http.MethodPatch, path, p, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote: %s %s: %s", method, path, apiErrorMessage(resp))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

func apiErrorMessage(resp *http.Response) string {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return resp.Status
}

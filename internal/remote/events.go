package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Subscribe opens the websocket feed for the user's remote data. Events
// arrive on the returned channel until the context is canceled or the
// connection drops; the channel is closed either way.
func (c *Client) Subscribe(ctx context.Context, userID string) (<-chan Event, error) {
	endpoint, err := c.eventsURL(userID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	c.mu.RLock()
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("remote: dial events: %w", err)
	}

	events := make(chan Event, 8)
	readerDone := make(chan struct{})
	go func() {
		defer close(events)
		defer close(readerDone)
		defer conn.Close()
		for {
			var e Event
			if err := conn.ReadJSON(&e); err != nil {
				return
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			// Unblocks the reader.
			conn.Close()
		case <-readerDone:
		}
	}()

	return events, nil
}

func (c *Client) eventsURL(userID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("remote: parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/users/" + url.PathEscape(userID) + "/events"
	return u.String(), nil
}

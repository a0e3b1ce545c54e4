package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/productporter/productporter/src/webclient"
)

// Post is one upstream feed entry.
type Post struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Tagline     string `json:"tagline"`
	Description string `json:"description"`
	RedirectURL string `json:"redirect_url"`
	VotesCount  int    `json:"votes_count"`
	Day         string `json:"day"`
}

// Client pulls the daily posts feed from the upstream product API.
type Client struct {
	http    *http.Client
	base    string
	token   string
	retries int
}

func NewClient(base, token string, retries int) *Client {
	return &Client{
		http:    webclient.NewDefault(30 * time.Second),
		base:    base,
		token:   token,
		retries: retries,
	}
}

// Posts fetches the feed for a day (YYYY-MM-DD; empty means the upstream
// default, today).
func (c *Client) Posts(ctx context.Context, day string) ([]Post, error) {
	u := c.base + "/v1/posts"
	if day != "" {
		u += "?day=" + url.QueryEscape(day)
	}

	status, body, err := webclient.DoWithRetry(ctx, c.retries, 2*time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return 0, nil, err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		return resp.StatusCode, b, err
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("feed: unexpected status %d", status)
	}

	var payload struct {
		Posts []Post `json:"posts"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("feed: decode: %w", err)
	}
	return payload.Posts, nil
}

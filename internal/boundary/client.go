package boundary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
)

// Client looks boundaries up in a remote boundary service that serves one
// GeoJSON feature per GET /boundaries/{year}/{scope}/{code}.
type Client struct {
	log     zerolog.Logger
	baseURL string
	http    *http.Client
}

type ClientOptions struct {
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewClient(log zerolog.Logger, baseURL string, opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

func (c *Client) Lookup(ctx context.Context, year int, scope, code string) (*Boundary, error) {
	u := fmt.Sprintf("%s/boundaries/%s/%s/%s",
		c.baseURL,
		strconv.Itoa(year),
		url.PathEscape(strings.ToLower(scope)),
		url.PathEscape(code),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("boundary lookup %s/%s: %w", scope, code, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("boundary lookup %s/%s: unexpected status %d", scope, code, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("boundary lookup %s/%s: read body: %w", scope, code, err)
	}
	f, err := geojson.UnmarshalFeature(body)
	if err != nil {
		return nil, fmt.Errorf("boundary lookup %s/%s: decode: %w", scope, code, err)
	}

	c.log.Debug().Str("scope", scope).Str("code", code).Int("year", year).Msg("boundary fetched")
	return FromFeature(code, f)
}

// Preload is a no-op for the remote client. Wrap it in a Cache to warm
// lookups ahead of a projection run.
func (c *Client) Preload(ctx context.Context, year int, requests []Request) error {
	return nil
}

package jikan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/example/animehub/internal/platform/metrics"
)

const DefaultBaseURL = "https://api.jikan.moe/v4"

// Provider is the read-only port onto the anime metadata API.
type Provider interface {
	Search(ctx context.Context, q string, limit int) ([]Anime, error)
	GetAnime(ctx context.Context, malID int) (Anime, error)
	GetStreaming(ctx context.Context, malID int) ([]StreamingLink, error)
	ListGenres(ctx context.Context) ([]Genre, error)
	ListByGenre(ctx context.Context, genreID, limit int) ([]Anime, error)
	TopAnime(ctx context.Context, limit int) ([]Anime, error)
	SeasonNow(ctx context.Context, limit int) ([]Anime, error)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	CB         *gobreaker.CircuitBreaker
}

// Option configures the Client.
type Option func(*Client)

// WithCircuitBreaker makes calls fail fast while the breaker is open.
// Open-state rejections surface as ErrUpstreamUnavailable.
func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.CB = cb }
}

// New builds a client. A zero timeout leaves the http.Client without one;
// request contexts still bound every call.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  "animehub-web/1.0",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// envelope is the top-level shape of every Jikan response.
type envelope[T any] struct {
	Data *T `json:"data"`
}

func (c *Client) Search(ctx context.Context, q string, limit int) ([]Anime, error) {
	v := url.Values{}
	v.Set("q", q)
	v.Set("limit", strconv.Itoa(limit))
	return c.animeList(ctx, "search", "/anime?"+v.Encode())
}

func (c *Client) GetAnime(ctx context.Context, malID int) (Anime, error) {
	const op = "get_anime"
	if malID <= 0 {
		return Anime{}, fmt.Errorf("jikan %s %d: %w", op, malID, ErrInvalidID)
	}
	var env envelope[Anime]
	if err := c.get(ctx, op, "/anime/"+strconv.Itoa(malID), &env); err != nil {
		return Anime{}, err
	}
	if env.Data == nil {
		return Anime{}, invalid(op, errString("missing data"))
	}
	if err := env.Data.validate(); err != nil {
		return Anime{}, invalid(op, err)
	}
	return *env.Data, nil
}

// GetStreaming treats an absent data field as no providers.
func (c *Client) GetStreaming(ctx context.Context, malID int) ([]StreamingLink, error) {
	const op = "get_streaming"
	if malID <= 0 {
		return nil, fmt.Errorf("jikan %s %d: %w", op, malID, ErrInvalidID)
	}
	var env envelope[[]StreamingLink]
	if err := c.get(ctx, op, "/anime/"+strconv.Itoa(malID)+"/streaming", &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []StreamingLink{}, nil
	}
	out := make([]StreamingLink, 0, len(*env.Data))
	for _, l := range *env.Data {
		if strings.TrimSpace(l.URL) == "" {
			continue
		}
		out = append(out, StreamingLink{Name: strings.TrimSpace(l.Name), URL: strings.TrimSpace(l.URL)})
	}
	return out, nil
}

func (c *Client) ListGenres(ctx context.Context) ([]Genre, error) {
	const op = "list_genres"
	var env envelope[[]Genre]
	if err := c.get(ctx, op, "/genres/anime", &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []Genre{}, nil
	}
	return *env.Data, nil
}

func (c *Client) ListByGenre(ctx context.Context, genreID, limit int) ([]Anime, error) {
	v := url.Values{}
	v.Set("genres", strconv.Itoa(genreID))
	v.Set("limit", strconv.Itoa(limit))
	return c.animeList(ctx, "list_by_genre", "/anime?"+v.Encode())
}

func (c *Client) TopAnime(ctx context.Context, limit int) ([]Anime, error) {
	return c.animeList(ctx, "top_anime", "/top/anime?limit="+strconv.Itoa(limit))
}

func (c *Client) SeasonNow(ctx context.Context, limit int) ([]Anime, error) {
	return c.animeList(ctx, "season_now", "/seasons/now?limit="+strconv.Itoa(limit))
}

// animeList drops entries without an id or title instead of failing the page.
func (c *Client) animeList(ctx context.Context, op, path string) ([]Anime, error) {
	var env envelope[[]Anime]
	if err := c.get(ctx, op, path, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []Anime{}, nil
	}
	out := make([]Anime, 0, len(*env.Data))
	for _, a := range *env.Data {
		if a.validate() != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, dst any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(err, ErrInvalidResponse):
			outcome = "invalid"
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = "breaker_open"
		case err != nil:
			outcome = "unavailable"
		}
		metrics.RecordUpstream(op, outcome, time.Since(start))
	}()

	if c.CB == nil {
		return c.do(ctx, op, path, dst)
	}
	_, err = c.CB.Execute(func() (any, error) {
		err := c.do(ctx, op, path, dst)
		if err != nil && ctx.Err() != nil {
			return nil, callerGone{err}
		}
		return nil, err
	})
	var gone callerGone
	if errors.As(err, &gone) {
		return gone.error
	}
	if err != nil && !errors.Is(err, ErrUpstreamUnavailable) {
		// Breaker rejections never reached the network.
		return unavailable(op, 0, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, op, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return unavailable(op, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return unavailable(op, 0, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return unavailable(op, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unavailable(op, resp.StatusCode, fmt.Errorf("body=%q", snippet(b)))
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return invalid(op, fmt.Errorf("decode: %w body=%q", err, snippet(b)))
	}
	return nil
}

func snippet(b []byte) string {
	return string(b[:min(len(b), 200)])
}

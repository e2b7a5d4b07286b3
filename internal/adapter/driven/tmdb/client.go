// Package tmdb implements the CatalogClient port against The Movie Database v3 API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

// DefaultBaseURL is the public TMDB v3 endpoint.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Compile-time interface satisfaction check.
var _ driven.CatalogClient = (*Client)(nil)

// movieDetails is the subset of the TMDB /movie/{id} payload the schedule uses.
// Nullable fields are pointers so "absent" survives decoding.
type movieDetails struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title"`
	Overview      string   `json:"overview"`
	PosterPath    *string  `json:"poster_path"`
	BackdropPath  *string  `json:"backdrop_path"`
	ReleaseDate   string   `json:"release_date"`
	Runtime       *int     `json:"runtime"`
	Genres        []genre  `json:"genres"`
	VoteAverage   *float64 `json:"vote_average"`
	VoteCount     *int     `json:"vote_count"`
}

type genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Client fetches movie metadata from TMDB. The API key is supplied per call so
// the client itself holds no secret.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLanguage sets the language TMDB localizes titles and overviews into.
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(language)
	}
}

// WithTimeout bounds each request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPCache routes requests through an in-memory httpcache transport so
// repeated lookups revalidate with ETag/Cache-Control instead of refetching.
func WithHTTPCache() Option {
	return func(c *Client) {
		c.httpClient.Transport = httpcache.NewMemoryCacheTransport()
	}
}

// New creates a TMDB client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("tmdb base url %q must be an absolute URL", baseURL)
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   "en-US",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchByID retrieves the movie with the given TMDB id.
//
// Returns an error wrapping driven.ErrCatalogNotFound on 404 and
// driven.ErrCatalogUnavailable for every other failure. There are no retries.
func (c *Client) FetchByID(ctx context.Context, id int64, credential string) (*model.CatalogRecord, error) {
	endpoint, err := url.Parse(c.baseURL + "/movie/" + strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("%w: parse tmdb url: %w", driven.ErrCatalogUnavailable, err)
	}
	params := url.Values{}
	params.Set("api_key", credential)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", driven.ErrCatalogUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("%w: movie %d (latency=%v): %w", driven.ErrCatalogUnavailable, id, latency, stripURL(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("movie %d: %w", id, driven.ErrCatalogNotFound)
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: movie %d returned %d (latency=%v)", driven.ErrCatalogUnavailable, id, resp.StatusCode, latency)
	}

	// Read to EOF so httpcache can store the response.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read movie %d: %w", driven.ErrCatalogUnavailable, id, err)
	}

	var payload movieDetails
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode movie %d: %w", driven.ErrCatalogUnavailable, id, err)
	}
	if payload.ID == 0 || strings.TrimSpace(payload.Title) == "" {
		return nil, fmt.Errorf("%w: movie %d payload missing id or title", driven.ErrCatalogUnavailable, id)
	}

	return payload.toRecord(), nil
}

func (m movieDetails) toRecord() *model.CatalogRecord {
	rec := &model.CatalogRecord{
		ID:             m.ID,
		Title:          m.Title,
		OriginalTitle:  m.OriginalTitle,
		Synopsis:       m.Overview,
		PosterPath:     deref(m.PosterPath),
		BackdropPath:   deref(m.BackdropPath),
		ReleaseDate:    m.ReleaseDate,
		RuntimeMinutes: m.Runtime,
		RatingAverage:  m.VoteAverage,
		RatingCount:    m.VoteCount,
	}
	// TMDB reports 0 for unknown runtimes.
	if rec.RuntimeMinutes != nil && *rec.RuntimeMinutes == 0 {
		rec.RuntimeMinutes = nil
	}
	if len(m.Genres) > 0 {
		rec.Genres = make([]model.Genre, len(m.Genres))
		for i, g := range m.Genres {
			rec.Genres[i] = model.Genre{ID: g.ID, Name: g.Name}
		}
	}
	return rec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// stripURL drops the request URL from transport errors; it carries the API key.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// Package tmdb contains the TMDB API client and the movie/people search
// tools the agent advertises to the model. The client is a thin pass-through:
// no caching, no retry; callers receive provider errors unchanged.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hupe1980/moviemesh/logging"
)

const (
	// DefaultBaseURL is the TMDB v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"
	// DefaultImageBaseURL is the prefix used to absolutize provider-relative
	// image path fragments.
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
)

// SearchKind selects the TMDB search endpoint.
type SearchKind string

// Search endpoints supported by the client.
const (
	SearchMovie  SearchKind = "movie"
	SearchTV     SearchKind = "tv"
	SearchPerson SearchKind = "person"
	SearchMulti  SearchKind = "multi"
)

// SearchOptions carries the optional query parameters of a search request.
type SearchOptions struct {
	IncludeAdult       bool
	Language           string // defaults to "en-US"
	Page               int    // defaults to 1
	Region             string
	Year               int
	PrimaryReleaseYear int
}

// SearchResponse is the paginated envelope returned by TMDB search endpoints.
// Result records are kept as raw maps so post-processing can rewrite image
// paths without caring about the per-kind record shape.
type SearchResponse struct {
	Page         int              `json:"page"`
	Results      []map[string]any `json:"results"`
	TotalPages   int              `json:"total_pages"`
	TotalResults int              `json:"total_results"`
}

// Options configure the TMDB client.
type Options struct {
	BaseURL      string
	ImageBaseURL string
	HTTPClient   *http.Client
	Logger       logging.Logger
}

// Client talks to the TMDB v3 API using bearer token authorization.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	imageBaseURL string
	token        string
	logger       logging.Logger
}

// NewClient constructs a TMDB client authenticating with the given API read
// access token.
func NewClient(token string, optFns ...func(o *Options)) *Client {
	opts := Options{
		BaseURL:      DefaultBaseURL,
		ImageBaseURL: DefaultImageBaseURL,
		HTTPClient:   http.DefaultClient,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		httpClient:   opts.HTTPClient,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		imageBaseURL: opts.ImageBaseURL,
		token:        token,
		logger:       opts.Logger,
	}
}

// ImageBaseURL returns the configured image URL prefix.
func (c *Client) ImageBaseURL() string { return c.imageBaseURL }

// Search queries one of the TMDB search endpoints.
func (c *Client) Search(ctx context.Context, kind SearchKind, query string, opts SearchOptions) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", strconv.FormatBool(opts.IncludeAdult))
	language := opts.Language
	if language == "" {
		language = "en-US"
	}
	params.Set("language", language)
	page := opts.Page
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	if opts.Region != "" {
		params.Set("region", opts.Region)
	}
	if opts.Year > 0 {
		params.Set("year", strconv.Itoa(opts.Year))
	}
	if opts.PrimaryReleaseYear > 0 {
		params.Set("primary_release_year", strconv.Itoa(opts.PrimaryReleaseYear))
	}

	c.logger.Debug("tmdb.search", "kind", string(kind), "query", query)

	var result SearchResponse
	if err := c.get(ctx, fmt.Sprintf("/search/%s", kind), params, &result); err != nil {
		return nil, fmt.Errorf("tmdb search (%s): %w", kind, err)
	}
	return &result, nil
}

// MovieDetails fetches the detail record for a movie id. appendToResponse
// names additional sub-resources to include (e.g. "videos", "credits").
func (c *Client) MovieDetails(ctx context.Context, movieID int, appendToResponse []string) (map[string]any, error) {
	params := url.Values{}
	params.Set("language", "en-US")
	if len(appendToResponse) > 0 {
		params.Set("append_to_response", strings.Join(appendToResponse, ","))
	}

	c.logger.Debug("tmdb.movie_details", "movie_id", movieID)

	var record map[string]any
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", movieID), params, &record); err != nil {
		return nil, fmt.Errorf("tmdb movie details (id %d): %w", movieID, err)
	}
	return record, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

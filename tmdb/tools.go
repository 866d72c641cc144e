package tmdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/moviemesh/logging"
	"github.com/hupe1980/moviemesh/tool"
)

// DefaultMaxDetailResults bounds the combined search+detail tool when the
// model does not specify a maximum.
const DefaultMaxDetailResults = 5

// imagePathKeys are the provider-relative path fragments rewritten to
// absolute URLs on every returned record.
var imagePathKeys = []string{"poster_path", "backdrop_path", "profile_path"}

// Toolset exposes the TMDB capabilities as agent tools. Its only
// responsibilities are marshaling tool arguments into the provider's query
// shape and absolutizing image paths on the way out; provider errors
// propagate unchanged to the registry caller.
type Toolset struct {
	client *Client
	logger logging.Logger
}

// NewToolset wraps a client for registration with a tool registry.
func NewToolset(client *Client, optFns ...func(t *Toolset)) *Toolset {
	t := &Toolset{client: client, logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(t)
	}
	return t
}

// WithLogger sets the logger used by the toolset.
func WithLogger(logger logging.Logger) func(t *Toolset) {
	return func(t *Toolset) { t.logger = logger }
}

// Register adds all TMDB tools to the registry, paired with their
// declarations so arguments are schema-checked before any API call.
func (t *Toolset) Register(reg *tool.Registry) {
	funcs := map[string]tool.Func{
		"searchMovies":             t.searchMovies,
		"searchPeople":             t.searchPeople,
		"searchTmdb":               t.searchCombined,
		"getMovieDetails":          t.movieDetails,
		"searchAndGetMovieDetails": t.searchAndDetails,
	}
	for _, def := range t.Definitions() {
		reg.RegisterWithDefinition(def, funcs[def.Function.Name])
	}
}

// Definitions returns the static tool declarations advertised to the model.
func (t *Toolset) Definitions() []tool.Definition {
	return []tool.Definition{
		tool.NewDefinition("searchMovies", "search TMDB for movies by title", map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The movie title to search for",
			},
		}, []string{"query"}),
		tool.NewDefinition("searchPeople", "search TMDB for people by name", map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The person's name to search for",
			},
		}, []string{"query"}),
		tool.NewDefinition("searchTmdb", "search TMDB for movies, TV shows or people", map[string]any{
			"kind": map[string]any{
				"type":        "string",
				"enum":        []string{"movie", "tv", "person", "multi"},
				"description": "What to search for; use multi to search across all kinds",
			},
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
		}, []string{"kind", "query"}),
		tool.NewDefinition("getMovieDetails", "fetch detailed TMDB information for a movie by id", map[string]any{
			"movieId": map[string]any{
				"type":        "number",
				"description": "The TMDB movie id",
			},
			"appendToResponse": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Additional data to include, e.g. videos, credits, images",
			},
		}, []string{"movieId"}),
		tool.NewDefinition("searchAndGetMovieDetails", "search TMDB for movies by title and fetch detailed information for the top results", map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The movie title to search for",
			},
			"maxResults": map[string]any{
				"type":        "number",
				"description": "Maximum number of movies to fetch details for (default 5)",
			},
			"year": map[string]any{
				"type":        "number",
				"description": "Restrict results to a release year",
			},
		}, []string{"query"}),
	}
}

func (t *Toolset) searchMovies(ctx context.Context, args map[string]any) (any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	t.logger.Info("tmdb.tool.search_movies", "query", query)
	resp, err := t.client.Search(ctx, SearchMovie, query, SearchOptions{})
	if err != nil {
		return nil, err
	}
	return t.normalizeSearch(resp), nil
}

func (t *Toolset) searchPeople(ctx context.Context, args map[string]any) (any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	t.logger.Info("tmdb.tool.search_people", "query", query)
	resp, err := t.client.Search(ctx, SearchPerson, query, SearchOptions{})
	if err != nil {
		return nil, err
	}
	return t.normalizeSearch(resp), nil
}

func (t *Toolset) searchCombined(ctx context.Context, args map[string]any) (any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	kindRaw, _ := args["kind"].(string)
	kind := SearchKind(strings.ToLower(kindRaw))
	switch kind {
	case SearchMovie, SearchTV, SearchPerson, SearchMulti:
	default:
		return nil, fmt.Errorf("invalid search kind: %q", kindRaw)
	}
	t.logger.Info("tmdb.tool.search", "kind", string(kind), "query", query)
	resp, err := t.client.Search(ctx, kind, query, SearchOptions{})
	if err != nil {
		return nil, err
	}
	return t.normalizeSearch(resp), nil
}

func (t *Toolset) movieDetails(ctx context.Context, args map[string]any) (any, error) {
	id, ok := numberArg(args, "movieId")
	if !ok {
		return nil, fmt.Errorf("movieId is required")
	}
	record, err := t.client.MovieDetails(ctx, id, stringSliceArg(args, "appendToResponse"))
	if err != nil {
		return nil, err
	}
	t.normalizeRecord(record)
	return record, nil
}

func (t *Toolset) searchAndDetails(ctx context.Context, args map[string]any) (any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	maxResults := DefaultMaxDetailResults
	if n, ok := numberArg(args, "maxResults"); ok && n > 0 {
		maxResults = n
	}
	opts := SearchOptions{}
	if year, ok := numberArg(args, "year"); ok {
		opts.Year = year
	}

	search, err := t.client.Search(ctx, SearchMovie, query, opts)
	if err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		return []map[string]any{}, nil
	}
	if len(search.Results) > maxResults {
		search.Results = search.Results[:maxResults]
	}

	details := make([]map[string]any, 0, len(search.Results))
	for _, result := range search.Results {
		id, ok := numberArg(result, "id")
		if !ok {
			continue
		}
		record, err := t.client.MovieDetails(ctx, id, []string{"videos", "credits"})
		if err != nil {
			return nil, err
		}
		t.normalizeRecord(record)
		details = append(details, record)
	}
	return details, nil
}

// normalizeSearch rewrites image paths on every result record in place and
// returns the response for convenience.
func (t *Toolset) normalizeSearch(resp *SearchResponse) *SearchResponse {
	for _, record := range resp.Results {
		t.normalizeRecord(record)
	}
	return resp
}

// normalizeRecord absolutizes the provider-relative image path fragments of a
// record, recursively for nested known_for sub-records.
func (t *Toolset) normalizeRecord(record map[string]any) {
	base := t.client.ImageBaseURL()
	for _, key := range imagePathKeys {
		if path, ok := record[key].(string); ok && strings.HasPrefix(path, "/") {
			record[key] = base + path
		}
	}
	if knownFor, ok := record["known_for"].([]any); ok {
		for _, entry := range knownFor {
			if sub, ok := entry.(map[string]any); ok {
				t.normalizeRecord(sub)
			}
		}
	}
}

func stringArg(args map[string]any, key string) (string, error) {
	value, _ := args[key].(string)
	if value == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

// numberArg reads a numeric argument; JSON decoding yields float64 values.
func numberArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Package metadata attaches poster, overview and trailer data to ranking entries.
// Enrichment is best effort: failures are logged and never reach the caller.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
	"github.com/Clark-Hu/boxoffice-viewer/internal/httpx"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"
	DefaultLanguage     = "ko-KR"

	// FallbackOverview is shown when the metadata service has no synopsis.
	FallbackOverview = "No overview available."

	serviceName = "metadata"
	videoSite   = "YouTube"
)

// Enricher resolves metadata for a movie title.
type Enricher interface {
	Enrich(ctx context.Context, title string) domain.MovieMetadata
}

// Options tunes the client.
type Options struct {
	Language   string
	Timeout    time.Duration
	Logger     logrus.FieldLogger
	HTTPClient *http.Client
}

// TMDBClient implements Enricher against the movie metadata API.
type TMDBClient struct {
	baseURL  *url.URL
	apiKey   string
	language string
	client   *http.Client
	logger   logrus.FieldLogger
}

// New constructs a metadata client. Without an apiKey every Enrich call returns the
// empty result without touching the network.
func New(baseURL, apiKey string, opts Options) (*TMDBClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse metadata url: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	client := opts.HTTPClient
	if client == nil {
		client = httpx.NewClient(serviceName, opts.Timeout)
	}
	language := opts.Language
	if language == "" {
		language = DefaultLanguage
	}
	return &TMDBClient{
		baseURL:  parsed,
		apiKey:   strings.TrimSpace(apiKey),
		language: language,
		client:   client,
		logger:   logger.WithField("component", serviceName),
	}, nil
}

// Enrich searches by title and takes the first hit only; there is no disambiguation
// by release year. The trailer is the first YouTube video typed Trailer or Teaser,
// in whatever order the service lists them.
func (c *TMDBClient) Enrich(ctx context.Context, title string) domain.MovieMetadata {
	result := domain.MovieMetadata{Overview: FallbackOverview}
	if c.apiKey == "" {
		c.logger.Debug("metadata api key not configured; skipping enrichment")
		return result
	}
	if strings.TrimSpace(title) == "" {
		return result
	}

	hit, err := c.searchFirst(ctx, title)
	if err != nil {
		c.logger.WithError(err).WithField("title", title).Warn("metadata search failed")
		return result
	}
	if hit == nil {
		return result
	}

	if hit.PosterPath != nil && *hit.PosterPath != "" {
		poster := *hit.PosterPath
		result.PosterPath = &poster
	}
	if strings.TrimSpace(hit.Overview) != "" {
		result.Overview = hit.Overview
	}

	key, err := c.trailerKey(ctx, hit.ID)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{"title": title, "metadata_id": hit.ID}).Warn("metadata video lookup failed")
		return result
	}
	result.TrailerKey = key
	return result
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

type searchHit struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Overview   string  `json:"overview"`
	PosterPath *string `json:"poster_path"`
}

type videosResponse struct {
	Results []video `json:"results"`
}

type video struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

func (c *TMDBClient) searchFirst(ctx context.Context, title string) (*searchHit, error) {
	q := url.Values{}
	q.Set("query", title)
	var payload searchResponse
	if err := c.get(ctx, c.baseURL.JoinPath("search", "movie"), q, &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) == 0 {
		return nil, nil
	}
	return &payload.Results[0], nil
}

func (c *TMDBClient) trailerKey(ctx context.Context, id int64) (*string, error) {
	var payload videosResponse
	endpoint := c.baseURL.JoinPath("movie", strconv.FormatInt(id, 10), "videos")
	if err := c.get(ctx, endpoint, url.Values{}, &payload); err != nil {
		return nil, err
	}
	for _, v := range payload.Results {
		if v.Site == videoSite && (v.Type == "Trailer" || v.Type == "Teaser") && v.Key != "" {
			key := v.Key
			return &key, nil
		}
	}
	return nil, nil
}

func (c *TMDBClient) get(ctx context.Context, endpoint *url.URL, q url.Values, dst interface{}) error {
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.HTTPError{Service: serviceName, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode metadata response: %w", err)
	}
	return nil
}

// PosterURL builds an image URL for a poster path, e.g. size "w500". Empty path gives "".
func PosterURL(path *string, size string) string {
	if path == nil || *path == "" {
		return ""
	}
	if size == "" {
		size = "original"
	}
	return DefaultImageBaseURL + "/" + size + "/" + strings.TrimLeft(*path, "/")
}

// TrailerURL builds a watch link for a trailer key. Empty key gives "".
func TrailerURL(key *string) string {
	if key == nil || *key == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(*key)
}

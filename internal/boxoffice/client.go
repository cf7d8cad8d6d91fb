package boxoffice

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
	"github.com/Clark-Hu/boxoffice-viewer/internal/httpx"
)

const (
	// MaxItemsPerPage is the hard page-size limit of the ranking service.
	MaxItemsPerPage = 10

	// DefaultBaseURL is the public ranking service root.
	DefaultBaseURL = "http://www.kobis.or.kr/kobisopenapi/webservice/rest"

	serviceName   = "boxoffice"
	dailyPath     = "boxoffice/searchDailyBoxOfficeList.json"
	movieInfoPath = "movie/searchMovieInfo.json"
)

// Client defines the contract for querying the upstream ranking API.
type Client interface {
	FetchDailyBoxOffice(ctx context.Context, targetDate string, itemPerPage int) ([]domain.Movie, error)
}

// Options tunes the HTTP client.
type Options struct {
	Timeout       time.Duration
	RatePerSecond float64
	Logger        logrus.FieldLogger
	// HTTPClient overrides the default transport; used by tests.
	HTTPClient *http.Client
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  logrus.FieldLogger
}

// NewHTTPClient constructs a ranking client. An empty apiKey is accepted here and
// reported as a ConfigError on every fetch.
func NewHTTPClient(baseURL, apiKey string, opts Options) (*HTTPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse box office url: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	client := opts.HTTPClient
	if client == nil {
		client = httpx.NewClient(serviceName, opts.Timeout)
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  strings.TrimSpace(apiKey),
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.WithField("component", serviceName),
	}, nil
}

// FetchDailyBoxOffice retrieves the ranking for targetDate (YYYYMMDD).
// itemPerPage is clamped to MaxItemsPerPage.
func (c *HTTPClient) FetchDailyBoxOffice(ctx context.Context, targetDate string, itemPerPage int) ([]domain.Movie, error) {
	if itemPerPage <= 0 || itemPerPage > MaxItemsPerPage {
		itemPerPage = MaxItemsPerPage
	}

	q := url.Values{}
	q.Set("targetDt", targetDate)
	q.Set("itemPerPage", strconv.Itoa(itemPerPage))

	var payload dailyResponse
	if err := c.get(ctx, dailyPath, q, &payload); err != nil {
		return nil, err
	}
	if err := payload.FaultInfo.err(); err != nil {
		return nil, err
	}
	if payload.BoxOfficeResult == nil || len(payload.BoxOfficeResult.DailyBoxOfficeList) == 0 {
		return []domain.Movie{}, nil
	}

	raw := payload.BoxOfficeResult.DailyBoxOfficeList
	movies := make([]domain.Movie, 0, len(raw))
	for i, record := range raw {
		movies = append(movies, mapRecord(record, i))
	}
	return movies, nil
}

// FetchMovieInfo looks up title and release date by movie code. A nil result means
// the service knows no such movie.
func (c *HTTPClient) FetchMovieInfo(ctx context.Context, movieCd string) (*domain.MovieInfo, error) {
	q := url.Values{}
	q.Set("movieCd", movieCd)

	var payload movieInfoResponse
	if err := c.get(ctx, movieInfoPath, q, &payload); err != nil {
		return nil, err
	}
	if err := payload.FaultInfo.err(); err != nil {
		return nil, err
	}
	if payload.MovieInfoResult == nil || payload.MovieInfoResult.MovieInfo == nil {
		return nil, nil
	}
	info := payload.MovieInfoResult.MovieInfo
	return &domain.MovieInfo{
		Title:   string(info.MovieNm),
		Release: releaseLabel(string(info.OpenDt)),
	}, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, q url.Values, dst interface{}) error {
	if c.apiKey == "" {
		return &domain.ConfigError{Key: "KOBIS_API_KEY"}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("boxoffice: rate limit wait: %w", err)
	}

	q.Set("key", c.apiKey)
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("boxoffice: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(logrus.Fields{"status": resp.StatusCode, "path": path}).Warn("unexpected upstream status")
		return &domain.HTTPError{Service: serviceName, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode box office response: %w", err)
	}
	return nil
}

type dailyResponse struct {
	BoxOfficeResult *struct {
		BoxofficeType      string      `json:"boxofficeType"`
		ShowRange          string      `json:"showRange"`
		DailyBoxOfficeList []rawRecord `json:"dailyBoxOfficeList"`
	} `json:"boxOfficeResult"`
	FaultInfo *faultInfo `json:"faultInfo"`
}

type movieInfoResponse struct {
	MovieInfoResult *struct {
		MovieInfo *struct {
			MovieNm flexString `json:"movieNm"`
			OpenDt  flexString `json:"openDt"`
		} `json:"movieInfo"`
	} `json:"movieInfoResult"`
	FaultInfo *faultInfo `json:"faultInfo"`
}

type faultInfo struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func (f *faultInfo) err() error {
	if f == nil {
		return nil
	}
	msg := strings.TrimSpace(f.Message)
	if msg == "" {
		msg = "unknown error"
	}
	return &domain.RemoteFault{Service: serviceName, Code: f.ErrorCode, Message: msg}
}

type rawRecord struct {
	MovieCd     flexString  `json:"movieCd"`
	MovieNm     flexString  `json:"movieNm"`
	Rank        flexString  `json:"rank"`
	OpenDt      flexString  `json:"openDt"`
	SalesAmt    flexString  `json:"salesAmt"`
	AudiCnt     flexString  `json:"audiCnt"`
	AudiAcc     flexString  `json:"audiAcc"`
	SalesChange *flexString `json:"salesChange"`
	AudiChange  *flexString `json:"audiChange"`
	ScrnCnt     flexString  `json:"scrnCnt"`
}

// flexString decodes both JSON strings and numbers; the service sends numbers as strings.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// mapRecord converts one raw record. index is the record's position within the page
// and is only used when the service omits the movie code, so synthesized ids repeat
// across pages and dates.
func mapRecord(r rawRecord, index int) domain.Movie {
	id := string(r.MovieCd)
	if id == "" {
		id = fmt.Sprintf("movie_%d", index)
	}

	change := "0"
	switch {
	case r.SalesChange != nil:
		change = string(*r.SalesChange)
	case r.AudiChange != nil:
		change = string(*r.AudiChange)
	}

	return domain.Movie{
		ID:            id,
		Title:         string(r.MovieNm),
		Rank:          int(parseInt(string(r.Rank))),
		Release:       releaseLabel(string(r.OpenDt)),
		DailySales:    parseInt(string(r.SalesAmt)),
		DailyAudience: parseInt(string(r.AudiCnt)),
		TotalAudience: parseInt(string(r.AudiAcc)),
		IncreaseRate:  parseFloat(change),
		ScreenCount:   parseInt(string(r.ScrnCnt)),
	}
}

// releaseLabel slices YYYYMMDD into YYYY.MM.DD by fixed width. Input of another
// length yields a garbled label rather than an error.
func releaseLabel(openDt string) string {
	if openDt == "" {
		return ""
	}
	return substr(openDt, 0, 4) + "." + substr(openDt, 4, 6) + "." + substr(openDt, 6, 8)
}

func substr(s string, start, end int) string {
	if start > len(s) {
		start = len(s)
	}
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}

func parseInt(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

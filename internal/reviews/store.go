// Package reviews talks to the REST collection that stores user reviews.
//
// Edit and delete are gated by comparing the review's stored plaintext password
// on the caller's side before any request is sent. The collection itself enforces
// nothing; the gate is a placeholder, not authentication.
package reviews

import (
	"bytes"
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

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
	"github.com/Clark-Hu/boxoffice-viewer/internal/httpx"
)

const (
	// DefaultBaseURL is the hosted mock collection the viewer was built against.
	DefaultBaseURL = "https://6933b1984090fe3bf01dc49f.mockapi.io"

	serviceName     = "reviews"
	collection      = "reviews"
	genericRejected = "Unknown error"
	maxErrorBody    = 64 << 10
)

// ErrNotFound is returned when the collection has no review with the given id.
var ErrNotFound = errors.New("reviews: not found")

// Store defines the review operations the viewer needs.
type Store interface {
	List(ctx context.Context, movieID int) ([]domain.Review, error)
	Get(ctx context.Context, id string) (domain.Review, error)
	Create(ctx context.Context, draft domain.ReviewDraft) (domain.Review, error)
	Update(ctx context.Context, existing domain.Review, draft domain.ReviewDraft, password string) (domain.Review, error)
	Delete(ctx context.Context, existing domain.Review, password string) error
}

// Options tunes the HTTP store.
type Options struct {
	Timeout    time.Duration
	Logger     logrus.FieldLogger
	HTTPClient *http.Client
}

// HTTPStore implements Store against a REST collection.
type HTTPStore struct {
	baseURL *url.URL
	client  *http.Client
	logger  logrus.FieldLogger
}

// NewHTTPStore constructs a store rooted at baseURL; the collection lives at {baseURL}/reviews.
func NewHTTPStore(baseURL string, opts Options) (*HTTPStore, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse reviews url: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	client := opts.HTTPClient
	if client == nil {
		client = httpx.NewClient(serviceName, opts.Timeout)
	}
	return &HTTPStore{
		baseURL: parsed,
		client:  client,
		logger:  logger.WithField("component", serviceName),
	}, nil
}

// List returns the reviews for movieID. The collection filters by substring, so
// results are narrowed to exact matches here.
func (s *HTTPStore) List(ctx context.Context, movieID int) ([]domain.Review, error) {
	endpoint := s.baseURL.JoinPath(collection)
	q := url.Values{}
	q.Set("movieID", strconv.Itoa(movieID))
	endpoint.RawQuery = q.Encode()

	resp, err := s.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &domain.FetchError{Err: err}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		s.logger.WithFields(logrus.Fields{"status": resp.StatusCode, "movie_id": movieID}).Warn("list reviews failed")
		return nil, &domain.FetchError{StatusCode: resp.StatusCode}
	}

	var all []domain.Review
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, &domain.FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode reviews: %w", err)}
	}

	out := make([]domain.Review, 0, len(all))
	for _, r := range all {
		if r.MovieID == movieID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Get loads a single review.
func (s *HTTPStore) Get(ctx context.Context, id string) (domain.Review, error) {
	resp, err := s.do(ctx, http.MethodGet, s.itemURL(id), nil)
	if err != nil {
		return domain.Review{}, &domain.FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Review{}, ErrNotFound
	}
	if !isSuccess(resp.StatusCode) {
		return domain.Review{}, &domain.FetchError{StatusCode: resp.StatusCode}
	}

	var review domain.Review
	if err := json.NewDecoder(resp.Body).Decode(&review); err != nil {
		return domain.Review{}, &domain.FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode review: %w", err)}
	}
	return review, nil
}

// Create validates draft and submits it. Nothing is sent when validation fails.
func (s *HTTPStore) Create(ctx context.Context, draft domain.ReviewDraft) (domain.Review, error) {
	if err := draft.Validate(); err != nil {
		return domain.Review{}, err
	}
	return s.write(ctx, http.MethodPost, s.baseURL.JoinPath(collection), draft)
}

// Update replaces existing with draft after the password gate. The movie a review
// belongs to never changes; an empty draft password keeps the stored one.
func (s *HTTPStore) Update(ctx context.Context, existing domain.Review, draft domain.ReviewDraft, password string) (domain.Review, error) {
	if err := existing.CheckPassword(password); err != nil {
		return domain.Review{}, err
	}
	draft.MovieID = existing.MovieID
	if draft.Password == "" {
		draft.Password = existing.Password
	}
	if err := draft.Validate(); err != nil {
		return domain.Review{}, err
	}
	return s.write(ctx, http.MethodPut, s.itemURL(existing.ID), draft)
}

// Delete removes existing after the password gate. Callers drop the review from
// their own lists once this returns nil.
func (s *HTTPStore) Delete(ctx context.Context, existing domain.Review, password string) error {
	if err := existing.CheckPassword(password); err != nil {
		return err
	}

	resp, err := s.do(ctx, http.MethodDelete, s.itemURL(existing.ID), nil)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if !isSuccess(resp.StatusCode) {
		return s.rejection(resp)
	}
	return nil
}

func (s *HTTPStore) write(ctx context.Context, method string, endpoint *url.URL, draft domain.ReviewDraft) (domain.Review, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return domain.Review{}, fmt.Errorf("encode review: %w", err)
	}

	resp, err := s.do(ctx, method, endpoint, body)
	if err != nil {
		return domain.Review{}, fmt.Errorf("submit review: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && method == http.MethodPut {
		return domain.Review{}, ErrNotFound
	}
	if !isSuccess(resp.StatusCode) {
		return domain.Review{}, s.rejection(resp)
	}

	var saved domain.Review
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return domain.Review{}, fmt.Errorf("decode saved review: %w", err)
	}
	return saved, nil
}

// rejection surfaces the collection's own message when it sends one.
func (s *HTTPStore) rejection(resp *http.Response) error {
	msg := genericRejected
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		msg = payload.Message
	}
	s.logger.WithFields(logrus.Fields{"status": resp.StatusCode, "message": msg}).Warn("review write rejected")
	return &domain.RemoteFault{Service: serviceName, Code: strconv.Itoa(resp.StatusCode), Message: msg}
}

func (s *HTTPStore) itemURL(id string) *url.URL {
	return s.baseURL.JoinPath(collection, id)
}

func (s *HTTPStore) do(ctx context.Context, method string, endpoint *url.URL, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.client.Do(req)
}

func isSuccess(code int) bool {
	return code >= 200 && code <= 299
}

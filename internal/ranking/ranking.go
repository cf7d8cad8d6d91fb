// Package ranking runs box-office queries and turns the result into display rows.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/boxoffice-viewer/internal/boxoffice"
	"github.com/Clark-Hu/boxoffice-viewer/internal/cache"
	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
	"github.com/Clark-Hu/boxoffice-viewer/internal/format"
	"github.com/Clark-Hu/boxoffice-viewer/internal/metrics"
)

// MaxLimit caps the number of rows a query can ask for.
const MaxLimit = 100

// Sort is the rank ordering of the rows.
type Sort string

const (
	SortAsc  Sort = "asc"
	SortDesc Sort = "desc"
)

// ParseSort accepts "asc", "desc" or "" (asc).
func ParseSort(raw string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", &domain.ValidationError{Fields: []string{"sort"}}
}

// Query describes one ranking search.
type Query struct {
	// Date accepts "YYYY. MM. DD.", "YYYY-MM-DD" or "YYYYMMDD". Empty means yesterday.
	Date    string
	Keyword string
	Sort    Sort
	// Limit <= 0 means MaxLimit.
	Limit int
}

// Result is the outcome of a search.
type Result struct {
	TargetDate string
	// Movies is the full list that was fetched (or the seed dataset) before filtering.
	Movies []domain.Movie
	Rows   []domain.Movie
	// Error carries the fetch failure message when the seed dataset was used.
	Error    string
	Fallback bool
	// Stale is set when a newer search was issued before this one finished.
	// Stale results are never written to the cache.
	Stale bool
}

// Options tunes a Service.
type Options struct {
	Logger   logrus.FieldLogger
	Now      func() time.Time
	PageSize int
}

// Service fetches rankings and keeps the cache in step with the newest search.
type Service struct {
	client   boxoffice.Client
	cache    cache.Store
	logger   logrus.FieldLogger
	now      func() time.Time
	pageSize int

	latest  atomic.Uint64
	persist sync.Mutex
}

// NewService wires a ranking client and the shared cache.
func NewService(client boxoffice.Client, store cache.Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > boxoffice.MaxItemsPerPage {
		pageSize = boxoffice.MaxItemsPerPage
	}
	return &Service{
		client:   client,
		cache:    store,
		logger:   logger.WithField("component", "ranking"),
		now:      now,
		pageSize: pageSize,
	}
}

// Search runs q against the ranking API. A fetch failure is not returned as an
// error: the seed dataset is used instead and the message is put in Result.Error.
// The returned error is non-nil for an invalid date, a cancelled context, or a
// failed cache write.
func (s *Service) Search(ctx context.Context, q Query) (Result, error) {
	target, err := NormalizeDate(q.Date, s.now())
	if err != nil {
		return Result{}, err
	}
	token := s.latest.Add(1)

	res := Result{TargetDate: target}
	movies, fetchErr := s.client.FetchDailyBoxOffice(ctx, target, s.pageSize)
	if fetchErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		s.logger.WithError(fetchErr).WithField("target_date", target).Warn("ranking fetch failed, using seed dataset")
		metrics.RecordRankingFallback()
		movies = Seed()
		res.Error = fetchErr.Error()
		res.Fallback = true
	}
	res.Movies = movies
	res.Rows = Rows(movies, q.Keyword, q.Sort, q.Limit)

	s.persist.Lock()
	defer s.persist.Unlock()
	if s.latest.Load() != token {
		s.logger.WithField("target_date", target).Debug("discarding result of superseded search")
		res.Stale = true
		return res, nil
	}
	if err := s.cache.Set(ctx, movies); err != nil {
		return res, fmt.Errorf("persist ranking: %w", err)
	}
	return res, nil
}

// NormalizeDate converts any accepted date form to the YYYYMMDD token.
func NormalizeDate(raw string, now time.Time) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = format.DefaultQueryDate(now)
	}
	if strings.Contains(raw, "-") {
		raw = format.DateLabelFromISO(raw)
	}
	token := format.DateForAPI(raw)
	if _, err := time.Parse("20060102", token); err != nil {
		return "", &domain.ValidationError{Fields: []string{"date"}}
	}
	return token, nil
}

// Rows filters movies by a case-insensitive title substring, orders them by
// rank and applies the limit. A blank keyword keeps every movie. The input is
// not modified.
func Rows(movies []domain.Movie, keyword string, order Sort, limit int) []domain.Movie {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	out := make([]domain.Movie, 0, len(movies))
	for _, m := range movies {
		if needle == "" || strings.Contains(strings.ToLower(m.Title), needle) {
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if order == SortDesc {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Rank < out[j].Rank
	})

	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

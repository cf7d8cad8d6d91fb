// Package detail assembles the movie detail view: the cached ranking entry,
// best-effort metadata and the movie's reviews.
package detail

import (
	"context"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/boxoffice-viewer/internal/cache"
	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
	"github.com/Clark-Hu/boxoffice-viewer/internal/metadata"
	"github.com/Clark-Hu/boxoffice-viewer/internal/ranking"
	"github.com/Clark-Hu/boxoffice-viewer/internal/reviews"
)

// View is a point-in-time copy of a session's state.
type View struct {
	Movie           domain.Movie
	Metadata        *domain.MovieMetadata
	MetadataLoading bool
	Reviews         []domain.Review
	ReviewsLoading  bool
	ReviewsError    string
}

// MovieInfoFetcher looks up a movie by code outside the daily ranking.
type MovieInfoFetcher interface {
	FetchMovieInfo(ctx context.Context, movieCd string) (*domain.MovieInfo, error)
}

// Loader opens detail sessions.
type Loader struct {
	cache    cache.Store
	enricher metadata.Enricher
	reviews  reviews.Store
	info     MovieInfoFetcher
	logger   logrus.FieldLogger
}

// NewLoader wires the cache written by the ranking flow with the metadata and review sources.
func NewLoader(store cache.Store, enricher metadata.Enricher, reviewStore reviews.Store, logger logrus.FieldLogger) *Loader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{
		cache:    store,
		enricher: enricher,
		reviews:  reviewStore,
		logger:   logger.WithField("component", "detail"),
	}
}

// WithMovieInfo enables a last-resort lookup of movie codes that are neither
// cached nor part of the seed dataset.
func (l *Loader) WithMovieInfo(f MovieInfoFetcher) *Loader {
	l.info = f
	return l
}

// Resolve finds a movie by id in the cached ranking. When the cache is empty,
// unreadable or lacks the id, the seed dataset is searched by id and then by
// 1-based position, and finally the movie-info lookup is asked when configured.
// Movies found by lookup carry no ranking figures.
func (l *Loader) Resolve(ctx context.Context, id string) (domain.Movie, error) {
	movies, ok, err := l.cache.Get(ctx)
	if err != nil {
		l.logger.WithError(err).Warn("read ranking cache failed, using seed dataset")
	}
	if ok {
		if m, found := findByID(movies, id); found {
			return m, nil
		}
	}

	seed := ranking.Seed()
	if m, found := findByID(seed, id); found {
		return m, nil
	}
	if n, err := strconv.Atoi(id); err == nil && n >= 1 && n <= len(seed) {
		return seed[n-1], nil
	}
	if l.info != nil {
		if _, err := domain.ParseMovieID(id); err == nil {
			info, err := l.info.FetchMovieInfo(ctx, id)
			if err != nil {
				l.logger.WithError(err).WithField("movie_id", id).Warn("movie info lookup failed")
			} else if info != nil {
				return domain.Movie{ID: id, Title: info.Title, Release: info.Release}, nil
			}
		}
	}
	return domain.Movie{}, domain.ErrMovieNotFound
}

func findByID(movies []domain.Movie, id string) (domain.Movie, bool) {
	for _, m := range movies {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Movie{}, false
}

// Open resolves the movie and starts the metadata and review tasks concurrently.
// The caller must Close the session.
func (l *Loader) Open(ctx context.Context, id string) (*Session, error) {
	movie, err := l.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		view: View{
			Movie:           movie,
			MetadataLoading: true,
			ReviewsLoading:  true,
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	var g errgroup.Group
	g.Go(func() error {
		meta := l.enricher.Enrich(taskCtx, movie.Title)
		s.update(func(v *View) {
			v.Metadata = &meta
			v.MetadataLoading = false
		})
		return nil
	})
	g.Go(func() error {
		list, err := l.listReviews(taskCtx, movie)
		s.update(func(v *View) {
			v.ReviewsLoading = false
			if err != nil {
				v.ReviewsError = err.Error()
				return
			}
			v.Reviews = list
		})
		return nil
	})
	go func() {
		_ = g.Wait()
		close(s.done)
	}()
	return s, nil
}

// Reviews are keyed by the numeric movie code. Placeholder ids such as
// "movie_2" cannot carry reviews, so they get an empty list.
func (l *Loader) listReviews(ctx context.Context, movie domain.Movie) ([]domain.Review, error) {
	movieID, err := domain.ParseMovieID(movie.ID)
	if err != nil {
		l.logger.WithField("movie_id", movie.ID).Debug("movie id is not numeric, skipping reviews")
		return []domain.Review{}, nil
	}
	list, err := l.reviews.List(ctx, movieID)
	if err != nil {
		l.logger.WithError(err).WithField("movie_id", movieID).Warn("list reviews failed")
		return nil, err
	}
	return list, nil
}

// Session holds the view state of one detail visit. Task results that arrive
// after Close are dropped.
type Session struct {
	mu     sync.Mutex
	view   View
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Session) update(fn func(*View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fn(&s.view)
}

// Wait blocks until both tasks finished or ctx is done, and returns ctx.Err() in the latter case.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once both tasks have returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Snapshot copies the current view. Pending tasks show up as the *Loading flags.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	if s.view.Metadata != nil {
		meta := *s.view.Metadata
		v.Metadata = &meta
	}
	if s.view.Reviews != nil {
		v.Reviews = append([]domain.Review(nil), s.view.Reviews...)
	}
	return v
}

// RemoveReview drops a review from the list after the collection confirmed the delete.
func (s *Session) RemoveReview(id string) {
	s.update(func(v *View) {
		kept := v.Reviews[:0:0]
		for _, r := range v.Reviews {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		v.Reviews = kept
	})
}

// Close cancels outstanding tasks. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// Package upstreammock serves local stand-ins for the ranking API, the metadata
// API and the review collection, for development and end-to-end tests.
//
// Routes:
//
//	GET    /kobis/boxoffice/searchDailyBoxOfficeList.json
//	GET    /kobis/movie/searchMovieInfo.json
//	GET    /tmdb/search/movie
//	GET    /tmdb/movie/{id}/videos
//	GET    /reviews            (?movieID= substring filter)
//	POST   /reviews
//	GET    /reviews/{id}
//	PUT    /reviews/{id}
//	DELETE /reviews/{id}
package upstreammock

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
)

//go:embed fixtures/daily_boxoffice.json
var defaultDaily []byte

// Options configures a Mock.
type Options struct {
	// Daily replaces the embedded dailyBoxOfficeList fixture when non-empty.
	Daily  []byte
	Logger logrus.FieldLogger
}

// Mock holds the fixture and the in-memory review collection.
type Mock struct {
	daily  []json.RawMessage
	logger logrus.FieldLogger

	mu      sync.RWMutex
	reviews map[string]storedReview
	seq     int
}

type storedReview struct {
	domain.Review
	seq int
}

// New parses the ranking fixture and returns an empty review collection.
func New(opts Options) (*Mock, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	raw := opts.Daily
	if len(raw) == 0 {
		raw = defaultDaily
	}
	var daily []json.RawMessage
	if err := json.Unmarshal(raw, &daily); err != nil {
		return nil, err
	}
	return &Mock{
		daily:   daily,
		logger:  logger.WithField("component", "upstream-mock"),
		reviews: make(map[string]storedReview),
	}, nil
}

// Routes returns the mock's router.
func (m *Mock) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/kobis", func(r chi.Router) {
		r.Get("/boxoffice/searchDailyBoxOfficeList.json", m.handleDaily)
		r.Get("/movie/searchMovieInfo.json", m.handleMovieInfo)
	})
	r.Route("/tmdb", func(r chi.Router) {
		r.Get("/search/movie", m.handleSearch)
		r.Get("/movie/{id}/videos", m.handleVideos)
	})
	r.Route("/reviews", func(r chi.Router) {
		r.Get("/", m.handleListReviews)
		r.Post("/", m.handleCreateReview)
		r.Get("/{id}", m.handleGetReview)
		r.Put("/{id}", m.handleUpdateReview)
		r.Delete("/{id}", m.handleDeleteReview)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type fault struct {
	FaultInfo struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	} `json:"faultInfo"`
}

func writeFault(w http.ResponseWriter, code, message string) {
	var f fault
	f.FaultInfo.ErrorCode = code
	f.FaultInfo.Message = message
	writeJSON(w, http.StatusOK, f)
}

func (m *Mock) handleDaily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("key") == "" {
		writeFault(w, "320010", "유효하지않은 키값입니다.")
		return
	}
	target := q.Get("targetDt")
	if len(target) != 8 {
		writeFault(w, "320011", "targetDt 형식이 올바르지 않습니다.")
		return
	}
	n, err := strconv.Atoi(q.Get("itemPerPage"))
	if err != nil || n <= 0 || n > 10 {
		n = 10
	}
	list := m.daily
	if len(list) > n {
		list = list[:n]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"boxOfficeResult": map[string]interface{}{
			"boxofficeType":      "일별 박스오피스",
			"showRange":          target + "~" + target,
			"dailyBoxOfficeList": list,
		},
	})
}

func (m *Mock) handleMovieInfo(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("movieCd")
	for _, raw := range m.daily {
		var rec struct {
			MovieCd string `json:"movieCd"`
			MovieNm string `json:"movieNm"`
			OpenDt  string `json:"openDt"`
		}
		if err := json.Unmarshal(raw, &rec); err != nil || rec.MovieCd == "" || rec.MovieCd != code {
			continue
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"movieInfoResult": map[string]interface{}{
				"movieInfo": map[string]string{"movieCd": rec.MovieCd, "movieNm": rec.MovieNm, "openDt": rec.OpenDt},
			},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"movieInfoResult": map[string]interface{}{}})
}

// The metadata stand-in answers every title with one hit whose id is the
// title length; videos list a clip before the trailer.
func (m *Mock) handleSearch(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("query"))
	if title == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": []interface{}{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": []map[string]interface{}{{
			"id":          len([]rune(title)),
			"title":       title,
			"overview":    title + " 줄거리",
			"poster_path": "/mock-poster.jpg",
		}},
	})
}

func (m *Mock) handleVideos(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": []map[string]string{
			{"key": "clip-" + id, "site": "YouTube", "type": "Clip"},
			{"key": "trailer-" + id, "site": "YouTube", "type": "Trailer"},
		},
	})
}

func (m *Mock) handleListReviews(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("movieID")

	m.mu.RLock()
	items := make([]storedReview, 0, len(m.reviews))
	for _, rv := range m.reviews {
		if filter == "" || strings.Contains(strconv.Itoa(rv.MovieID), filter) {
			items = append(items, rv)
		}
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })
	out := make([]domain.Review, 0, len(items))
	for _, rv := range items {
		out = append(out, rv.Review)
	}
	writeJSON(w, http.StatusOK, out)
}

func (m *Mock) handleGetReview(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	rv, ok := m.reviews[chi.URLParam(r, "id")]
	m.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, rv.Review)
}

func (m *Mock) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var draft domain.ReviewDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}

	m.mu.Lock()
	m.seq++
	rv := storedReview{Review: domain.Review{ID: uuid.NewString(), ReviewDraft: draft}, seq: m.seq}
	m.reviews[rv.ID] = rv
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{"review_id": rv.ID, "movie_id": draft.MovieID}).Info("review created")
	writeJSON(w, http.StatusCreated, rv.Review)
}

func (m *Mock) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var draft domain.ReviewDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}

	m.mu.Lock()
	rv, ok := m.reviews[id]
	if ok {
		rv.ReviewDraft = draft
		m.reviews[id] = rv
	}
	m.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, rv.Review)
}

func (m *Mock) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m.mu.Lock()
	rv, ok := m.reviews[id]
	delete(m.reviews, id)
	m.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, rv.Review)
}

// ReviewCount reports how many reviews are stored.
func (m *Mock) ReviewCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reviews)
}

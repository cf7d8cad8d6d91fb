package boxoffice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(t *testing.T, baseURL, apiKey string) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(baseURL, apiKey, Options{Timeout: 2 * time.Second, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return c
}

func tenRecords(missingCodeAt int) string {
	records := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		code := fmt.Sprintf(`"movieCd":"2024%04d",`, i)
		if i == missingCodeAt {
			code = ""
		}
		records = append(records, fmt.Sprintf(`{%s"movieNm":"Movie %d","rank":"%d","openDt":"20240410","salesAmt":"1000","audiCnt":"10","audiAcc":"100","salesChange":"1.5","scrnCnt":"50"}`, code, i, i+1))
	}
	return `{"boxOfficeResult":{"boxofficeType":"일별 박스오피스","dailyBoxOfficeList":[` + strings.Join(records, ",") + `]}}`
}

func TestFetchDailyBoxOffice_MapsRecords(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/boxoffice/searchDailyBoxOfficeList.json" {
			http.NotFound(w, r)
			return
		}
		gotQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, tenRecords(2))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/rest/", "secret")
	movies, err := c.FetchDailyBoxOffice(context.Background(), "20240424", 25)
	if err != nil {
		t.Fatalf("FetchDailyBoxOffice: %v", err)
	}
	if len(movies) != 10 {
		t.Fatalf("len(movies) = %d, want 10", len(movies))
	}

	for i, m := range movies {
		if i == 2 {
			if m.ID != "movie_2" {
				t.Fatalf("movies[2].ID = %q, want movie_2", m.ID)
			}
			continue
		}
		if strings.HasPrefix(m.ID, "movie_") {
			t.Fatalf("movies[%d].ID = %q, want movie code", i, m.ID)
		}
	}

	first := movies[0]
	if first.Rank != 1 || first.Release != "2024.04.10" || first.DailySales != 1000 ||
		first.DailyAudience != 10 || first.TotalAudience != 100 || first.IncreaseRate != 1.5 || first.ScreenCount != 50 {
		t.Fatalf("unexpected mapping: %+v", first)
	}

	q := gotQuery.Load().(url.Values)
	if q.Get("key") != "secret" || q.Get("targetDt") != "20240424" || q.Get("itemPerPage") != "10" {
		t.Fatalf("unexpected query: %v", q)
	}
}

func TestFetchDailyBoxOffice_MissingKeyMakesNoRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "  ")
	_, err := c.FetchDailyBoxOffice(context.Background(), "20240424", 10)
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no upstream request, got %d", hits)
	}
}

func TestFetchDailyBoxOffice_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-2xx",
			status: http.StatusBadGateway,
			body:   "bad gateway",
			check: func(t *testing.T, err error) {
				var httpErr *domain.HTTPError
				if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
					t.Fatalf("error = %v, want HTTPError 502", err)
				}
			},
		},
		{
			name:   "fault envelope",
			status: http.StatusOK,
			body:   `{"faultInfo":{"message":"유효하지않은 키값입니다.","errorCode":"320010"}}`,
			check: func(t *testing.T, err error) {
				var fault *domain.RemoteFault
				if !errors.As(err, &fault) {
					t.Fatalf("error = %v, want RemoteFault", err)
				}
				if fault.Message != "유효하지않은 키값입니다." || fault.Code != "320010" {
					t.Fatalf("unexpected fault: %+v", fault)
				}
			},
		},
		{
			name:   "fault without message",
			status: http.StatusOK,
			body:   `{"faultInfo":{}}`,
			check: func(t *testing.T, err error) {
				var fault *domain.RemoteFault
				if !errors.As(err, &fault) || fault.Message != "unknown error" {
					t.Fatalf("error = %v, want generic RemoteFault", err)
				}
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"boxOfficeResult":`,
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "decode") {
					t.Fatalf("error = %v, want decode error", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, "secret")
			movies, err := c.FetchDailyBoxOffice(context.Background(), "20240424", 10)
			if movies != nil {
				t.Fatalf("movies = %v, want nil", movies)
			}
			tt.check(t, err)
		})
	}
}

func TestFetchDailyBoxOffice_EmptyResult(t *testing.T) {
	for _, body := range []string{`{}`, `{"boxOfficeResult":{"dailyBoxOfficeList":[]}}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		}))
		c := newTestClient(t, srv.URL, "secret")
		movies, err := c.FetchDailyBoxOffice(context.Background(), "20240424", 10)
		srv.Close()
		if err != nil {
			t.Fatalf("body %s: unexpected error %v", body, err)
		}
		if movies == nil || len(movies) != 0 {
			t.Fatalf("body %s: movies = %v, want empty slice", body, movies)
		}
	}
}

func TestFetchMovieInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("movieCd") {
		case "20231234":
			_, _ = io.WriteString(w, `{"movieInfoResult":{"movieInfo":{"movieNm":"범죄도시4","openDt":"20240424"}}}`)
		default:
			_, _ = io.WriteString(w, `{"movieInfoResult":{}}`)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "secret")
	info, err := c.FetchMovieInfo(context.Background(), "20231234")
	if err != nil {
		t.Fatalf("FetchMovieInfo: %v", err)
	}
	if info == nil || info.Title != "범죄도시4" || info.Release != "2024.04.24" {
		t.Fatalf("unexpected info: %+v", info)
	}

	missing, err := c.FetchMovieInfo(context.Background(), "0")
	if err != nil || missing != nil {
		t.Fatalf("FetchMovieInfo(unknown) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestMapRecordFallbacks(t *testing.T) {
	audi := flexString("-3.2")
	m := mapRecord(rawRecord{MovieNm: "x", AudiChange: &audi, Rank: "abc"}, 4)
	if m.ID != "movie_4" || m.IncreaseRate != -3.2 || m.Rank != 0 || m.DailySales != 0 {
		t.Fatalf("unexpected fallbacks: %+v", m)
	}

	sales := flexString("7")
	m = mapRecord(rawRecord{SalesChange: &sales, AudiChange: &audi}, 0)
	if m.IncreaseRate != 7 {
		t.Fatalf("IncreaseRate = %v, want salesChange to win", m.IncreaseRate)
	}

	m = mapRecord(rawRecord{}, 0)
	if m.IncreaseRate != 0 || m.Release != "" {
		t.Fatalf("unexpected zero mapping: %+v", m)
	}
}

func TestReleaseLabelIsFixedWidth(t *testing.T) {
	tests := map[string]string{
		"20240410":   "2024.04.10",
		"2024-04-10": "2024.-0.4-",
		"2024":       "2024..",
		"":           "",
	}
	for in, want := range tests {
		if got := releaseLabel(in); got != want {
			t.Fatalf("releaseLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFlexStringAcceptsNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"boxOfficeResult":{"dailyBoxOfficeList":[{"movieCd":"1","rank":3,"salesAmt":12000,"audiChange":-1.25}]}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "secret")
	movies, err := c.FetchDailyBoxOffice(context.Background(), "20240424", 10)
	if err != nil {
		t.Fatalf("FetchDailyBoxOffice: %v", err)
	}
	if movies[0].Rank != 3 || movies[0].DailySales != 12000 || movies[0].IncreaseRate != -1.25 {
		t.Fatalf("unexpected movie: %+v", movies[0])
	}
}

func TestFetchDailyBoxOffice_RateLimited(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, `{"boxOfficeResult":{"dailyBoxOfficeList":[]}}`)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "key", Options{Timeout: time.Second, RatePerSecond: 0.5, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if _, err := c.FetchDailyBoxOffice(context.Background(), "20240424", 10); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.FetchDailyBoxOffice(ctx, "20240424", 10); err == nil {
		t.Fatal("expected the limiter to refuse a second call inside the deadline")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("upstream hits = %d, want 1", got)
	}
}

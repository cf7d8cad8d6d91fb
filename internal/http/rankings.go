package httpserver

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
	"github.com/Clark-Hu/boxoffice-viewer/internal/format"
	"github.com/Clark-Hu/boxoffice-viewer/internal/ranking"
)

type rankingResponse struct {
	TargetDate string     `json:"targetDate"`
	DateLabel  string     `json:"dateLabel"`
	Count      int        `json:"count"`
	Items      []movieRow `json:"items"`
	Error      string     `json:"error,omitempty"`
	Fallback   bool       `json:"fallback"`
	Stale      bool       `json:"stale"`
}

// movieRow is a Movie plus its display strings.
type movieRow struct {
	domain.Movie
	DailySalesLabel    string `json:"dailySalesLabel"`
	DailyAudienceLabel string `json:"dailyAudienceLabel"`
	TotalAudienceLabel string `json:"totalAudienceLabel"`
	ScreenCountLabel   string `json:"screenCountLabel"`
	IncreaseRateLabel  string `json:"increaseRateLabel"`
}

func toMovieRow(m domain.Movie) movieRow {
	return movieRow{
		Movie:              m,
		DailySalesLabel:    format.Currency(m.DailySales),
		DailyAudienceLabel: format.Number(m.DailyAudience) + "명",
		TotalAudienceLabel: format.Number(m.TotalAudience) + "명",
		ScreenCountLabel:   format.Number(m.ScreenCount) + "회",
		IncreaseRateLabel:  format.Percent(m.IncreaseRate),
	}
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	q, err := parseRankingQuery(r.URL.Query())
	if err != nil {
		s.respondDomainError(w, err, "search rankings")
		return
	}

	res, err := s.rankings.Search(r.Context(), q)
	if err != nil {
		s.respondDomainError(w, err, "search rankings")
		return
	}

	items := make([]movieRow, 0, len(res.Rows))
	for _, m := range res.Rows {
		items = append(items, toMovieRow(m))
	}
	s.respondJSON(w, http.StatusOK, rankingResponse{
		TargetDate: res.TargetDate,
		DateLabel:  dateLabelFromToken(res.TargetDate),
		Count:      len(items),
		Items:      items,
		Error:      res.Error,
		Fallback:   res.Fallback,
		Stale:      res.Stale,
	})
}

// parseRankingQuery reads date, keyword, sort and limit. The date is checked
// by the ranking service.
func parseRankingQuery(query url.Values) (ranking.Query, error) {
	q := ranking.Query{
		Date:    strings.TrimSpace(query.Get("date")),
		Keyword: query.Get("keyword"),
	}
	var invalid []string

	order, err := ranking.ParseSort(query.Get("sort"))
	if err != nil {
		invalid = append(invalid, "sort")
	}
	q.Sort = order

	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 0 {
			invalid = append(invalid, "limit")
		} else {
			q.Limit = limit
		}
	}

	if len(invalid) > 0 {
		return ranking.Query{}, &domain.ValidationError{Fields: invalid}
	}
	return q, nil
}

func dateLabelFromToken(token string) string {
	t, err := time.Parse("20060102", token)
	if err != nil {
		return token
	}
	return format.DateLabel(t)
}

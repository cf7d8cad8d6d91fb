package domain

// Movie is one entry of a daily box-office ranking.
type Movie struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Rank          int     `json:"rank"`
	Release       string  `json:"release"`
	DailySales    int64   `json:"dailySales"`
	DailyAudience int64   `json:"dailyAudience"`
	TotalAudience int64   `json:"totalAudience"`
	IncreaseRate  float64 `json:"increaseRate"`
	ScreenCount   int64   `json:"screenCount"`

	// Presentation-only fields; the ranking API never fills them.
	Location string `json:"location"`
	Quote    string `json:"quote"`
	Cookie   string `json:"cookie"`
	Partners string `json:"partners"`
}

// MovieInfo is the subset of the movie-info endpoint the viewer uses.
type MovieInfo struct {
	Title   string
	Release string
}

// MovieMetadata is best-effort enrichment for a movie detail page.
type MovieMetadata struct {
	PosterPath *string `json:"posterPath"`
	Overview   string  `json:"overview"`
	TrailerKey *string `json:"trailerKey"`
}

// CloneMovies returns an independent copy of movies.
func CloneMovies(movies []Movie) []Movie {
	if movies == nil {
		return nil
	}
	out := make([]Movie, len(movies))
	copy(out, movies)
	return out
}

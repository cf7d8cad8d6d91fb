package ranking

import (
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
)

//go:embed seed/movies.json
var seedJSON []byte

var seedMovies = sync.OnceValue(func() []domain.Movie {
	var movies []domain.Movie
	if err := json.Unmarshal(seedJSON, &movies); err != nil {
		panic("ranking: invalid seed dataset: " + err.Error())
	}
	return movies
})

// Seed returns a copy of the bundled fallback dataset.
func Seed() []domain.Movie {
	return domain.CloneMovies(seedMovies())
}

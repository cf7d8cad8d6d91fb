package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/boxoffice-viewer/internal/detail"
	"github.com/Clark-Hu/boxoffice-viewer/internal/metadata"
)

const posterSize = "w500"

type detailResponse struct {
	Movie           movieRow          `json:"movie"`
	Metadata        *metadataResponse `json:"metadata"`
	MetadataLoading bool              `json:"metadataLoading"`
	Reviews         []reviewResponse  `json:"reviews"`
	ReviewsLoading  bool              `json:"reviewsLoading"`
	ReviewsError    string            `json:"reviewsError,omitempty"`
}

type metadataResponse struct {
	PosterPath *string `json:"posterPath"`
	PosterURL  string  `json:"posterUrl,omitempty"`
	Overview   string  `json:"overview"`
	TrailerKey *string `json:"trailerKey"`
	TrailerURL string  `json:"trailerUrl,omitempty"`
}

// handleMovieDetail waits up to DetailWaitMillis for metadata and reviews. Tasks
// still running at that point are reported through the loading flags.
func (s *Server) handleMovieDetail(w http.ResponseWriter, r *http.Request) {
	session, err := s.details.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, err, "load movie")
		return
	}
	defer session.Close()

	waitCtx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.DetailWaitMillis)*time.Millisecond)
	defer cancel()
	if err := session.Wait(waitCtx); err != nil {
		s.logger.WithField("movie_id", chi.URLParam(r, "id")).Debug("detail tasks still pending, returning placeholders")
	}

	s.respondJSON(w, http.StatusOK, toDetailResponse(session.Snapshot()))
}

func toDetailResponse(v detail.View) detailResponse {
	resp := detailResponse{
		Movie:           toMovieRow(v.Movie),
		MetadataLoading: v.MetadataLoading,
		Reviews:         make([]reviewResponse, 0, len(v.Reviews)),
		ReviewsLoading:  v.ReviewsLoading,
		ReviewsError:    v.ReviewsError,
	}
	if v.Metadata != nil {
		resp.Metadata = &metadataResponse{
			PosterPath: v.Metadata.PosterPath,
			PosterURL:  metadata.PosterURL(v.Metadata.PosterPath, posterSize),
			Overview:   v.Metadata.Overview,
			TrailerKey: v.Metadata.TrailerKey,
			TrailerURL: metadata.TrailerURL(v.Metadata.TrailerKey),
		}
	}
	for _, rv := range v.Reviews {
		resp.Reviews = append(resp.Reviews, toReviewResponse(rv))
	}
	return resp
}

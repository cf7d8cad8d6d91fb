package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
)

// reviewFields are the editable parts of a review.
type reviewFields struct {
	Nickname  string          `json:"nickname"`
	Sex       domain.Sex      `json:"sex"`
	Age       domain.AgeGroup `json:"age"`
	Rating    int             `json:"rating"`
	Location  string          `json:"location"`
	Companion string          `json:"companion"`
	PCScene   bool            `json:"pcScene"`
	Quote     string          `json:"quote"`
	Review    string          `json:"review"`
}

func (f reviewFields) draft(movieID int, password string) domain.ReviewDraft {
	return domain.ReviewDraft{
		MovieID:   movieID,
		Nickname:  f.Nickname,
		Sex:       f.Sex,
		Age:       f.Age,
		Rating:    f.Rating,
		Location:  f.Location,
		Companion: f.Companion,
		PCScene:   f.PCScene,
		Quote:     f.Quote,
		Review:    f.Review,
		Password:  password,
	}
}

type reviewCreateRequest struct {
	reviewFields
	Password string `json:"password"`
}

// reviewUpdateRequest carries the current password for the gate. NewPassword
// replaces the stored one when set.
type reviewUpdateRequest struct {
	reviewFields
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

type reviewDeleteRequest struct {
	Password string `json:"password"`
}

// reviewResponse never includes the password.
type reviewResponse struct {
	ID        string `json:"id"`
	MovieID   int    `json:"movieID"`
	Nickname  string `json:"nickname"`
	Sex       string `json:"sex"`
	Age       int    `json:"age"`
	AgeLabel  string `json:"ageLabel"`
	Rating    int    `json:"rating"`
	Location  string `json:"location"`
	Companion string `json:"companion"`
	PCScene   bool   `json:"pcScene"`
	Quote     string `json:"quote"`
	Review    string `json:"review"`
}

type reviewListResponse struct {
	Items []reviewResponse `json:"items"`
}

type reviewCreateResponse struct {
	Review  reviewResponse `json:"review"`
	Message string         `json:"message"`
}

func toReviewResponse(r domain.Review) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		MovieID:   r.MovieID,
		Nickname:  r.Nickname,
		Sex:       string(r.Sex),
		Age:       int(r.Age),
		AgeLabel:  r.Age.String(),
		Rating:    r.Rating,
		Location:  r.Location,
		Companion: r.Companion,
		PCScene:   r.PCScene,
		Quote:     r.Quote,
		Review:    r.Review,
	}
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	movieID, err := domain.ParseMovieID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, &domain.ValidationError{Fields: []string{"movieID"}}, "list reviews")
		return
	}

	list, err := s.reviews.List(r.Context(), movieID)
	if err != nil {
		s.respondDomainError(w, err, "list reviews")
		return
	}
	items := make([]reviewResponse, 0, len(list))
	for _, rv := range list {
		items = append(items, toReviewResponse(rv))
	}
	s.respondJSON(w, http.StatusOK, reviewListResponse{Items: items})
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	movieID, err := domain.ParseMovieID(rawID)
	if err != nil {
		s.respondDomainError(w, &domain.ValidationError{Fields: []string{"movieID"}}, "create review")
		return
	}

	var req reviewCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	saved, err := s.reviews.Create(r.Context(), req.draft(movieID, req.Password))
	if err != nil {
		s.respondDomainError(w, err, "create review")
		return
	}

	title := ""
	if movie, err := s.details.Resolve(r.Context(), rawID); err == nil {
		title = movie.Title
	} else if !errors.Is(err, domain.ErrMovieNotFound) {
		s.logger.WithError(err).Debug("resolve movie title for review message")
	}

	w.Header().Set("Location", fmt.Sprintf("/reviews/%s", saved.ID))
	s.respondJSON(w, http.StatusCreated, reviewCreateResponse{
		Review:  toReviewResponse(saved),
		Message: fmt.Sprintf("Review submitted successfully! (Movie: %s, Rating: %d)", title, saved.Rating),
	})
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	existing, err := s.reviews.Get(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		s.respondDomainError(w, err, "update review")
		return
	}

	password := req.NewPassword
	if password == "" {
		password = req.Password
	}
	updated, err := s.reviews.Update(r.Context(), existing, req.draft(existing.MovieID, password), req.Password)
	if err != nil {
		s.respondDomainError(w, err, "update review")
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(updated))
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	var req reviewDeleteRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	existing, err := s.reviews.Get(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		s.respondDomainError(w, err, "delete review")
		return
	}
	if err := s.reviews.Delete(r.Context(), existing, req.Password); err != nil {
		s.respondDomainError(w, err, "delete review")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinReviewLength   = 10
	MinPasswordLength = 4
	MinRating         = 1
	MaxRating         = 5
)

// Sex is the reviewer's self-reported sex.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

func (s Sex) valid() bool {
	return s == SexMale || s == SexFemale
}

// AgeGroup buckets the reviewer's age by decade. AgeGroup50Plus covers everyone from 50 up.
// On the wire it is the bucket's lower bound as an integer.
type AgeGroup int

const (
	AgeGroup10     AgeGroup = 10
	AgeGroup20     AgeGroup = 20
	AgeGroup30     AgeGroup = 30
	AgeGroup40     AgeGroup = 40
	AgeGroup50Plus AgeGroup = 50
)

// ParseAgeGroup accepts "10".."40", "50" and "50+".
func ParseAgeGroup(raw string) (AgeGroup, error) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "+")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid age group %q", raw)
	}
	g := AgeGroup(n)
	if !g.valid() {
		return 0, fmt.Errorf("invalid age group %q", raw)
	}
	return g, nil
}

func (g AgeGroup) valid() bool {
	switch g {
	case AgeGroup10, AgeGroup20, AgeGroup30, AgeGroup40, AgeGroup50Plus:
		return true
	}
	return false
}

func (g AgeGroup) String() string {
	if g == AgeGroup50Plus {
		return "50+"
	}
	return strconv.Itoa(int(g))
}

// UnmarshalJSON accepts either the integer form or the "50+" label.
func (g *AgeGroup) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*g = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*g = AgeGroup(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("age: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*g = 0
		return nil
	}
	parsed, err := ParseAgeGroup(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ReviewDraft is the user-supplied part of a review.
type ReviewDraft struct {
	MovieID   int      `json:"movieID"`
	Nickname  string   `json:"nickname"`
	Sex       Sex      `json:"sex"`
	Age       AgeGroup `json:"age"`
	Rating    int      `json:"rating"`
	Location  string   `json:"location"`
	Companion string   `json:"companion"`
	PCScene   bool     `json:"pcScene"`
	Quote     string   `json:"quote"`
	Review    string   `json:"review"`
	Password  string   `json:"password"`
}

// Review is a stored review; ID is assigned by the review collection.
type Review struct {
	ID string `json:"id"`
	ReviewDraft
}

// Validate reports every field that blocks submission.
func (d ReviewDraft) Validate() error {
	var fields []string
	if d.MovieID <= 0 {
		fields = append(fields, "movieID")
	}
	if strings.TrimSpace(d.Nickname) == "" {
		fields = append(fields, "nickname")
	}
	if !d.Sex.valid() {
		fields = append(fields, "sex")
	}
	if !d.Age.valid() {
		fields = append(fields, "age")
	}
	if d.Rating < MinRating || d.Rating > MaxRating {
		fields = append(fields, "rating")
	}
	if utf8.RuneCountInString(d.Review) < MinReviewLength {
		fields = append(fields, fmt.Sprintf("review (min. %d characters)", MinReviewLength))
	}
	if utf8.RuneCountInString(d.Password) < MinPasswordLength {
		fields = append(fields, fmt.Sprintf("password (min. %d characters)", MinPasswordLength))
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CheckPassword gates edit and delete. Plain equality against the stored value.
func (r Review) CheckPassword(candidate string) error {
	if r.Password != candidate {
		return ErrAuthMismatch
	}
	return nil
}

// ParseMovieID interprets a movie id as the integer key reviews are stored under.
func ParseMovieID(id string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("movie id %q is not a positive integer", id)
	}
	return n, nil
}

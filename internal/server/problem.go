package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HerbHall/rangeping/internal/addrrange"
	"github.com/HerbHall/rangeping/internal/history"
	"github.com/HerbHall/rangeping/internal/rangecache"
	"github.com/HerbHall/rangeping/internal/report"
	"github.com/HerbHall/rangeping/internal/sites"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound     = "https://rangeping.dev/problems/not-found"
	ProblemTypeBadRequest   = "https://rangeping.dev/problems/bad-request"
	ProblemTypeInvalidRange = "https://rangeping.dev/problems/invalid-range"
	ProblemTypeNotPinged    = "https://rangeping.dev/problems/not-pinged"
	ProblemTypeInternal     = "https://rangeping.dev/problems/internal-error"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: instance,
	})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeBadRequest,
		Title:    "Bad Request",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	})
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	})
}

// problemFor maps an engine error to its response.
func problemFor(err error, instance string) Problem {
	p := Problem{Detail: err.Error(), Instance: instance}
	switch {
	case errors.Is(err, addrrange.ErrInvalidInput):
		p.Type, p.Title, p.Status = ProblemTypeInvalidRange, "Invalid Range", http.StatusBadRequest
	case errors.Is(err, report.ErrEmptyResults):
		p.Type, p.Title, p.Status = ProblemTypeNotPinged, "Not Pinged", http.StatusConflict
	case errors.Is(err, history.ErrInvalidIdentifier):
		p.Type, p.Title, p.Status = ProblemTypeBadRequest, "Bad Request", http.StatusBadRequest
	case errors.Is(err, rangecache.ErrNotFound),
		errors.Is(err, history.ErrNotFound),
		errors.Is(err, sites.ErrUnknownSite):
		p.Type, p.Title, p.Status = ProblemTypeNotFound, "Not Found", http.StatusNotFound
	default:
		p.Type, p.Title, p.Status = ProblemTypeInternal, "Internal Server Error", http.StatusInternalServerError
	}
	return p
}

// writeError writes the problem response for err.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	WriteProblem(w, problemFor(err, r.URL.Path))
}

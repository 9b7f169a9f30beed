package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wavesplatform/operations-service/log"
	"github.com/wavesplatform/operations-service/updates"
)

// maxQueryLimit bounds the "limit" query parameter of GET /operations.
const maxQueryLimit = 100

// errInvalidAfter and errInvalidLimit are the two client-error cases
// GET /operations can report; anything else is an internal server error.
var (
	errInvalidAfter = errors.New("bad request: invalid 'after'")
	errInvalidLimit = errors.New("bad request: invalid 'limit'")
)

// PageInfo describes where a paginated response sits in its sequence.
type PageInfo struct {
	HasNextPage bool    `json:"has_next_page"`
	LastCursor  *string `json:"last_cursor"`
}

// OperationsResponse is the GET /operations response body.
type OperationsResponse struct {
	PageInfo PageInfo    `json:"page_info"`
	Items    []Operation `json:"items"`
}

// Server is the read-only operations HTTP API.
type Server struct {
	repo Repo
	log  log.Logger
}

// NewServer builds a Server over repo.
func NewServer(repo Repo, logger log.Logger) *Server {
	return &Server{repo: repo, log: logger}
}

// Router builds the chi router backing this server: health endpoints
// plus GET /operations.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/livez", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/startz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/operations", s.handleGetOperations)

	return r
}

func (s *Server) handleGetOperations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := uint32(maxQueryLimit)
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || parsed > maxQueryLimit {
			s.writeError(w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = uint32(parsed)
	}

	var start *int64
	if raw := query.Get("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, errInvalidAfter)
			return
		}
		start = &parsed
	}

	var sender *string
	if raw := query.Get("sender"); raw != "" {
		sender = &raw
	}

	var opTypes []updates.OperationType
	if raw := query.Get("type__in"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			opTypes = append(opTypes, updates.OperationType(t))
		}
	}

	operations, next, err := s.repo.FetchOperations(r.Context(), opTypes, sender, Page{Start: start, Limit: limit})
	if err != nil {
		s.log.Error("internal error", "error", err)
		s.writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
		return
	}
	s.log.Debug("fetched operations", "count", len(operations))

	var lastCursor *string
	if next != nil {
		v := strconv.FormatInt(*next, 10)
		lastCursor = &v
	}

	response := OperationsResponse{
		PageInfo: PageInfo{HasNextPage: next != nil, LastCursor: lastCursor},
		Items:    operations,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(err.Error()))
}

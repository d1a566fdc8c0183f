package api

import (
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type gameRequest struct {
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	ReleaseDate *catalog.Date `json:"release_date"`
	PublisherID *int64        `json:"publisher_id"`
	DeveloperID *int64        `json:"developer_id"`
}

func (g gameRequest) validate() error {
	if strings.TrimSpace(g.Slug) == "" {
		return errors.New("slug is required")
	}
	if strings.TrimSpace(g.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPageSize, 1, maxPageSize)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0, 0, math.MaxInt32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	games, err := s.deps.Games.ListGames(r.Context(), limit, offset)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, games)
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.deps.Games.GetGame(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, game)
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.deps.Games.CreateGame(r.Context(), catalog.Game{
		Slug:        strings.TrimSpace(req.Slug),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ReleaseDate: req.ReleaseDate,
		PublisherID: req.PublisherID,
		DeveloperID: req.DeveloperID,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, game)
}

func (s *Server) updateGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var update catalog.GameUpdate
	if err := decodeJSON(r, &update); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		s.writeError(w, http.StatusBadRequest, "title must not be empty")
		return
	}
	game, err := s.deps.Games.UpdateGame(r.Context(), id, update)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, game)
}

func (s *Server) deleteGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Games.DeleteGame(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAllGames(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Games.DeleteAllGames(r.Context()); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"fmt"
	"net/http"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

type linkRequest struct {
	GameID     int64 `json:"game_id"`
	GenreID    int64 `json:"genre_id"`
	PlatformID int64 `json:"platform_id"`
}

// linkHandlers serves one association table. Links are addressed by the
// pair of ids they join.
type linkHandlers struct {
	server *Server
	kind   catalog.LinkKind
}

func (h linkHandlers) render(link catalog.GameLink) map[string]int64 {
	return map[string]int64{"game_id": link.GameID, h.kind.Column(): link.EntityID}
}

func (h linkHandlers) list(w http.ResponseWriter, r *http.Request) {
	gameID, err := queryGameID(r)
	if err != nil {
		h.server.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	links, err := h.server.deps.Links.ListLinks(r.Context(), h.kind, gameID)
	if err != nil {
		h.server.writeErr(w, r, err)
		return
	}
	out := make([]map[string]int64, 0, len(links))
	for _, link := range links {
		out = append(out, h.render(link))
	}
	h.server.writeJSON(w, http.StatusOK, out)
}

func (h linkHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(r, &req); err != nil {
		h.server.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entityID := req.GenreID
	if h.kind == catalog.LinkPlatforms {
		entityID = req.PlatformID
	}
	if req.GameID <= 0 || entityID <= 0 {
		h.server.writeError(w, http.StatusBadRequest, fmt.Sprintf("game_id and %s are required", h.kind.Column()))
		return
	}
	link := catalog.GameLink{GameID: req.GameID, EntityID: entityID}
	if err := h.server.deps.Links.CreateLink(r.Context(), h.kind, link); err != nil {
		h.server.writeErr(w, r, err)
		return
	}
	h.server.writeJSON(w, http.StatusCreated, h.render(link))
}

func (h linkHandlers) delete(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathInt(r, "game_id")
	if err != nil {
		h.server.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entityID, err := pathInt(r, "entity_id")
	if err != nil {
		h.server.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	link := catalog.GameLink{GameID: gameID, EntityID: entityID}
	if err := h.server.deps.Links.DeleteLink(r.Context(), h.kind, link); err != nil {
		h.server.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h linkHandlers) deleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.server.deps.Links.DeleteAllLinks(r.Context(), h.kind); err != nil {
		h.server.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"
	"strings"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

type entityRequest struct {
	Name    string  `json:"name"`
	Website *string `json:"website"`
}

// entityHandlers serves CRUD for one lookup table.
type entityHandlers struct {
	server *Server
	kind   catalog.EntityKind
}

func (h entityHandlers) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.server.deps.Entities.ListEntities(r.Context(), h.kind)
	if err != nil {
		h.server.writeErr(w, r, err)
		return
	}
	h.server.writeJSON(w, http.StatusOK, out)
}

func (h entityHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.server.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entity, err := h.server.deps.Entities.GetEntity(r.Context(), h.kind, id)
	if err != nil {
		h.server.writeErr(w, r, err)
		return
	}
	h.server.writeJSON(w, http.StatusOK, entity)
}

func (h entityHandlers) create(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.server.deps.Entities.CreateEntity(r.Context(), h.kind, entity)
	if err != nil {
		h.server.writeErr(w, r, err)
		return
	}
	h.server.writeJSON(w, http.StatusCreated, created)
}

func (h entityHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.server.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entity, ok := h.decode(w, r)
	if !ok {
		return
	}
	updated, err := h.server.deps.Entities.UpdateEntity(r.Context(), h.kind, id, entity)
	if err != nil {
		h.server.writeErr(w, r, err)
		return
	}
	h.server.writeJSON(w, http.StatusOK, updated)
}

func (h entityHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.server.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.server.deps.Entities.DeleteEntity(r.Context(), h.kind, id); err != nil {
		h.server.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h entityHandlers) decode(w http.ResponseWriter, r *http.Request) (catalog.NamedEntity, bool) {
	var req entityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.server.writeError(w, http.StatusBadRequest, err.Error())
		return catalog.NamedEntity{}, false
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.server.writeError(w, http.StatusBadRequest, "name is required")
		return catalog.NamedEntity{}, false
	}
	return catalog.NamedEntity{Name: name, Website: req.Website}, true
}

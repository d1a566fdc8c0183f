package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

type offerRequest struct {
	GameID               int64      `json:"game_id"`
	OriginalPriceCents   *int       `json:"original_price_cents"`
	DiscountedPriceCents *int       `json:"discounted_price_cents"`
	Currency             string     `json:"currency"`
	StartsAt             *time.Time `json:"starts_at"`
	EndsAt               *time.Time `json:"ends_at"`
	ScrapedAt            *time.Time `json:"scraped_at"`
}

func (o offerRequest) validate() error {
	if (o.OriginalPriceCents != nil && *o.OriginalPriceCents < 0) ||
		(o.DiscountedPriceCents != nil && *o.DiscountedPriceCents < 0) {
		return errors.New("prices must not be negative")
	}
	if len(strings.TrimSpace(o.Currency)) > 8 {
		return errors.New("currency must be at most 8 characters")
	}
	if o.StartsAt != nil && o.EndsAt != nil && o.EndsAt.Before(*o.StartsAt) {
		return errors.New("ends_at must not be before starts_at")
	}
	return nil
}

func (o offerRequest) offer() catalog.PriceOffer {
	return catalog.PriceOffer{
		GameID:               o.GameID,
		OriginalPriceCents:   o.OriginalPriceCents,
		DiscountedPriceCents: o.DiscountedPriceCents,
		Currency:             strings.ToUpper(strings.TrimSpace(o.Currency)),
		StartsAt:             o.StartsAt,
		EndsAt:               o.EndsAt,
		ScrapedAt:            o.ScrapedAt,
	}
}

func (s *Server) listOffers(w http.ResponseWriter, r *http.Request) {
	gameID, err := queryGameID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offers, err := s.deps.Offers.ListPriceOffers(r.Context(), gameID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, offers)
}

func (s *Server) getOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offer, err := s.deps.Offers.GetPriceOffer(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, offer)
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeOffer(w, r)
	if !ok {
		return
	}
	if req.GameID <= 0 {
		s.writeError(w, http.StatusBadRequest, "game_id is required")
		return
	}
	offer, err := s.deps.Offers.CreatePriceOffer(r.Context(), req.offer())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, offer)
}

func (s *Server) updateOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, ok := s.decodeOffer(w, r)
	if !ok {
		return
	}
	offer, err := s.deps.Offers.UpdatePriceOffer(r.Context(), id, req.offer())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, offer)
}

func (s *Server) deleteOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Offers.DeletePriceOffer(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAllOffers(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Offers.DeleteAllPriceOffers(r.Context()); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeOffer(w http.ResponseWriter, r *http.Request) (offerRequest, bool) {
	var req offerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return offerRequest{}, false
	}
	if err := req.validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return offerRequest{}, false
	}
	return req, true
}

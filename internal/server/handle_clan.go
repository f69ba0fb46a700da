package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kameleongame/kameleon/internal/kameleon"
)

type ClanRequest struct {
	Name string `json:"name"`
}

type ClanResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Elo         float64 `json:"elo"`
	MemberCount int     `json:"memberCount"`
}

func clanResponse(c kameleon.Clan) ClanResponse {
	return ClanResponse{ID: c.ID, Name: c.Name, Elo: c.Elo, MemberCount: c.MemberCount}
}

func handleClanCreate(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req ClanRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "clan name is required")
			return
		}

		clan, err := store.CreateClan(r.Context(), req.Name)
		if errors.Is(err, ErrDuplicate) {
			writeError(w, http.StatusConflict, "a clan with this name already exists")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// The founder joins their own clan right away.
		if err := store.JoinClan(r.Context(), sess.UserID, clan.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := store.RefreshClanElo(r.Context(), clan.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		clan.MemberCount = 1
		writeJSON(w, http.StatusCreated, clanResponse(clan))
	}
}

func handleClanJoin(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req ClanRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		clan, err := store.ClanByName(r.Context(), strings.TrimSpace(req.Name))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "clan not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := store.JoinClan(r.Context(), sess.UserID, clan.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := store.RefreshClanElo(r.Context(), clan.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		clan.MemberCount++
		writeJSON(w, http.StatusOK, clanResponse(clan))
	}
}

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kameleongame/kameleon/internal/kameleon"
)

// RiddleItem deliberately omits the expected response.
type RiddleItem struct {
	ID           int64   `json:"id"`
	Type         string  `json:"type"`
	Variable     string  `json:"variable"`
	Difficulty   int     `json:"difficulty"`
	Theme        string  `json:"theme"`
	Points       int     `json:"points"`
	Mode         string  `json:"mode"`
	Dependencies []int64 `json:"dependencies,omitempty"`
}

func riddleItem(r kameleon.Riddle) RiddleItem {
	return RiddleItem{
		ID:           r.ID,
		Type:         r.Type,
		Variable:     r.Variable,
		Difficulty:   r.Difficulty,
		Theme:        r.Theme,
		Points:       r.Points,
		Mode:         string(r.Mode),
		Dependencies: r.Dependencies,
	}
}

func handleRiddleList(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		riddles, err := store.ListRiddles(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]RiddleItem, 0, len(riddles))
		for _, riddle := range riddles {
			items = append(items, riddleItem(riddle))
		}
		writeJSON(w, http.StatusOK, map[string]any{"riddles": items})
	}
}

func handleRiddleDetail(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid riddle id")
			return
		}

		riddle, err := store.RiddleByID(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "riddle not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, riddleItem(riddle))
	}
}

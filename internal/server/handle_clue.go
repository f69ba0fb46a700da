package server

import (
	"errors"
	"net/http"
)

type ClueRequest struct {
	RiddleID int64 `json:"riddle_id"`
	Clue     int   `json:"clue"`
}

type ClueResponse struct {
	Hint string `json:"hint"`
}

func handleClue(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req ClueRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		hint, err := engine.RevealClue(r.Context(), sess.UserID, req.RiddleID, req.Clue)
		switch {
		case errors.Is(err, ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "riddle or clue not found")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, ClueResponse{Hint: hint})
	}
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kameleongame/kameleon/internal/kameleon"
)

type SolveRequest struct {
	RiddleID int64           `json:"riddle_id"`
	Response json.RawMessage `json:"response"`
}

type SolveResponse struct {
	IsSolved bool    `json:"is_solved"`
	Message  string  `json:"message"`
	Points   float64 `json:"points,omitempty"`
	Rank     string  `json:"rank,omitempty"`
}

func handleSolve(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req SolveRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := engine.SubmitAnswer(r.Context(), sess.UserID, req.RiddleID, req.Response, kameleon.ModeSolo)
		if !writeSolve(w, result, err) {
			return
		}
	}
}

func handleCoopSolve(engine *Engine, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req SolveRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := engine.SubmitAnswer(r.Context(), sess.UserID, req.RiddleID, req.Response, kameleon.ModeCoop)
		if !writeSolve(w, result, err) {
			return
		}

		if result.Solved {
			broker.Publish(coopGroup(req.RiddleID), coopEvent{
				Type:     "riddle_solved",
				Username: sess.Username,
				RiddleID: req.RiddleID,
			})
		}
	}
}

// writeSolve maps a SubmitAnswer outcome onto the wire. Returns false when
// an error response was written.
func writeSolve(w http.ResponseWriter, result SolveResult, err error) bool {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "riddle not found")
		return false
	case errors.Is(err, ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return false
	}

	resp := SolveResponse{IsSolved: result.Solved, Points: result.Points}
	if result.Solved {
		resp.Message = "riddle solved"
		resp.Rank = result.RankName
	} else {
		resp.Message = "wrong answer"
	}
	writeJSON(w, http.StatusOK, resp)
	return true
}

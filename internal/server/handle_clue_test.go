package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestClueEndpoint(t *testing.T) {
	r, store := newTestRouter(t)
	member := createTestMember(t, store, "maria")
	auth := authHeader(t, member, "maria")

	w := doJSON(t, r, http.MethodPost, "/api/riddles/clue", auth,
		ClueRequest{RiddleID: 1, Clue: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("clue: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ClueResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Hint != "first hint" {
		t.Errorf("expected first hint, got %q", resp.Hint)
	}

	// Solving afterwards takes the 25% penalty for one revealed clue.
	w = doJSON(t, r, http.MethodPost, "/api/riddles/solve", auth,
		SolveRequest{RiddleID: 1, Response: json.RawMessage(`"alpha"`)})
	var solve SolveResponse
	json.NewDecoder(w.Body).Decode(&solve)
	if solve.Points != 15 {
		t.Errorf("expected 15 points after one clue, got %v", solve.Points)
	}
}

func TestClueEndpointErrors(t *testing.T) {
	r, store := newTestRouter(t)
	member := createTestMember(t, store, "maria")
	auth := authHeader(t, member, "maria")

	w := doJSON(t, r, http.MethodPost, "/api/riddles/clue", auth,
		ClueRequest{RiddleID: 1, Clue: 4})
	if w.Code != http.StatusBadRequest {
		t.Errorf("clue index 4: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/riddles/clue", auth,
		ClueRequest{RiddleID: 999, Clue: 1})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown riddle: expected 404, got %d", w.Code)
	}

	// Riddle 2 exists but has no clues.
	w = doJSON(t, r, http.MethodPost, "/api/riddles/clue", auth,
		ClueRequest{RiddleID: 2, Clue: 1})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing clue: expected 404, got %d", w.Code)
	}
}

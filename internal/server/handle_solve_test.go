package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestSolveEndpoint(t *testing.T) {
	r, store := newTestRouter(t)
	member := createTestMember(t, store, "maria")
	auth := authHeader(t, member, "maria")

	w := doJSON(t, r, http.MethodPost, "/api/riddles/solve", auth,
		SolveRequest{RiddleID: 1, Response: json.RawMessage(`"alpha"`)})
	if w.Code != http.StatusOK {
		t.Fatalf("solve: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp SolveResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.IsSolved || resp.Points != 20 {
		t.Fatalf("unexpected solve response: %+v", resp)
	}

	w = doJSON(t, r, http.MethodPost, "/api/riddles/solve", auth,
		SolveRequest{RiddleID: 2, Response: json.RawMessage(`"nope"`)})
	if w.Code != http.StatusOK {
		t.Fatalf("wrong answer: expected 200, got %d", w.Code)
	}
	resp = SolveResponse{}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.IsSolved {
		t.Error("expected wrong answer to report unsolved")
	}
}

func TestSolveEndpointErrors(t *testing.T) {
	r, store := newTestRouter(t)
	member := createTestMember(t, store, "maria")
	auth := authHeader(t, member, "maria")

	w := doJSON(t, r, http.MethodPost, "/api/riddles/solve", auth,
		SolveRequest{RiddleID: 999, Response: json.RawMessage(`"x"`)})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown riddle: expected 404, got %d", w.Code)
	}

	// A coop riddle on the solo endpoint is a mode mismatch.
	w = doJSON(t, r, http.MethodPost, "/api/riddles/solve", auth,
		SolveRequest{RiddleID: 3, Response: json.RawMessage(`{"value": "green"}`)})
	if w.Code != http.StatusBadRequest {
		t.Errorf("mode mismatch: expected 400, got %d", w.Code)
	}
}

func TestCoopSolveEndpoint(t *testing.T) {
	r, store := newTestRouter(t)
	member := createTestMember(t, store, "maria")

	w := doJSON(t, r, http.MethodPost, "/api/riddles/coop/solve", authHeader(t, member, "maria"),
		SolveRequest{RiddleID: 3, Response: json.RawMessage(`{"value": "green"}`)})
	if w.Code != http.StatusOK {
		t.Fatalf("coop solve: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp SolveResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.IsSolved || resp.Points != 50 {
		t.Fatalf("unexpected coop solve response: %+v", resp)
	}
}

func TestMemberRiddleSets(t *testing.T) {
	r, store := newTestRouter(t)
	member := createTestMember(t, store, "maria")
	auth := authHeader(t, member, "maria")

	w := doJSON(t, r, http.MethodGet, "/api/members/maria/riddles", auth, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("riddles: expected 200, got %d", w.Code)
	}
	var sets MemberRiddlesResponse
	json.NewDecoder(w.Body).Decode(&sets)
	if len(sets.Locked) != 1 || sets.Locked[0] != 2 {
		t.Fatalf("expected riddle 2 locked at start, got %+v", sets)
	}

	doJSON(t, r, http.MethodPost, "/api/riddles/solve", auth,
		SolveRequest{RiddleID: 1, Response: json.RawMessage(`"alpha"`)})

	w = doJSON(t, r, http.MethodGet, "/api/members/maria/riddles", auth, nil)
	sets = MemberRiddlesResponse{}
	json.NewDecoder(w.Body).Decode(&sets)
	if len(sets.Achieved) != 1 || sets.Achieved[0] != 1 {
		t.Errorf("expected riddle 1 achieved, got %+v", sets.Achieved)
	}
	if len(sets.Locked) != 0 {
		t.Errorf("expected empty locked set after unlock, got %+v", sets.Locked)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	r, store := newTestRouter(t)
	member := createTestMember(t, store, "maria")
	auth := authHeader(t, member, "maria")

	doJSON(t, r, http.MethodPost, "/api/riddles/solve", auth,
		SolveRequest{RiddleID: 1, Response: json.RawMessage(`"wrong"`)})
	doJSON(t, r, http.MethodPost, "/api/riddles/solve", auth,
		SolveRequest{RiddleID: 1, Response: json.RawMessage(`"alpha"`)})

	w := doJSON(t, r, http.MethodGet, "/api/members/maria/dashboard", auth, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var d DashboardResponse
	json.NewDecoder(w.Body).Decode(&d)
	if d.Achieved != 1 {
		t.Errorf("expected 1 achieved, got %d", d.Achieved)
	}
	if len(d.Stats) != 1 {
		t.Fatalf("expected stats for one riddle, got %+v", d.Stats)
	}
	st := d.Stats[0]
	if st.Tries != 2 || st.Errors != 1 || st.Solves != 1 || st.FirstSolvedAt == nil {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestRiddleListHidesResponse(t *testing.T) {
	r, store := newTestRouter(t)
	member := createTestMember(t, store, "maria")

	w := doJSON(t, r, http.MethodGet, "/api/riddles", authHeader(t, member, "maria"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}

	var raw map[string][]map[string]any
	json.NewDecoder(w.Body).Decode(&raw)
	riddles := raw["riddles"]
	if len(riddles) != 3 {
		t.Fatalf("expected 3 riddles, got %d", len(riddles))
	}
	for _, rd := range riddles {
		if _, leaked := rd["response"]; leaked {
			t.Fatalf("expected response to stay hidden, got %+v", rd)
		}
	}
}

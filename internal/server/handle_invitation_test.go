package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/kameleongame/kameleon/internal/kameleon"
)

func TestInviteAndAccept(t *testing.T) {
	r, store := newTestRouter(t)
	inviter := createTestMember(t, store, "maria")
	invitee := createTestMember(t, store, "jules")

	w := doJSON(t, r, http.MethodPost, "/api/invitations", authHeader(t, inviter, "maria"),
		InviteRequest{RiddleID: 3, InviteeUsername: "jules"})
	if w.Code != http.StatusCreated {
		t.Fatalf("invite: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var inv InvitationResponse
	json.NewDecoder(w.Body).Decode(&inv)
	if inv.Status != "pending" || inv.Inviter != "maria" || inv.Invitee != "jules" {
		t.Fatalf("unexpected invitation: %+v", inv)
	}

	// The invitee sees it as pending.
	w = doJSON(t, r, http.MethodGet, "/api/invitations/received", authHeader(t, invitee, "jules"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("received: expected 200, got %d", w.Code)
	}
	var received struct {
		Invitations []InvitationResponse `json:"invitations"`
	}
	json.NewDecoder(w.Body).Decode(&received)
	if len(received.Invitations) != 1 || received.Invitations[0].ID != inv.ID {
		t.Fatalf("expected the pending invitation, got %+v", received.Invitations)
	}

	// Only the invitee may respond.
	w = doJSON(t, r, http.MethodPost, "/api/invitations/"+inv.ID+"/respond",
		authHeader(t, inviter, "maria"), RespondRequest{Response: "accept"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("inviter respond: expected 403, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/invitations/"+inv.ID+"/respond",
		authHeader(t, invitee, "jules"), RespondRequest{Response: "accept"})
	if w.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Responding twice is refused.
	w = doJSON(t, r, http.MethodPost, "/api/invitations/"+inv.ID+"/respond",
		authHeader(t, invitee, "jules"), RespondRequest{Response: "reject"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("second respond: expected 400, got %d", w.Code)
	}
}

func TestInviteValidation(t *testing.T) {
	r, store := newTestRouter(t)
	inviter := createTestMember(t, store, "maria")
	createTestMember(t, store, "jules")
	auth := authHeader(t, inviter, "maria")

	// Solo riddles cannot host a coop session.
	w := doJSON(t, r, http.MethodPost, "/api/invitations", auth,
		InviteRequest{RiddleID: 1, InviteeUsername: "jules"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("solo riddle: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/invitations", auth,
		InviteRequest{RiddleID: 3, InviteeUsername: "maria"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("self invite: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/invitations", auth,
		InviteRequest{RiddleID: 3, InviteeUsername: "ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown invitee: expected 404, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/invitations", auth,
		InviteRequest{RiddleID: 999, InviteeUsername: "jules"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown riddle: expected 404, got %d", w.Code)
	}
}

func TestInviteDuplicatePending(t *testing.T) {
	r, store := newTestRouter(t)
	inviter := createTestMember(t, store, "maria")
	createTestMember(t, store, "jules")
	auth := authHeader(t, inviter, "maria")

	req := InviteRequest{RiddleID: 3, InviteeUsername: "jules"}
	if w := doJSON(t, r, http.MethodPost, "/api/invitations", auth, req); w.Code != http.StatusCreated {
		t.Fatalf("first invite: expected 201, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/invitations", auth, req); w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate invite: expected 400, got %d", w.Code)
	}
}

func TestRejectLeavesNoRosterEntry(t *testing.T) {
	r, store := newTestRouter(t)
	inviter := createTestMember(t, store, "maria")
	invitee := createTestMember(t, store, "jules")

	w := doJSON(t, r, http.MethodPost, "/api/invitations", authHeader(t, inviter, "maria"),
		InviteRequest{RiddleID: 3, InviteeUsername: "jules"})
	var inv InvitationResponse
	json.NewDecoder(w.Body).Decode(&inv)

	w = doJSON(t, r, http.MethodPost, "/api/invitations/"+inv.ID+"/respond",
		authHeader(t, invitee, "jules"), RespondRequest{Response: "reject"})
	if w.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d", w.Code)
	}

	roster, err := store.CoopRoster(context.Background(), 3)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 0 {
		t.Errorf("expected empty roster after rejection, got %+v", roster)
	}

	// A fresh invitation is allowed once the old one is settled.
	w = doJSON(t, r, http.MethodPost, "/api/invitations", authHeader(t, inviter, "maria"),
		InviteRequest{RiddleID: 3, InviteeUsername: "jules"})
	if w.Code != http.StatusCreated {
		t.Fatalf("re-invite after reject: expected 201, got %d", w.Code)
	}
}

func TestRosterOrderAndLeader(t *testing.T) {
	r, store := newTestRouter(t)
	inviter := createTestMember(t, store, "maria")
	first := createTestMember(t, store, "jules")
	second := createTestMember(t, store, "ana")

	invite := func(username string, userID int64) {
		t.Helper()
		w := doJSON(t, r, http.MethodPost, "/api/invitations", authHeader(t, inviter, "maria"),
			InviteRequest{RiddleID: 3, InviteeUsername: username})
		if w.Code != http.StatusCreated {
			t.Fatalf("invite %s: expected 201, got %d", username, w.Code)
		}
		var inv InvitationResponse
		json.NewDecoder(w.Body).Decode(&inv)

		w = doJSON(t, r, http.MethodPost, "/api/invitations/"+inv.ID+"/respond",
			authHeader(t, userID, username), RespondRequest{Response: "accept"})
		if w.Code != http.StatusOK {
			t.Fatalf("accept %s: expected 200, got %d", username, w.Code)
		}
	}
	invite("jules", first)
	invite("ana", second)

	roster, err := store.CoopRoster(context.Background(), 3)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(roster))
	}
	if roster[0].Username != "jules" || roster[0].Role != kameleon.RoleLeader {
		t.Errorf("expected jules as leader, got %+v", roster[0])
	}
	if roster[1].Username != "ana" || roster[1].Role != kameleon.RoleMember {
		t.Errorf("expected ana as member, got %+v", roster[1])
	}
}

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kameleongame/kameleon/internal/kameleon"
)

type InviteRequest struct {
	RiddleID        int64  `json:"riddle_id"`
	InviteeUsername string `json:"invitee_username"`
}

type InvitationResponse struct {
	ID        string    `json:"id"`
	RiddleID  int64     `json:"riddleId"`
	Inviter   string    `json:"inviter"`
	Invitee   string    `json:"invitee"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func invitationResponse(inv kameleon.CoopInvitation) InvitationResponse {
	return InvitationResponse{
		ID:        inv.ID,
		RiddleID:  inv.RiddleID,
		Inviter:   inv.InviterName,
		Invitee:   inv.InviteeName,
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt,
	}
}

func handleInvite(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req InviteRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		riddle, err := store.RiddleByID(r.Context(), req.RiddleID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "riddle not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if riddle.Mode != kameleon.ModeCoop {
			writeError(w, http.StatusBadRequest, "riddle is not cooperative")
			return
		}

		invitee, err := store.UserByUsername(r.Context(), req.InviteeUsername)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "invitee not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if invitee.ID == sess.UserID {
			writeError(w, http.StatusBadRequest, "cannot invite yourself")
			return
		}

		pending, err := store.HasPendingInvitation(r.Context(), req.RiddleID, invitee.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if pending {
			writeError(w, http.StatusBadRequest, "this member already has a pending invitation for this riddle")
			return
		}

		inv, err := store.CreateInvitation(r.Context(), uuid.NewString(), req.RiddleID, sess.UserID, invitee.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Fire-and-forget: invitees without a live connection miss it and
		// rely on the received-invitations endpoint instead.
		broker.Publish(userGroup(invitee.ID), notificationEvent{
			Type:         "notification",
			Event:        "invitation_received",
			InvitationID: inv.ID,
			RiddleID:     inv.RiddleID,
			From:         inv.InviterName,
		})

		writeJSON(w, http.StatusCreated, invitationResponse(inv))
	}
}

func handleInvitationsReceived(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		invs, err := store.PendingInvitationsFor(r.Context(), sess.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]InvitationResponse, 0, len(invs))
		for _, inv := range invs {
			items = append(items, invitationResponse(inv))
		}
		writeJSON(w, http.StatusOK, map[string]any{"invitations": items})
	}
}

type RespondRequest struct {
	Response string `json:"response"`
}

func handleInvitationRespond(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req RespondRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Response != "accept" && req.Response != "reject" {
			writeError(w, http.StatusBadRequest, "response must be accept or reject")
			return
		}

		inv, err := store.InvitationByID(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "invitation not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if inv.InviteeID != sess.UserID {
			writeError(w, http.StatusForbidden, "only the invitee can respond")
			return
		}
		if inv.Status != kameleon.InvitationPending {
			writeError(w, http.StatusBadRequest, "invitation is no longer pending")
			return
		}

		if req.Response == "reject" {
			if err := store.SetInvitationStatus(r.Context(), inv.ID, kameleon.InvitationRejected); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "invitation rejected"})
			return
		}

		if err := store.SetInvitationStatus(r.Context(), inv.ID, kameleon.InvitationAccepted); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		roster, err := store.CoopRoster(r.Context(), inv.RiddleID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(coopGroup(inv.RiddleID), coopEvent{
			Type:     "member_joined",
			Username: inv.InviteeName,
			RiddleID: inv.RiddleID,
			Roster:   rosterPayload(roster),
		})

		writeJSON(w, http.StatusOK, map[string]string{"message": "invitation accepted"})
	}
}

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kameleongame/kameleon/internal/kameleon"
)

type MemberResponse struct {
	UserID    int64   `json:"userId"`
	Username  string  `json:"username"`
	Score     float64 `json:"score"`
	ClanScore float64 `json:"clanScore"`
	Clan      string  `json:"clan,omitempty"`
}

func memberResponse(m kameleon.Member) MemberResponse {
	return MemberResponse{
		UserID:    m.UserID,
		Username:  m.Username,
		Score:     m.Score,
		ClanScore: m.ClanScore,
		Clan:      m.ClanName,
	}
}

func handleMemberDetail(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		member, err := store.MemberByUserID(r.Context(), sess.UserID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, memberResponse(member))
	}
}

type MemberRiddlesResponse struct {
	Achieved     []int64 `json:"achievedRiddles"`
	Locked       []int64 `json:"lockedRiddles"`
	CoopAchieved []int64 `json:"achievedCoopRiddles"`
	CoopLocked   []int64 `json:"lockedCoopRiddles"`
}

func handleMemberRiddles(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")

		member, err := store.MemberByUsername(r.Context(), username)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		var resp MemberRiddlesResponse
		for _, q := range []struct {
			mode   kameleon.RiddleMode
			status kameleon.RiddleStatus
			dest   *[]int64
		}{
			{kameleon.ModeSolo, kameleon.StatusAchieved, &resp.Achieved},
			{kameleon.ModeSolo, kameleon.StatusLocked, &resp.Locked},
			{kameleon.ModeCoop, kameleon.StatusAchieved, &resp.CoopAchieved},
			{kameleon.ModeCoop, kameleon.StatusLocked, &resp.CoopLocked},
		} {
			ids, err := store.MemberRiddleIDs(r.Context(), member.UserID, q.mode, q.status)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			*q.dest = ids
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

type RiddleStatsItem struct {
	RiddleID      int64      `json:"riddleId"`
	Tries         int        `json:"tries"`
	Errors        int        `json:"errors"`
	Solves        int        `json:"solves"`
	FirstSolvedAt *time.Time `json:"firstSolvedAt,omitempty"`
}

type DashboardResponse struct {
	Member       MemberResponse    `json:"member"`
	Rank         string            `json:"rank"`
	Achieved     int               `json:"achievedCount"`
	Locked       int               `json:"lockedCount"`
	CoopAchieved int               `json:"achievedCoopCount"`
	CoopLocked   int               `json:"lockedCoopCount"`
	Stats        []RiddleStatsItem `json:"stats"`
}

func handleMemberDashboard(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")

		data, err := store.Dashboard(r.Context(), username)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := DashboardResponse{
			Member:       memberResponse(data.Member),
			Rank:         data.RankName,
			Achieved:     data.Achieved,
			Locked:       data.Locked,
			CoopAchieved: data.CoopAchieved,
			CoopLocked:   data.CoopLocked,
			Stats:        make([]RiddleStatsItem, 0, len(data.Stats)),
		}
		for _, st := range data.Stats {
			resp.Stats = append(resp.Stats, RiddleStatsItem{
				RiddleID:      st.RiddleID,
				Tries:         st.Tries,
				Errors:        st.Errors,
				Solves:        st.Solves,
				FirstSolvedAt: st.FirstSolvedAt,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

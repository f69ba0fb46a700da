package server

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Rank      string    `json:"rank"`
	HasCV     bool      `json:"hasCv"`
	CreatedAt time.Time `json:"createdAt"`
}

func handleUserDetail(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		user, err := store.UserByID(r.Context(), sess.UserID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, UserResponse{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Rank:      user.RankName,
			HasCV:     user.CVPath != "",
			CreatedAt: user.CreatedAt,
		})
	}
}

type UserUpdateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func handleUserUpdate(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req UserUpdateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)
		if req.Username == "" || req.Email == "" {
			writeError(w, http.StatusBadRequest, "username and email are required")
			return
		}
		if !strings.Contains(req.Email, "@") {
			writeError(w, http.StatusBadRequest, "malformed email address")
			return
		}

		err := store.UpdateUser(r.Context(), sess.UserID, req.Username, req.Email)
		if errors.Is(err, ErrDuplicate) {
			writeError(w, http.StatusConflict, "username or email already taken")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "profile updated"})
	}
}

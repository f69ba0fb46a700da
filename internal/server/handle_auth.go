package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-chi/chi/v5"
)

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

func handleSignup(logger *slog.Logger, store Store, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)
		if req.Username == "" || req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username, email and password are required")
			return
		}
		if !strings.Contains(req.Email, "@") {
			writeError(w, http.StatusBadRequest, "malformed email address")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		id, err := store.CreateUser(r.Context(), req.Username, req.Email, string(hash))
		if errors.Is(err, ErrDuplicate) {
			writeError(w, http.StatusConflict, "username or email already taken")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// The gameplay profile is created right here, at the end of
		// registration, not by a persistence hook.
		if err := store.CreateMember(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := newActivationToken(jwtSecret, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		// Mail delivery is an external concern; the activation link is
		// logged so operators can forward it.
		logger.Info("activation link issued",
			"user_id", id,
			"link", "/api/auth/activate/"+strconv.FormatInt(id, 10)+"/"+token,
		)

		writeJSON(w, http.StatusCreated, SignupResponse{
			ID:       id,
			Username: req.Username,
			Message:  "account created, check your email to activate it",
		})
	}
}

func handleActivate(store Store, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user id")
			return
		}

		sess, err := parseToken(jwtSecret, chi.URLParam(r, "token"), tokenPurposeActivate)
		if err != nil || sess.UserID != userID {
			writeError(w, http.StatusUnauthorized, "invalid activation token")
			return
		}

		if err := store.ActivateUser(r.Context(), userID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "user not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "account activated"})
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func handleLogin(store Store, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		creds, err := store.Credentials(r.Context(), req.Username)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "bad credentials")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "bad credentials")
			return
		}
		if !creds.IsActive {
			writeError(w, http.StatusUnauthorized, "account is not activated")
			return
		}

		token, err := newSessionToken(jwtSecret, creds.UserID, creds.Username)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{Token: token, Username: creds.Username})
	}
}

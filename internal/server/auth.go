package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type session struct {
	UserID   int64
	Username string
}

var errNoSession = errors.New("no valid session")

const (
	tokenPurposeSession  = "session"
	tokenPurposeActivate = "activate"

	sessionTokenTTL    = 7 * 24 * time.Hour
	activationTokenTTL = 48 * time.Hour
)

type authClaims struct {
	Username string `json:"username,omitempty"`
	Purpose  string `json:"purpose"`
	jwt.RegisteredClaims
}

func newSessionToken(secret string, userID int64, username string) (string, error) {
	return signToken(secret, userID, username, tokenPurposeSession, sessionTokenTTL)
}

// newActivationToken mints the token embedded in the account activation
// link mailed (well, logged) to new users.
func newActivationToken(secret string, userID int64) (string, error) {
	return signToken(secret, userID, "", tokenPurposeActivate, activationTokenTTL)
}

func signToken(secret string, userID int64, username, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := authClaims{
		Username: username,
		Purpose:  purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, tokenString, purpose string) (session, error) {
	var claims authClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || claims.Purpose != purpose {
		return session{}, errNoSession
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return session{}, errNoSession
	}
	return session{UserID: userID, Username: claims.Username}, nil
}

// sessionFromRequest resolves the bearer token in the Authorization header.
func sessionFromRequest(r *http.Request, secret string) (session, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return session{}, errNoSession
	}
	return parseToken(secret, token, tokenPurposeSession)
}

// sessionFromQuery resolves the token query parameter used by WebSocket
// clients, which cannot set headers from the browser API.
func sessionFromQuery(r *http.Request, secret string) (session, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return session{}, errNoSession
	}
	return parseToken(secret, token, tokenPurposeSession)
}

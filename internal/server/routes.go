package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, db *sql.DB, rdb *redis.Client, opts Options) {
	store := NewSQLiteStore(db)
	engine := NewEngine(store)
	if opts.ChallengeRiddleID != 0 {
		engine.OverrideComparer(opts.ChallengeRiddleID, randomizedChallenge)
	}
	broker := NewBroker()

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Kameleon API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	// Public auth routes.
	r.Post("/api/auth/signup", handleSignup(logger, store, opts.JWTSecret))
	r.Post("/api/auth/login", handleLogin(store, opts.JWTSecret))
	r.Get("/api/auth/activate/{userID}/{token}", handleActivate(store, opts.JWTSecret))

	// Everything below requires a session token.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(opts.JWTSecret))

		r.Get("/api/user", handleUserDetail(store))
		r.Patch("/api/user", handleUserUpdate(store))
		r.Post("/api/user/cv", handleCVUpload(logger, store, opts.UploadDir, opts.RecruiterRanks))

		r.Get("/api/member", handleMemberDetail(store))
		r.Get("/api/members/{username}/riddles", handleMemberRiddles(store))
		r.Get("/api/members/{username}/dashboard", handleMemberDashboard(store))

		r.Get("/api/riddles", handleRiddleList(store))
		r.Get("/api/riddles/{id}", handleRiddleDetail(store))
		r.Post("/api/riddles/solve", handleSolve(engine))
		r.Post("/api/riddles/coop/solve", handleCoopSolve(engine, broker))
		r.Post("/api/riddles/clue", handleClue(engine))

		r.Post("/api/clans", handleClanCreate(store))
		r.Post("/api/clans/join", handleClanJoin(store))

		r.Post("/api/invitations", handleInvite(store, broker))
		r.Get("/api/invitations/received", handleInvitationsReceived(store))
		r.Post("/api/invitations/{id}/respond", handleInvitationRespond(store, broker))
	})

	// WebSocket channels authenticate via the token query parameter.
	r.Get("/ws/coop/{riddleID}", handleCoopSocket(logger, store, broker, opts.JWTSecret))
	r.Get("/ws/notifications", handleNotificationsSocket(logger, broker, opts.JWTSecret))
	r.Get("/ws/chat", handleChatSocket(logger, broker, rdb, opts.JWTSecret))
}

package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket"

	"github.com/kameleongame/kameleon/internal/kameleon"
)

type participantPayload struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func rosterPayload(roster []kameleon.Participant) []participantPayload {
	out := make([]participantPayload, 0, len(roster))
	for _, p := range roster {
		out = append(out, participantPayload{Username: p.Username, Role: p.Role})
	}
	return out
}

// coopEvent is broadcast on a riddle's coop group.
type coopEvent struct {
	Type     string               `json:"type"`
	RiddleID int64                `json:"riddleId,omitempty"`
	Username string               `json:"username,omitempty"`
	Roster   []participantPayload `json:"roster,omitempty"`
}

// notificationEvent is delivered on a single user's channel.
type notificationEvent struct {
	Type         string `json:"type"`
	Event        string `json:"event"`
	InvitationID string `json:"invitationId,omitempty"`
	RiddleID     int64  `json:"riddleId,omitempty"`
	From         string `json:"from,omitempty"`
}

type chatIncoming struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type chatMessage struct {
	Username string `json:"username"`
	Body     string `json:"body"`
}

type clientAction struct {
	Action string `json:"action"`
}

const (
	chatHistoryKey = "kameleon:chat:history"
	chatHistoryLen = 50
)

func acceptSocket(w http.ResponseWriter, r *http.Request, logger *slog.Logger, secret string) (session, *websocket.Conn, bool) {
	// Anonymous connections are refused before the upgrade.
	sess, err := sessionFromQuery(r, secret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "token query parameter required")
		return session{}, nil, false
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		logger.Error("websocket accept failed", "error", err)
		return session{}, nil, false
	}
	return sess, conn, true
}

// handleCoopSocket is the live channel of a coop session. The server sends
// init, member_joined, member_left, riddle_solved and start_game events;
// the client may send {"action": "start_game"}.
func handleCoopSocket(logger *slog.Logger, store Store, broker *Broker, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		riddleID, err := strconv.ParseInt(chi.URLParam(r, "riddleID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid riddle id")
			return
		}

		sess, conn, ok := acceptSocket(w, r, logger, secret)
		if !ok {
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		group := coopGroup(riddleID)
		ch := broker.Subscribe(group)

		roster, err := store.CoopRoster(ctx, riddleID)
		if err != nil {
			logger.Error("loading coop roster", "riddle_id", riddleID, "error", err)
			broker.Unsubscribe(group, ch)
			return
		}
		init, _ := json.Marshal(coopEvent{Type: "init", RiddleID: riddleID, Roster: rosterPayload(roster)})
		if err := conn.Write(ctx, websocket.MessageText, init); err != nil {
			broker.Unsubscribe(group, ch)
			return
		}

		// Any connected participant may start the game. Restricting this
		// to the leader is a possible future rule; it is not enforced.
		go func() {
			defer cancel()
			for {
				_, data, err := conn.Read(ctx)
				if err != nil {
					return
				}
				var action clientAction
				if err := json.Unmarshal(data, &action); err != nil {
					continue
				}
				if action.Action == "start_game" {
					broker.Publish(group, coopEvent{
						Type:     "start_game",
						RiddleID: riddleID,
						Username: sess.Username,
					})
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				broker.Unsubscribe(group, ch)
				// A disconnected member stays on the roster: invitation
				// status is untouched and they may reconnect.
				roster, err := store.CoopRoster(context.Background(), riddleID)
				if err == nil {
					broker.Publish(group, coopEvent{
						Type:     "member_left",
						RiddleID: riddleID,
						Username: sess.Username,
						Roster:   rosterPayload(roster),
					})
				}
				return
			case data := <-ch:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					cancel()
				}
			}
		}
	}
}

// handleNotificationsSocket streams per-user notification events. Server
// to client only.
func handleNotificationsSocket(logger *slog.Logger, broker *Broker, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, conn, ok := acceptSocket(w, r, logger, secret)
		if !ok {
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		group := userGroup(sess.UserID)
		ch := broker.Subscribe(group)
		defer broker.Unsubscribe(group, ch)

		go func() {
			defer cancel()
			for {
				// Drain client frames to notice the close.
				if _, _, err := conn.Read(ctx); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case data := <-ch:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					return
				}
			}
		}
	}
}

// handleChatSocket is the shared chat room. Recent history is replayed
// from redis on connect; messages are broadcast to every connection.
func handleChatSocket(logger *slog.Logger, broker *Broker, rdb *redis.Client, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, conn, ok := acceptSocket(w, r, logger, secret)
		if !ok {
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		if rdb != nil {
			history, err := rdb.LRange(ctx, chatHistoryKey, 0, chatHistoryLen-1).Result()
			if err != nil {
				logger.Warn("loading chat history", "error", err)
			}
			for i := len(history) - 1; i >= 0; i-- {
				if err := conn.Write(ctx, websocket.MessageText, []byte(history[i])); err != nil {
					return
				}
			}
		}

		ch := broker.Subscribe(chatGroup)
		defer broker.Unsubscribe(chatGroup, ch)

		go func() {
			defer cancel()
			for {
				_, data, err := conn.Read(ctx)
				if err != nil {
					return
				}
				var in chatIncoming
				if err := json.Unmarshal(data, &in); err != nil || in.Message == "" {
					continue
				}
				out, _ := json.Marshal(chatMessage{Username: sess.Username, Body: in.Message})
				if rdb != nil {
					pipe := rdb.Pipeline()
					pipe.LPush(ctx, chatHistoryKey, out)
					pipe.LTrim(ctx, chatHistoryKey, 0, chatHistoryLen-1)
					if _, err := pipe.Exec(ctx); err != nil {
						logger.Warn("storing chat history", "error", err)
					}
				}
				broker.Publish(chatGroup, json.RawMessage(out))
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case data := <-ch:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					return
				}
			}
		}
	}
}

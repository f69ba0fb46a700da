package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Kameleon API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Kameleon riddle game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/auth/signup
	postSignup, _ := r.NewOperationContext(http.MethodPost, "/api/auth/signup")
	postSignup.SetSummary("Sign up")
	postSignup.SetDescription("Creates an inactive account and logs an activation link.")
	postSignup.AddReqStructure(SignupRequest{})
	postSignup.AddRespStructure(SignupResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSignup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSignup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSignup)

	// GET /api/auth/activate/{userID}/{token}
	getActivate, _ := r.NewOperationContext(http.MethodGet, "/api/auth/activate/{userID}/{token}")
	getActivate.SetSummary("Activate account")
	getActivate.SetDescription("Activates an account using the token from the activation link.")
	getActivate.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	getActivate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getActivate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getActivate)

	// POST /api/auth/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/auth/login")
	postLogin.SetSummary("Log in")
	postLogin.SetDescription("Authenticates an active account and returns a session token.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(LoginResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// GET /api/user
	getUser, _ := r.NewOperationContext(http.MethodGet, "/api/user")
	getUser.SetSummary("Current user")
	getUser.SetDescription("Returns the authenticated user's account. Requires Bearer token.")
	getUser.AddRespStructure(UserResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getUser)

	// PATCH /api/user
	patchUser, _ := r.NewOperationContext(http.MethodPatch, "/api/user")
	patchUser.SetSummary("Update user")
	patchUser.SetDescription("Updates username or email. Requires Bearer token.")
	patchUser.AddReqStructure(UserUpdateRequest{})
	patchUser.AddRespStructure(UserResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	patchUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(patchUser)

	// POST /api/user/cv
	postCV, _ := r.NewOperationContext(http.MethodPost, "/api/user/cv")
	postCV.SetSummary("Upload CV")
	postCV.SetDescription("Uploads a PDF résumé. Only members of recruiter-visible ranks may upload.")
	postCV.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusCreated))
	postCV.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postCV.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(postCV)

	// GET /api/member
	getMember, _ := r.NewOperationContext(http.MethodGet, "/api/member")
	getMember.SetSummary("Current member")
	getMember.SetDescription("Returns the authenticated member's game profile. Requires Bearer token.")
	getMember.AddRespStructure(MemberResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMember.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMember)

	// GET /api/members/{username}/riddles
	getMemberRiddles, _ := r.NewOperationContext(http.MethodGet, "/api/members/{username}/riddles")
	getMemberRiddles.SetSummary("Member riddle sets")
	getMemberRiddles.SetDescription("Returns achieved and locked riddle ids for both modes.")
	getMemberRiddles.AddRespStructure(MemberRiddlesResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMemberRiddles.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getMemberRiddles)

	// GET /api/members/{username}/dashboard
	getDashboard, _ := r.NewOperationContext(http.MethodGet, "/api/members/{username}/dashboard")
	getDashboard.SetSummary("Member dashboard")
	getDashboard.SetDescription("Returns progression counters and per-riddle attempt statistics.")
	getDashboard.AddRespStructure(DashboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getDashboard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getDashboard)

	// GET /api/riddles
	listRiddles, _ := r.NewOperationContext(http.MethodGet, "/api/riddles")
	listRiddles.SetSummary("List riddles")
	listRiddles.SetDescription("Returns the riddle catalogue without expected responses.")
	listRiddles.AddRespStructure(map[string][]RiddleItem{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listRiddles)

	// GET /api/riddles/{id}
	getRiddle, _ := r.NewOperationContext(http.MethodGet, "/api/riddles/{id}")
	getRiddle.SetSummary("Get riddle")
	getRiddle.AddRespStructure(RiddleItem{}, openapi.WithHTTPStatus(http.StatusOK))
	getRiddle.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getRiddle)

	// POST /api/riddles/solve
	postSolve, _ := r.NewOperationContext(http.MethodPost, "/api/riddles/solve")
	postSolve.SetSummary("Submit answer")
	postSolve.SetDescription("Submits a solo answer. Awards points and unlocks dependents on success.")
	postSolve.AddReqStructure(SolveRequest{})
	postSolve.AddRespStructure(SolveResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postSolve.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSolve.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postSolve)

	// POST /api/riddles/coop/solve
	postCoopSolve, _ := r.NewOperationContext(http.MethodPost, "/api/riddles/coop/solve")
	postCoopSolve.SetSummary("Submit coop answer")
	postCoopSolve.SetDescription("Submits a cooperative answer and broadcasts the solve to the session.")
	postCoopSolve.AddReqStructure(SolveRequest{})
	postCoopSolve.AddRespStructure(SolveResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postCoopSolve.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postCoopSolve.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postCoopSolve)

	// POST /api/riddles/clue
	postClue, _ := r.NewOperationContext(http.MethodPost, "/api/riddles/clue")
	postClue.SetSummary("Reveal clue")
	postClue.SetDescription("Reveals a clue by position (1-3) and records it against the member's score.")
	postClue.AddReqStructure(ClueRequest{})
	postClue.AddRespStructure(ClueResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postClue)

	// POST /api/clans
	postClan, _ := r.NewOperationContext(http.MethodPost, "/api/clans")
	postClan.SetSummary("Create clan")
	postClan.AddReqStructure(ClanRequest{})
	postClan.AddRespStructure(ClanResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postClan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postClan)

	// POST /api/clans/join
	postClanJoin, _ := r.NewOperationContext(http.MethodPost, "/api/clans/join")
	postClanJoin.SetSummary("Join clan")
	postClanJoin.AddReqStructure(ClanRequest{})
	postClanJoin.AddRespStructure(ClanResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postClanJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postClanJoin)

	// POST /api/invitations
	postInvite, _ := r.NewOperationContext(http.MethodPost, "/api/invitations")
	postInvite.SetSummary("Invite to coop riddle")
	postInvite.SetDescription("Invites another member to a cooperative riddle and notifies them if connected.")
	postInvite.AddReqStructure(InviteRequest{})
	postInvite.AddRespStructure(InvitationResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postInvite.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postInvite.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postInvite)

	// GET /api/invitations/received
	getInvitations, _ := r.NewOperationContext(http.MethodGet, "/api/invitations/received")
	getInvitations.SetSummary("Pending invitations")
	getInvitations.AddRespStructure(map[string][]InvitationResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getInvitations)

	// POST /api/invitations/{id}/respond
	postRespond, _ := r.NewOperationContext(http.MethodPost, "/api/invitations/{id}/respond")
	postRespond.SetSummary("Respond to invitation")
	postRespond.SetDescription("Accepts or rejects a pending invitation. Only the invitee may respond.")
	postRespond.AddReqStructure(RespondRequest{})
	postRespond.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postRespond.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postRespond.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postRespond.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postRespond)

	// GET /ws/coop/{riddleID}
	getCoopWS, _ := r.NewOperationContext(http.MethodGet, "/ws/coop/{riddleID}")
	getCoopWS.SetSummary("Coop session channel")
	getCoopWS.SetDescription("WebSocket channel of a coop session. Pass token as query parameter.")
	getCoopWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getCoopWS)

	// GET /ws/notifications
	getNotifWS, _ := r.NewOperationContext(http.MethodGet, "/ws/notifications")
	getNotifWS.SetSummary("Notification channel")
	getNotifWS.SetDescription("WebSocket stream of per-user notification events. Pass token as query parameter.")
	getNotifWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getNotifWS)

	// GET /ws/chat
	getChatWS, _ := r.NewOperationContext(http.MethodGet, "/ws/chat")
	getChatWS.SetSummary("Chat room")
	getChatWS.SetDescription("Shared chat room with recent history replay. Pass token as query parameter.")
	getChatWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getChatWS)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

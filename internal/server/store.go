package server

import (
	"context"
	"errors"

	"github.com/kameleongame/kameleon/internal/kameleon"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("already exists")
	ErrValidation = errors.New("invalid request")
)

// credentials is what the login handler needs to verify a user.
type credentials struct {
	UserID       int64
	Username     string
	PasswordHash string
	IsActive     bool
}

// dashboardData aggregates a member's profile for the dashboard view.
type dashboardData struct {
	Member       kameleon.Member
	RankName     string
	Achieved     int
	Locked       int
	CoopAchieved int
	CoopLocked   int
	Stats        []kameleon.RiddleStats
}

type Store interface {
	// Users.
	CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error)
	UserByID(ctx context.Context, id int64) (kameleon.User, error)
	UserByUsername(ctx context.Context, username string) (kameleon.User, error)
	Credentials(ctx context.Context, username string) (credentials, error)
	ActivateUser(ctx context.Context, id int64) error
	UpdateUser(ctx context.Context, id int64, username, email string) error
	SetUserCV(ctx context.Context, id int64, path string) error
	SetUserRank(ctx context.Context, id, rankID int64) error

	// Members. CreateMember seeds the locked sets: every riddle with at
	// least one dependency starts locked in its own mode, and the member
	// gets the lowest rank.
	CreateMember(ctx context.Context, userID int64) error
	MemberByUserID(ctx context.Context, userID int64) (kameleon.Member, error)
	MemberByUsername(ctx context.Context, username string) (kameleon.Member, error)
	MemberRiddleIDs(ctx context.Context, memberID int64, mode kameleon.RiddleMode, status kameleon.RiddleStatus) ([]int64, error)
	IsAchieved(ctx context.Context, memberID, riddleID int64, mode kameleon.RiddleMode) (bool, error)
	IsLocked(ctx context.Context, memberID, riddleID int64, mode kameleon.RiddleMode) (bool, error)
	MarkAchieved(ctx context.Context, memberID, riddleID int64, mode kameleon.RiddleMode) error
	UnlockDependents(ctx context.Context, memberID, solvedRiddleID int64) error
	AddScore(ctx context.Context, memberID int64, delta float64, mode kameleon.RiddleMode) (newScore float64, err error)
	RecordAttempt(ctx context.Context, memberID, riddleID int64, solved bool) error
	Dashboard(ctx context.Context, username string) (dashboardData, error)

	// Ranks.
	RankForScore(ctx context.Context, score float64) (kameleon.Rank, error)

	// Riddles and clues.
	ListRiddles(ctx context.Context) ([]kameleon.Riddle, error)
	RiddleByID(ctx context.Context, id int64) (kameleon.Riddle, error)
	ClueByPosition(ctx context.Context, riddleID int64, position int) (kameleon.Clue, error)
	RevealClue(ctx context.Context, memberID, clueID int64) error
	CluesUsed(ctx context.Context, memberID, riddleID int64) (int, error)

	// Clans.
	CreateClan(ctx context.Context, name string) (kameleon.Clan, error)
	ClanByName(ctx context.Context, name string) (kameleon.Clan, error)
	JoinClan(ctx context.Context, memberID, clanID int64) error
	RefreshClanElo(ctx context.Context, clanID int64) error

	// Coop invitations.
	CreateInvitation(ctx context.Context, id string, riddleID, inviterID, inviteeID int64) (kameleon.CoopInvitation, error)
	HasPendingInvitation(ctx context.Context, riddleID, inviteeID int64) (bool, error)
	InvitationByID(ctx context.Context, id string) (kameleon.CoopInvitation, error)
	SetInvitationStatus(ctx context.Context, id string, status kameleon.InvitationStatus) error
	PendingInvitationsFor(ctx context.Context, inviteeID int64) ([]kameleon.CoopInvitation, error)
	CoopRoster(ctx context.Context, riddleID int64) ([]kameleon.Participant, error)
}

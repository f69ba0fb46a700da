// Package kameleon defines the core domain types of the riddle platform.
package kameleon

import "time"

type User struct {
	ID        int64
	Username  string
	Email     string
	IsActive  bool
	RankID    int64
	RankName  string
	CVPath    string
	CreatedAt time.Time
}

// Member is the gameplay profile bound 1:1 to a User.
type Member struct {
	UserID    int64
	Username  string
	Score     float64
	ClanScore float64
	ClanID    *int64
	ClanName  string
}

// Rank is a score-threshold tier. A member's rank is the highest
// MinScore not exceeding their solo score.
type Rank struct {
	ID       int64
	Name     string
	MinScore float64
}

type RiddleMode string

const (
	ModeSolo RiddleMode = "solo"
	ModeCoop RiddleMode = "coop"
)

type Riddle struct {
	ID         int64
	Type       string
	Variable   string
	Response   string
	Difficulty int
	Theme      string
	Points     int
	Mode       RiddleMode
	// Dependencies lists riddle IDs that must be achieved before this
	// riddle becomes selectable.
	Dependencies []int64
}

type Clue struct {
	ID       int64
	RiddleID int64
	Text     string
}

type RiddleStatus string

const (
	StatusAchieved RiddleStatus = "achieved"
	StatusLocked   RiddleStatus = "locked"
)

type Clan struct {
	ID          int64
	Name        string
	Elo         float64
	MemberCount int
	CreatedAt   time.Time
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// CoopInvitation invites a member to solve a cooperative riddle.
// Unique per (riddle, invitee) while pending; never re-opened once
// accepted or rejected.
type CoopInvitation struct {
	ID          string
	RiddleID    int64
	InviterID   int64
	InviterName string
	InviteeID   int64
	InviteeName string
	Status      InvitationStatus
	CreatedAt   time.Time
}

// Participant is a member of a coop session roster. The first accepted
// participant in invitation order is the leader; this is a convention,
// not a persisted role.
type Participant struct {
	UserID   int64
	Username string
	Role     string
}

const (
	RoleLeader = "leader"
	RoleMember = "member"
)

// RiddleStats accumulates per-(member, riddle) attempt history.
type RiddleStats struct {
	MemberID      int64
	RiddleID      int64
	Tries         int
	Errors        int
	Solves        int
	FirstSolvedAt *time.Time
}

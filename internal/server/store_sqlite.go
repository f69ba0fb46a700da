package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kameleongame/kameleon/internal/kameleon"
)

// SQLiteStore implements Store on a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- Users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, is_active)
		VALUES (?, ?, ?, 0)
		RETURNING id
	`, username, email, passwordHash).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	return id, err
}

func (s *SQLiteStore) UserByID(ctx context.Context, id int64) (kameleon.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.is_active, COALESCE(u.rank_id, 0),
		       COALESCE(r.name, ''), u.cv_path, u.created_at
		FROM users u
		LEFT JOIN ranks r ON r.id = u.rank_id
		WHERE u.id = ?
	`, id))
}

func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (kameleon.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.is_active, COALESCE(u.rank_id, 0),
		       COALESCE(r.name, ''), u.cv_path, u.created_at
		FROM users u
		LEFT JOIN ranks r ON r.id = u.rank_id
		WHERE u.username = ?
	`, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (kameleon.User, error) {
	var u kameleon.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.IsActive, &u.RankID,
		&u.RankName, &u.CVPath, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return u, nil
}

func (s *SQLiteStore) Credentials(ctx context.Context, username string) (credentials, error) {
	var c credentials
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_active
		FROM users
		WHERE username = ?
	`, username).Scan(&c.UserID, &c.Username, &c.PasswordHash, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

func (s *SQLiteStore) ActivateUser(ctx context.Context, id int64) error {
	return s.execOne(ctx, `UPDATE users SET is_active = 1 WHERE id = ?`, id)
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, id int64, username, email string) error {
	err := s.execOne(ctx, `
		UPDATE users SET username = ?, email = ? WHERE id = ?
	`, username, email, id)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLiteStore) SetUserCV(ctx context.Context, id int64, path string) error {
	return s.execOne(ctx, `UPDATE users SET cv_path = ? WHERE id = ?`, path, id)
}

func (s *SQLiteStore) SetUserRank(ctx context.Context, id, rankID int64) error {
	return s.execOne(ctx, `UPDATE users SET rank_id = ? WHERE id = ?`, rankID, id)
}

// execOne runs a statement that must affect exactly one row.
func (s *SQLiteStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Members ---

func (s *SQLiteStore) CreateMember(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO members (user_id) VALUES (?)
	`, userID); err != nil {
		return fmt.Errorf("inserting member: %w", err)
	}

	// Every riddle with at least one dependency starts locked in its own
	// mode. Riddles without prerequisites are selectable from the start.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO member_riddles (member_id, riddle_id, mode, status)
		SELECT ?, r.id, r.mode, 'locked'
		FROM riddles r
		WHERE EXISTS (SELECT 1 FROM riddle_dependencies d WHERE d.riddle_id = r.id)
	`, userID); err != nil {
		return fmt.Errorf("seeding locked riddles: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET rank_id = (SELECT id FROM ranks ORDER BY min_score ASC LIMIT 1)
		WHERE id = ?
	`, userID); err != nil {
		return fmt.Errorf("assigning starting rank: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) MemberByUserID(ctx context.Context, userID int64) (kameleon.Member, error) {
	return s.scanMember(s.db.QueryRowContext(ctx, `
		SELECT m.user_id, u.username, m.score, m.clan_score, m.clan_id, COALESCE(c.name, '')
		FROM members m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN clans c ON c.id = m.clan_id
		WHERE m.user_id = ?
	`, userID))
}

func (s *SQLiteStore) MemberByUsername(ctx context.Context, username string) (kameleon.Member, error) {
	return s.scanMember(s.db.QueryRowContext(ctx, `
		SELECT m.user_id, u.username, m.score, m.clan_score, m.clan_id, COALESCE(c.name, '')
		FROM members m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN clans c ON c.id = m.clan_id
		WHERE u.username = ?
	`, username))
}

func (s *SQLiteStore) scanMember(row *sql.Row) (kameleon.Member, error) {
	var m kameleon.Member
	var clanID sql.NullInt64
	err := row.Scan(&m.UserID, &m.Username, &m.Score, &m.ClanScore, &clanID, &m.ClanName)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	if clanID.Valid {
		m.ClanID = &clanID.Int64
	}
	return m, err
}

func (s *SQLiteStore) MemberRiddleIDs(ctx context.Context, memberID int64, mode kameleon.RiddleMode, status kameleon.RiddleStatus) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT riddle_id FROM member_riddles
		WHERE member_id = ? AND mode = ? AND status = ?
		ORDER BY riddle_id
	`, memberID, mode, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) IsAchieved(ctx context.Context, memberID, riddleID int64, mode kameleon.RiddleMode) (bool, error) {
	return s.hasRiddleStatus(ctx, memberID, riddleID, mode, kameleon.StatusAchieved)
}

func (s *SQLiteStore) IsLocked(ctx context.Context, memberID, riddleID int64, mode kameleon.RiddleMode) (bool, error) {
	return s.hasRiddleStatus(ctx, memberID, riddleID, mode, kameleon.StatusLocked)
}

func (s *SQLiteStore) hasRiddleStatus(ctx context.Context, memberID, riddleID int64, mode kameleon.RiddleMode, status kameleon.RiddleStatus) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM member_riddles
		WHERE member_id = ? AND riddle_id = ? AND mode = ? AND status = ?
	`, memberID, riddleID, mode, status).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) MarkAchieved(ctx context.Context, memberID, riddleID int64, mode kameleon.RiddleMode) error {
	// The locked row, if any, is replaced: a riddle is never achieved and
	// locked at the same time for the same mode.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO member_riddles (member_id, riddle_id, mode, status)
		VALUES (?, ?, ?, 'achieved')
		ON CONFLICT (member_id, riddle_id, mode) DO UPDATE SET status = 'achieved'
	`, memberID, riddleID, mode)
	return err
}

func (s *SQLiteStore) UnlockDependents(ctx context.Context, memberID, solvedRiddleID int64) error {
	// Removed, not flagged: an unlocked riddle simply disappears from the
	// locked set.
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM member_riddles
		WHERE member_id = ? AND status = 'locked'
		AND riddle_id IN (
			SELECT riddle_id FROM riddle_dependencies WHERE depends_on = ?
		)
	`, memberID, solvedRiddleID)
	return err
}

func (s *SQLiteStore) AddScore(ctx context.Context, memberID int64, delta float64, mode kameleon.RiddleMode) (float64, error) {
	column := "score"
	if mode == kameleon.ModeCoop {
		column = "clan_score"
	}
	var newScore float64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE members SET %s = %s + ? WHERE user_id = ?
		RETURNING %s
	`, column, column, column), delta, memberID).Scan(&newScore)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return newScore, err
}

func (s *SQLiteStore) RecordAttempt(ctx context.Context, memberID, riddleID int64, solved bool) error {
	errInc, solveInc := 1, 0
	var solvedAt any
	if solved {
		errInc, solveInc = 0, 1
		solvedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO riddle_stats (member_id, riddle_id, tries, errors, solves, first_solved_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT (member_id, riddle_id) DO UPDATE SET
			tries = tries + 1,
			errors = errors + excluded.errors,
			solves = solves + excluded.solves,
			first_solved_at = COALESCE(first_solved_at, excluded.first_solved_at)
	`, memberID, riddleID, errInc, solveInc, solvedAt)
	return err
}

func (s *SQLiteStore) Dashboard(ctx context.Context, username string) (dashboardData, error) {
	var d dashboardData
	m, err := s.MemberByUsername(ctx, username)
	if err != nil {
		return d, err
	}
	d.Member = m

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(r.name, '') FROM users u
		LEFT JOIN ranks r ON r.id = u.rank_id
		WHERE u.id = ?
	`, m.UserID).Scan(&d.RankName)
	if err != nil {
		return d, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT mode, status, COUNT(*) FROM member_riddles
		WHERE member_id = ?
		GROUP BY mode, status
	`, m.UserID)
	if err != nil {
		return d, err
	}
	defer rows.Close()
	for rows.Next() {
		var mode, status string
		var count int
		if err := rows.Scan(&mode, &status, &count); err != nil {
			return d, err
		}
		switch {
		case mode == string(kameleon.ModeSolo) && status == string(kameleon.StatusAchieved):
			d.Achieved = count
		case mode == string(kameleon.ModeSolo) && status == string(kameleon.StatusLocked):
			d.Locked = count
		case mode == string(kameleon.ModeCoop) && status == string(kameleon.StatusAchieved):
			d.CoopAchieved = count
		case mode == string(kameleon.ModeCoop) && status == string(kameleon.StatusLocked):
			d.CoopLocked = count
		}
	}
	if err := rows.Err(); err != nil {
		return d, err
	}

	statRows, err := s.db.QueryContext(ctx, `
		SELECT member_id, riddle_id, tries, errors, solves, first_solved_at
		FROM riddle_stats
		WHERE member_id = ?
		ORDER BY riddle_id
	`, m.UserID)
	if err != nil {
		return d, err
	}
	defer statRows.Close()
	for statRows.Next() {
		var st kameleon.RiddleStats
		var solvedAt sql.NullString
		if err := statRows.Scan(&st.MemberID, &st.RiddleID, &st.Tries, &st.Errors, &st.Solves, &solvedAt); err != nil {
			return d, err
		}
		if solvedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, solvedAt.String); err == nil {
				st.FirstSolvedAt = &t
			}
		}
		d.Stats = append(d.Stats, st)
	}
	return d, statRows.Err()
}

// --- Ranks ---

func (s *SQLiteStore) RankForScore(ctx context.Context, score float64) (kameleon.Rank, error) {
	var r kameleon.Rank
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, min_score FROM ranks
		WHERE min_score <= ?
		ORDER BY min_score DESC
		LIMIT 1
	`, score).Scan(&r.ID, &r.Name, &r.MinScore)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

// --- Riddles and clues ---

func (s *SQLiteStore) ListRiddles(ctx context.Context) ([]kameleon.Riddle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, variable, response, difficulty, theme, points, mode
		FROM riddles
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var riddles []kameleon.Riddle
	byID := make(map[int64]int)
	for rows.Next() {
		var r kameleon.Riddle
		if err := rows.Scan(&r.ID, &r.Type, &r.Variable, &r.Response,
			&r.Difficulty, &r.Theme, &r.Points, &r.Mode); err != nil {
			return nil, err
		}
		byID[r.ID] = len(riddles)
		riddles = append(riddles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	depRows, err := s.db.QueryContext(ctx, `
		SELECT riddle_id, depends_on FROM riddle_dependencies ORDER BY riddle_id, depends_on
	`)
	if err != nil {
		return nil, err
	}
	defer depRows.Close()
	for depRows.Next() {
		var id, dep int64
		if err := depRows.Scan(&id, &dep); err != nil {
			return nil, err
		}
		if i, ok := byID[id]; ok {
			riddles[i].Dependencies = append(riddles[i].Dependencies, dep)
		}
	}
	return riddles, depRows.Err()
}

func (s *SQLiteStore) RiddleByID(ctx context.Context, id int64) (kameleon.Riddle, error) {
	var r kameleon.Riddle
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, variable, response, difficulty, theme, points, mode
		FROM riddles
		WHERE id = ?
	`, id).Scan(&r.ID, &r.Type, &r.Variable, &r.Response,
		&r.Difficulty, &r.Theme, &r.Points, &r.Mode)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT depends_on FROM riddle_dependencies WHERE riddle_id = ? ORDER BY depends_on
	`, id)
	if err != nil {
		return r, err
	}
	defer rows.Close()
	for rows.Next() {
		var dep int64
		if err := rows.Scan(&dep); err != nil {
			return r, err
		}
		r.Dependencies = append(r.Dependencies, dep)
	}
	return r, rows.Err()
}

func (s *SQLiteStore) ClueByPosition(ctx context.Context, riddleID int64, position int) (kameleon.Clue, error) {
	var c kameleon.Clue
	err := s.db.QueryRowContext(ctx, `
		SELECT id, riddle_id, text FROM clues
		WHERE riddle_id = ?
		ORDER BY id
		LIMIT 1 OFFSET ?
	`, riddleID, position-1).Scan(&c.ID, &c.RiddleID, &c.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

func (s *SQLiteStore) RevealClue(ctx context.Context, memberID, clueID int64) error {
	// Idempotent: revealing the same clue twice is a no-op.
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO member_clues (member_id, clue_id) VALUES (?, ?)
	`, memberID, clueID)
	return err
}

func (s *SQLiteStore) CluesUsed(ctx context.Context, memberID, riddleID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM member_clues mc
		JOIN clues c ON c.id = mc.clue_id
		WHERE mc.member_id = ? AND c.riddle_id = ?
	`, memberID, riddleID).Scan(&count)
	return count, err
}

// --- Clans ---

func (s *SQLiteStore) CreateClan(ctx context.Context, name string) (kameleon.Clan, error) {
	var c kameleon.Clan
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO clans (name) VALUES (?)
		RETURNING id, name, elo, created_at
	`, name).Scan(&c.ID, &c.Name, &c.Elo, &createdAt)
	if isUniqueViolation(err) {
		return c, ErrDuplicate
	}
	if err != nil {
		return c, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return c, nil
}

func (s *SQLiteStore) ClanByName(ctx context.Context, name string) (kameleon.Clan, error) {
	var c kameleon.Clan
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.name, c.elo, c.created_at,
		       (SELECT COUNT(*) FROM members m WHERE m.clan_id = c.id)
		FROM clans c
		WHERE c.name = ?
	`, name).Scan(&c.ID, &c.Name, &c.Elo, &createdAt, &c.MemberCount)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return c, nil
}

func (s *SQLiteStore) JoinClan(ctx context.Context, memberID, clanID int64) error {
	return s.execOne(ctx, `UPDATE members SET clan_id = ? WHERE user_id = ?`, clanID, memberID)
}

func (s *SQLiteStore) RefreshClanElo(ctx context.Context, clanID int64) error {
	// Elo is the mean coop score of the clan's members.
	_, err := s.db.ExecContext(ctx, `
		UPDATE clans SET elo = COALESCE(
			(SELECT AVG(clan_score) FROM members WHERE clan_id = ?), 0)
		WHERE id = ?
	`, clanID, clanID)
	return err
}

// --- Coop invitations ---

func (s *SQLiteStore) CreateInvitation(ctx context.Context, id string, riddleID, inviterID, inviteeID int64) (kameleon.CoopInvitation, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coop_invitations (id, riddle_id, inviter_id, invitee_id, status)
		VALUES (?, ?, ?, ?, 'pending')
	`, id, riddleID, inviterID, inviteeID)
	if err != nil {
		return kameleon.CoopInvitation{}, err
	}
	return s.InvitationByID(ctx, id)
}

func (s *SQLiteStore) HasPendingInvitation(ctx context.Context, riddleID, inviteeID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM coop_invitations
		WHERE riddle_id = ? AND invitee_id = ? AND status = 'pending'
	`, riddleID, inviteeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) InvitationByID(ctx context.Context, id string) (kameleon.CoopInvitation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT i.id, i.riddle_id, i.inviter_id, ur.username, i.invitee_id, ue.username,
		       i.status, i.created_at
		FROM coop_invitations i
		JOIN users ur ON ur.id = i.inviter_id
		JOIN users ue ON ue.id = i.invitee_id
		WHERE i.id = ?
	`, id)
	return scanInvitation(row)
}

func scanInvitation(row *sql.Row) (kameleon.CoopInvitation, error) {
	var inv kameleon.CoopInvitation
	var createdAt string
	err := row.Scan(&inv.ID, &inv.RiddleID, &inv.InviterID, &inv.InviterName,
		&inv.InviteeID, &inv.InviteeName, &inv.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return inv, ErrNotFound
	}
	if err != nil {
		return inv, err
	}
	inv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return inv, nil
}

func (s *SQLiteStore) SetInvitationStatus(ctx context.Context, id string, status kameleon.InvitationStatus) error {
	return s.execOne(ctx, `
		UPDATE coop_invitations SET status = ? WHERE id = ?
	`, status, id)
}

func (s *SQLiteStore) PendingInvitationsFor(ctx context.Context, inviteeID int64) ([]kameleon.CoopInvitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.riddle_id, i.inviter_id, ur.username, i.invitee_id, ue.username,
		       i.status, i.created_at
		FROM coop_invitations i
		JOIN users ur ON ur.id = i.inviter_id
		JOIN users ue ON ue.id = i.invitee_id
		WHERE i.invitee_id = ? AND i.status = 'pending'
		ORDER BY i.created_at
	`, inviteeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []kameleon.CoopInvitation
	for rows.Next() {
		var inv kameleon.CoopInvitation
		var createdAt string
		if err := rows.Scan(&inv.ID, &inv.RiddleID, &inv.InviterID, &inv.InviterName,
			&inv.InviteeID, &inv.InviteeName, &inv.Status, &createdAt); err != nil {
			return nil, err
		}
		inv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

func (s *SQLiteStore) CoopRoster(ctx context.Context, riddleID int64) ([]kameleon.Participant, error) {
	// The roster is recomputed from accepted invitations in invitation
	// order, not from the live-connection set.
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username
		FROM coop_invitations i
		JOIN users u ON u.id = i.invitee_id
		WHERE i.riddle_id = ? AND i.status = 'accepted'
		ORDER BY i.rowid
	`, riddleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []kameleon.Participant
	for rows.Next() {
		var p kameleon.Participant
		if err := rows.Scan(&p.UserID, &p.Username); err != nil {
			return nil, err
		}
		p.Role = kameleon.RoleMember
		if len(roster) == 0 {
			p.Role = kameleon.RoleLeader
		}
		roster = append(roster, p)
	}
	return roster, rows.Err()
}

package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// SeedDemo loads the rank ladder and a small starter riddle set.
// Idempotent: does nothing once ranks exist.
func SeedDemo(ctx context.Context, logger *slog.Logger, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ranks`).Scan(&count); err != nil {
		return fmt.Errorf("counting ranks: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ranks := []struct {
		name     string
		minScore float64
	}{
		{"Cochon", 0},
		{"Hibou", 50},
		{"Pieuvre", 120},
		{"Phasme", 220},
		{"Poisson pierre", 350},
		{"Panda Ghilie", 520},
		{"Kameleon", 750},
	}
	for _, rk := range ranks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ranks (name, min_score) VALUES (?, ?)`, rk.name, rk.minScore); err != nil {
			return fmt.Errorf("seeding rank %s: %w", rk.name, err)
		}
	}

	riddles := []struct {
		typ, variable, response, theme, mode string
		difficulty, points                   int
	}{
		{"text", "caesar_intro", `"attack at dawn"`, "crypto", "solo", 1, 20},
		{"text", "hidden_header", `"x-kameleon"`, "web", "solo", 2, 30},
		{"number", "fibonacci_gap", `144`, "math", "solo", 2, 30},
		{"text", "shared_cipher", `{"value": "green"}`, "crypto", "coop", 3, 50},
	}
	var ids []int64
	for _, rd := range riddles {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO riddles (type, variable, response, difficulty, theme, points, mode)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rd.typ, rd.variable, rd.response, rd.difficulty, rd.theme, rd.points, rd.mode)
		if err != nil {
			return fmt.Errorf("seeding riddle %s: %w", rd.variable, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	// The third riddle opens after the first; the coop riddle after the second.
	deps := [][2]int64{{ids[2], ids[0]}, {ids[3], ids[1]}}
	for _, d := range deps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO riddle_dependencies (riddle_id, depends_on) VALUES (?, ?)`, d[0], d[1]); err != nil {
			return fmt.Errorf("seeding dependency: %w", err)
		}
	}

	clues := []struct {
		riddle int64
		text   string
	}{
		{ids[0], "The shift is smaller than five."},
		{ids[0], "Julius would approve."},
		{ids[0], "Try shifting by three."},
		{ids[1], "Look at the response headers."},
		{ids[2], "Two squares meet here."},
	}
	for _, c := range clues {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO clues (riddle_id, text) VALUES (?, ?)`, c.riddle, c.text); err != nil {
			return fmt.Errorf("seeding clue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logger.Info("seeded demo data", "ranks", len(ranks), "riddles", len(riddles))
	return nil
}

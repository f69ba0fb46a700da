package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/kameleongame/kameleon/internal/database"
	"github.com/kameleongame/kameleon/internal/kameleon"
	"github.com/kameleongame/kameleon/internal/migrations"
)

func setupStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	seedFixtures(t, db)
	return NewSQLiteStore(db), db
}

// Riddle 1 (solo, 20pts, 3 clues), riddle 2 (solo, 40pts, depends on 1),
// riddle 3 (coop, 50pts).
func seedFixtures(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO ranks (name, min_score) VALUES ('Cochon', 0), ('Hibou', 50), ('Pieuvre', 120)`,
		`INSERT INTO riddles (id, type, variable, response, difficulty, theme, points, mode) VALUES
			(1, 'text', 'caesar', '"alpha"', 1, 'crypto', 20, 'solo'),
			(2, 'text', 'vigenere', '"beta"', 2, 'crypto', 40, 'solo'),
			(3, 'text', 'shared_cipher', '{"value": "green"}', 3, 'crypto', 50, 'coop')`,
		`INSERT INTO riddle_dependencies (riddle_id, depends_on) VALUES (2, 1)`,
		`INSERT INTO clues (riddle_id, text) VALUES (1, 'first hint'), (1, 'second hint'), (1, 'third hint')`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("seeding fixtures: %v", err)
		}
	}
}

func createTestMember(t *testing.T, store *SQLiteStore, username string) int64 {
	t.Helper()
	ctx := context.Background()

	id, err := store.CreateUser(ctx, username, username+"@example.com", "irrelevant")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	if err := store.CreateMember(ctx, id); err != nil {
		t.Fatalf("create member %s: %v", username, err)
	}
	if err := store.ActivateUser(ctx, id); err != nil {
		t.Fatalf("activate user %s: %v", username, err)
	}
	return id
}

func TestSubmitAnswerAwardsPointsOnce(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	ctx := context.Background()
	member := createTestMember(t, store, "maria")

	res, err := engine.SubmitAnswer(ctx, member, 1, json.RawMessage(`"alpha"`), kameleon.ModeSolo)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Solved {
		t.Fatal("expected correct answer to solve")
	}
	if res.Points != 20 {
		t.Errorf("expected 20 points, got %v", res.Points)
	}

	// Re-solving reports success but awards nothing.
	res, err = engine.SubmitAnswer(ctx, member, 1, json.RawMessage(`"alpha"`), kameleon.ModeSolo)
	if err != nil {
		t.Fatalf("re-submit: %v", err)
	}
	if !res.Solved {
		t.Error("expected re-submission to still report solved")
	}
	if res.Points != 0 {
		t.Errorf("expected no points on re-submission, got %v", res.Points)
	}

	m, err := store.MemberByUserID(ctx, member)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if m.Score != 20 {
		t.Errorf("expected score 20, got %v", m.Score)
	}
}

func TestSubmitAnswerWrong(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	ctx := context.Background()
	member := createTestMember(t, store, "maria")

	res, err := engine.SubmitAnswer(ctx, member, 1, json.RawMessage(`"omega"`), kameleon.ModeSolo)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Solved {
		t.Fatal("expected wrong answer to fail")
	}

	d, err := store.Dashboard(ctx, "maria")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(d.Stats) != 1 || d.Stats[0].Tries != 1 || d.Stats[0].Errors != 1 {
		t.Errorf("expected one failed try recorded, got %+v", d.Stats)
	}
}

func TestSubmitAnswerModeMismatch(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	member := createTestMember(t, store, "maria")

	_, err := engine.SubmitAnswer(context.Background(), member, 3, json.RawMessage(`{"value": "green"}`), kameleon.ModeSolo)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for mode mismatch, got %v", err)
	}
}

func TestSubmitAnswerUnknownRiddle(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	member := createTestMember(t, store, "maria")

	_, err := engine.SubmitAnswer(context.Background(), member, 999, json.RawMessage(`"x"`), kameleon.ModeSolo)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCluePenalties(t *testing.T) {
	cases := []struct {
		name   string
		clues  int
		points float64
	}{
		{"no clues", 0, 20},
		{"one clue", 1, 15},
		{"two clues", 2, 10},
		{"three clues", 3, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, _ := setupStore(t)
			engine := NewEngine(store)
			ctx := context.Background()
			member := createTestMember(t, store, "maria")

			for i := 1; i <= tc.clues; i++ {
				if _, err := engine.RevealClue(ctx, member, 1, i); err != nil {
					t.Fatalf("reveal clue %d: %v", i, err)
				}
			}

			res, err := engine.SubmitAnswer(ctx, member, 1, json.RawMessage(`"alpha"`), kameleon.ModeSolo)
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if res.Points != tc.points {
				t.Errorf("expected %v points after %d clues, got %v", tc.points, tc.clues, res.Points)
			}
		})
	}
}

func TestRevealClueIdempotent(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	ctx := context.Background()
	member := createTestMember(t, store, "maria")

	for i := 0; i < 3; i++ {
		hint, err := engine.RevealClue(ctx, member, 1, 1)
		if err != nil {
			t.Fatalf("reveal: %v", err)
		}
		if hint != "first hint" {
			t.Errorf("expected first hint, got %q", hint)
		}
	}

	used, err := store.CluesUsed(ctx, member, 1)
	if err != nil {
		t.Fatalf("clues used: %v", err)
	}
	if used != 1 {
		t.Errorf("expected repeated reveal to count once, got %d", used)
	}
}

func TestRevealClueValidation(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	ctx := context.Background()
	member := createTestMember(t, store, "maria")

	for _, pos := range []int{0, 4, -1} {
		if _, err := engine.RevealClue(ctx, member, 1, pos); !errors.Is(err, ErrValidation) {
			t.Errorf("position %d: expected validation error, got %v", pos, err)
		}
	}

	// Riddle 2 has no clues.
	if _, err := engine.RevealClue(ctx, member, 2, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found for missing clue, got %v", err)
	}
}

func TestDependencyUnlock(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	ctx := context.Background()
	member := createTestMember(t, store, "maria")

	locked, err := store.IsLocked(ctx, member, 2, kameleon.ModeSolo)
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if !locked {
		t.Fatal("expected riddle 2 to start locked")
	}

	if _, err := engine.SubmitAnswer(ctx, member, 1, json.RawMessage(`"alpha"`), kameleon.ModeSolo); err != nil {
		t.Fatalf("submit: %v", err)
	}

	locked, err = store.IsLocked(ctx, member, 2, kameleon.ModeSolo)
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if locked {
		t.Error("expected riddle 2 to unlock after solving its dependency")
	}
}

func TestRankPromotion(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	ctx := context.Background()
	member := createTestMember(t, store, "maria")

	res, err := engine.SubmitAnswer(ctx, member, 1, json.RawMessage(`"alpha"`), kameleon.ModeSolo)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Promoted {
		t.Error("20 points should not promote past the starting rank")
	}

	res, err = engine.SubmitAnswer(ctx, member, 2, json.RawMessage(`"beta"`), kameleon.ModeSolo)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Promoted || res.RankName != "Hibou" {
		t.Errorf("expected promotion to Hibou at 60 points, got promoted=%v rank=%q", res.Promoted, res.RankName)
	}

	user, err := store.UserByID(ctx, member)
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if user.RankName != "Hibou" {
		t.Errorf("expected persisted rank Hibou, got %q", user.RankName)
	}
}

func TestCoopSolveStructuredComparison(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	ctx := context.Background()
	member := createTestMember(t, store, "maria")

	clan, err := store.CreateClan(ctx, "Lions")
	if err != nil {
		t.Fatalf("create clan: %v", err)
	}
	if err := store.JoinClan(ctx, member, clan.ID); err != nil {
		t.Fatalf("join clan: %v", err)
	}

	// Extra keys and key order must not matter; only "value" is compared.
	res, err := engine.SubmitAnswer(ctx, member, 3,
		json.RawMessage(`{"submittedBy": "maria", "value": "green"}`), kameleon.ModeCoop)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Solved {
		t.Fatal("expected structured match to solve")
	}

	m, err := store.MemberByUserID(ctx, member)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if m.ClanScore != 50 {
		t.Errorf("expected clan score 50, got %v", m.ClanScore)
	}
	if m.Score != 0 {
		t.Errorf("coop solve must not touch the solo score, got %v", m.Score)
	}

	got, err := store.ClanByName(ctx, "Lions")
	if err != nil {
		t.Fatalf("clan: %v", err)
	}
	if got.Elo != 50 {
		t.Errorf("expected clan elo 50 after refresh, got %v", got.Elo)
	}
}

func TestCoopSolveWrongValue(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	member := createTestMember(t, store, "maria")

	res, err := engine.SubmitAnswer(context.Background(), member, 3,
		json.RawMessage(`{"value": "red"}`), kameleon.ModeCoop)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Solved {
		t.Error("expected wrong value to fail")
	}
}

func TestOverrideComparer(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	member := createTestMember(t, store, "maria")

	engine.OverrideComparer(1, func(string, json.RawMessage) bool { return false })

	res, err := engine.SubmitAnswer(context.Background(), member, 1, json.RawMessage(`"alpha"`), kameleon.ModeSolo)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Solved {
		t.Error("override comparer must replace the default comparison")
	}
}

func TestConcurrentSubmissionsAwardOnce(t *testing.T) {
	store, _ := setupStore(t)
	engine := NewEngine(store)
	ctx := context.Background()
	member := createTestMember(t, store, "maria")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.SubmitAnswer(ctx, member, 1, json.RawMessage(`"alpha"`), kameleon.ModeSolo)
		}()
	}
	wg.Wait()

	m, err := store.MemberByUserID(ctx, member)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if m.Score != 20 {
		t.Errorf("expected exactly one award under concurrency, got score %v", m.Score)
	}
}

// Package storage persists study sessions and their conversation logs in a
// local SQLite database. Local persistence is what lets a session resume
// after the process exits, not just across view changes.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tutoroo/tutoroo-cli/internal/domain"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("entity not found")

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

type Storage struct {
	db   *sql.DB
	path string
}

// Verify Storage implements domain.Store
var _ domain.Store = (*Storage)(nil)

func New(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "tutoroo.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Storage{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		plan_id INTEGER NOT NULL,
		study_day INTEGER NOT NULL,
		goal TEXT NOT NULL DEFAULT '',
		today_topic TEXT NOT NULL DEFAULT '',
		persona TEXT NOT NULL,
		custom_option TEXT NOT NULL DEFAULT '',
		phase TEXT NOT NULL,
		phase_index INTEGER NOT NULL,
		time_left INTEGER NOT NULL,
		practice INTEGER NOT NULL DEFAULT 0,
		speaker_on INTEGER NOT NULL DEFAULT 0,
		completed_today INTEGER NOT NULL DEFAULT 0,
		schedule_json TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_plan ON sessions(plan_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		speaker TEXT NOT NULL,
		text TEXT NOT NULL,
		audio_url TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		test_json TEXT,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Session operations

func (s *Storage) CreateSession(ctx context.Context, sess *domain.Session) error {
	scheduleJSON, _ := json.Marshal(sess.Schedule)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, plan_id, study_day, goal, today_topic, persona, custom_option,
							  phase, phase_index, time_left, practice, speaker_on, completed_today,
							  schedule_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.PlanID, sess.StudyDay, sess.Goal, sess.TodayTopic, sess.Persona, sess.CustomOption,
		sess.Phase, sess.PhaseIndex, sess.TimeLeft, sess.Practice, sess.SpeakerOn, sess.CompletedToday,
		scheduleJSON, sess.CreatedAt, sess.UpdatedAt)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, sessionQuery+` WHERE id = ?`, id)
	return scanSession(row)
}

// LatestSession returns the most recently updated session for a plan, or
// ErrNotFound if the plan has none.
func (s *Storage) LatestSession(ctx context.Context, planID int64) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, sessionQuery+` WHERE plan_id = ? ORDER BY updated_at DESC LIMIT 1`, planID)
	return scanSession(row)
}

func (s *Storage) UpdateSession(ctx context.Context, sess *domain.Session) error {
	scheduleJSON, _ := json.Marshal(sess.Schedule)
	sess.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET study_day = ?, goal = ?, today_topic = ?, persona = ?, custom_option = ?,
			phase = ?, phase_index = ?, time_left = ?, practice = ?, speaker_on = ?,
			completed_today = ?, schedule_json = ?, updated_at = ?
		WHERE id = ?
	`, sess.StudyDay, sess.Goal, sess.TodayTopic, sess.Persona, sess.CustomOption,
		sess.Phase, sess.PhaseIndex, sess.TimeLeft, sess.Practice, sess.SpeakerOn,
		sess.CompletedToday, scheduleJSON, sess.UpdatedAt, sess.ID)
	return err
}

func (s *Storage) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

const sessionQuery = `
	SELECT id, plan_id, study_day, goal, today_topic, persona, custom_option,
		   phase, phase_index, time_left, practice, speaker_on, completed_today,
		   schedule_json, created_at, updated_at
	FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var sess domain.Session
	var scheduleJSON sql.NullString

	err := row.Scan(&sess.ID, &sess.PlanID, &sess.StudyDay, &sess.Goal, &sess.TodayTopic,
		&sess.Persona, &sess.CustomOption, &sess.Phase, &sess.PhaseIndex, &sess.TimeLeft,
		&sess.Practice, &sess.SpeakerOn, &sess.CompletedToday,
		&scheduleJSON, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if scheduleJSON.Valid && scheduleJSON.String != "null" {
		json.Unmarshal([]byte(scheduleJSON.String), &sess.Schedule)
	}
	return &sess, nil
}

// Turn operations

func (s *Storage) AppendTurn(ctx context.Context, turn *domain.Turn) error {
	var testJSON []byte
	if turn.Test != nil {
		var err error
		testJSON, err = json.Marshal(turn.Test)
		if err != nil {
			return fmt.Errorf("marshal test payload: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, speaker, text, audio_url, image_url, test_json, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, turn.ID, turn.SessionID, turn.Speaker, turn.Text, turn.AudioURL, turn.ImageURL, nullable(testJSON), turn.Timestamp)
	return err
}

func (s *Storage) GetTurns(ctx context.Context, sessionID string) ([]*domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, speaker, text, audio_url, image_url, test_json, timestamp
		FROM turns WHERE session_id = ? ORDER BY timestamp ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*domain.Turn
	for rows.Next() {
		var turn domain.Turn
		var testJSON sql.NullString

		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Speaker, &turn.Text,
			&turn.AudioURL, &turn.ImageURL, &testJSON, &turn.Timestamp); err != nil {
			return nil, err
		}

		if testJSON.Valid {
			var payload domain.TestPayload
			if err := json.Unmarshal([]byte(testJSON.String), &payload); err != nil {
				return nil, fmt.Errorf("unmarshal test payload: %w", err)
			}
			turn.Test = &payload
		}
		turns = append(turns, &turn)
	}
	return turns, rows.Err()
}

func (s *Storage) DeleteTurns(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID)
	return err
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

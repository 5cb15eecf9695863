package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/hexokit/internal/apperr"
	"github.com/starford/hexokit/internal/models"
)

// Summary is a conversion without its content and matches.
type Summary struct {
	ID           string           `json:"id"`
	Path         string           `json:"path"`
	Name         string           `json:"name"`
	Status       models.RunStatus `json:"status"`
	ImageService string           `json:"image_service,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Total        int              `json:"total"`
	Failed       int              `json:"failed"`
}

// SaveRun stores a finished run and its matches within a transaction.
func (db *DB) SaveRun(run *models.Run) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	errorsJSON, _ := json.Marshal(nonNil(run.Errors))
	_, err = tx.Exec(`
		INSERT INTO conversions (id, path, name, title, checksum, status, image_service, content, errors, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Path, run.Name, run.Title, run.Checksum, string(run.Status), run.ImageService,
		run.Content, string(errorsJSON), run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("history: insert conversion: %w", err)
	}

	if len(run.Matches) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO link_matches (conversion_id, seq, matched_text, format, link_type, src, alt, status,
				width, height, file_path, full_path, mime_type, replaced_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("history: prepare match insert: %w", err)
		}
		defer stmt.Close()
		for i, m := range run.Matches {
			filePath := ""
			if m.File != nil {
				filePath = m.File.Path
			}
			if _, err := stmt.Exec(run.ID, i, m.MatchedText, string(m.Format), string(m.Type), m.Src, m.Alt,
				string(m.Status), m.Width, m.Height, filePath, m.FullPath, m.MimeType, m.ReplacedText); err != nil {
				return fmt.Errorf("history: insert match: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetRun loads a run with its matches.
func (db *DB) GetRun(id string) (*models.Run, error) {
	return db.loadRun(`SELECT id, path, name, title, checksum, status, image_service, content, errors, started_at, finished_at
		FROM conversions WHERE id = ?`, id)
}

// LastRun loads the most recently finished run.
func (db *DB) LastRun() (*models.Run, error) {
	return db.loadRun(`SELECT id, path, name, title, checksum, status, image_service, content, errors, started_at, finished_at
		FROM conversions ORDER BY finished_at DESC, rowid DESC LIMIT 1`)
}

func (db *DB) loadRun(query string, args ...any) (*models.Run, error) {
	var (
		run        models.Run
		status     string
		errorsJSON string
	)
	err := db.conn.QueryRow(query, args...).Scan(&run.ID, &run.Path, &run.Name, &run.Title, &run.Checksum,
		&status, &run.ImageService, &run.Content, &errorsJSON, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get run: %w", err)
	}
	run.Status = models.RunStatus(status)
	_ = json.Unmarshal([]byte(errorsJSON), &run.Errors)

	matches, err := db.matches(run.ID)
	if err != nil {
		return nil, err
	}
	run.Matches = matches
	return &run, nil
}

func (db *DB) matches(id string) ([]*models.LinkMatch, error) {
	rows, err := db.conn.Query(`
		SELECT matched_text, format, link_type, src, alt, status, width, height, file_path, full_path, mime_type, replaced_text
		FROM link_matches WHERE conversion_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("history: matches: %w", err)
	}
	defer rows.Close()

	var out []*models.LinkMatch
	for rows.Next() {
		var (
			m                   models.LinkMatch
			format, typ, status string
			filePath            string
		)
		if err := rows.Scan(&m.MatchedText, &format, &typ, &m.Src, &m.Alt, &status, &m.Width, &m.Height,
			&filePath, &m.FullPath, &m.MimeType, &m.ReplacedText); err != nil {
			return nil, err
		}
		m.Format = models.MatchFormat(format)
		m.Type = models.LinkType(typ)
		m.Status = models.MatchStatus(status)
		if filePath != "" {
			m.File = models.NewFile(filePath, "")
			m.File.FullPath = m.FullPath
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// ListRuns returns summaries newest first, optionally for one note path,
// together with the total count.
func (db *DB) ListRuns(limit, offset int, path string) ([]Summary, int, error) {
	where := ""
	args := []any{}
	if path != "" {
		where = "WHERE c.path = ?"
		args = append(args, path)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM conversions c `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("history: count runs: %w", err)
	}

	query := `
		SELECT c.id, c.path, c.name, c.status, c.image_service, c.started_at, c.finished_at,
			count(m.seq),
			coalesce(sum(CASE WHEN m.replaced_text = '' THEN 1 ELSE 0 END), 0)
		FROM conversions c
		LEFT JOIN link_matches m ON m.conversion_id = c.id
		` + where + `
		GROUP BY c.id
		ORDER BY c.finished_at DESC, c.rowid DESC
		LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s      Summary
			status string
		)
		if err := rows.Scan(&s.ID, &s.Path, &s.Name, &status, &s.ImageService, &s.StartedAt, &s.FinishedAt,
			&s.Total, &s.Failed); err != nil {
			return nil, 0, err
		}
		s.Status = models.RunStatus(status)
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// LastChecksum returns the source checksum of the latest run of path that
// produced output, or "" when there is none.
func (db *DB) LastChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`
		SELECT checksum FROM conversions
		WHERE path = ? AND status IN (?, ?)
		ORDER BY finished_at DESC, rowid DESC LIMIT 1
	`, path, string(models.RunSuccess), string(models.RunFlawedSuccess)).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("history: last checksum: %w", err)
	}
	return cs, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Package archive persists explicitly exported papers to sqlite. Working
// sessions stay in memory; only a deliberate export lands here.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kvexam/papergen/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS papers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		class TEXT NOT NULL,
		subject TEXT NOT NULL,
		exam_name TEXT NOT NULL DEFAULT '',
		school_name TEXT NOT NULL DEFAULT '',
		total_questions INTEGER NOT NULL DEFAULT 0,
		total_marks INTEGER NOT NULL DEFAULT 0,
		spec_json TEXT NOT NULL,
		paper_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Summary is the list view of an archived paper, without the JSON payloads.
type Summary struct {
	ID             int64     `json:"id"`
	Class          string    `json:"class"`
	Subject        string    `json:"subject"`
	ExamName       string    `json:"exam_name"`
	SchoolName     string    `json:"school_name"`
	TotalQuestions int       `json:"total_questions"`
	TotalMarks     int       `json:"total_marks"`
	CreatedAt      time.Time `json:"created_at"`
}

// Entry is a fully loaded archived paper.
type Entry struct {
	Summary
	Spec  model.Specification `json:"spec"`
	Paper model.Paper         `json:"paper"`
}

// Save stores a paper together with the specification that produced it and
// returns the new archive id.
func (s *Store) Save(spec model.Specification, paper model.Paper) (int64, error) {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return 0, fmt.Errorf("encode specification: %w", err)
	}
	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return 0, fmt.Errorf("encode paper: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO papers (class, subject, exam_name, school_name, total_questions, total_marks, spec_json, paper_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		paper.Meta.Class, paper.Meta.Subject, spec.Branding.ExamName, spec.Branding.SchoolName,
		paper.Meta.TotalQuestions, paper.Meta.TotalMarks, string(specJSON), string(paperJSON), time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Get returns an archived paper by id, or (nil, nil) when it does not exist.
func (s *Store) Get(id int64) (*Entry, error) {
	var e Entry
	var specJSON, paperJSON string
	err := s.db.QueryRow(
		`SELECT id, class, subject, exam_name, school_name, total_questions, total_marks, spec_json, paper_json, created_at
		 FROM papers WHERE id = ?`, id,
	).Scan(&e.ID, &e.Class, &e.Subject, &e.ExamName, &e.SchoolName, &e.TotalQuestions, &e.TotalMarks, &specJSON, &paperJSON, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(specJSON), &e.Spec); err != nil {
		return nil, fmt.Errorf("decode specification: %w", err)
	}
	if err := json.Unmarshal([]byte(paperJSON), &e.Paper); err != nil {
		return nil, fmt.Errorf("decode paper: %w", err)
	}
	return &e, nil
}

// List returns summaries of all archived papers, newest first.
func (s *Store) List() ([]Summary, error) {
	rows, err := s.db.Query(
		`SELECT id, class, subject, exam_name, school_name, total_questions, total_marks, created_at
		 FROM papers ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var summaries []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Class, &sm.Subject, &sm.ExamName, &sm.SchoolName, &sm.TotalQuestions, &sm.TotalMarks, &sm.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, sm)
	}
	return summaries, rows.Err()
}

// Delete removes an archived paper. Deleting a missing id is not an error.
func (s *Store) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM papers WHERE id = ?`, id)
	return err
}

// Count returns the number of archived papers.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM papers`).Scan(&count)
	return count, err
}

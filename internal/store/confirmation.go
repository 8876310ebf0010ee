package store

import (
	"database/sql"
	"time"
)

// Confirmation is one confirmed letter of a session.
type Confirmation struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Letter     string    `json:"letter"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConfirmationRepository stores confirmed letters.
type ConfirmationRepository struct {
	db *sql.DB
}

// Confirmations returns the confirmation repository for this store.
func (s *Store) Confirmations() *ConfirmationRepository {
	return &ConfirmationRepository{db: s.db}
}

// Create inserts c and appends its letter to the session text in a single
// transaction. It returns ErrNotFound when the session does not exist.
func (r *ConfirmationRepository) Create(c *Confirmation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE sessions SET text = text || ? WHERE id = ?`, c.Letter, c.SessionID)
	if err != nil {
		return err
	}
	if err := expectOne(result); err != nil {
		return err
	}

	result, err = tx.Exec(
		`INSERT INTO confirmations (session_id, letter, confidence, source, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.SessionID, c.Letter, c.Confidence, c.Source, c.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id

	return tx.Commit()
}

// ListBySession returns the confirmations of a session in order.
func (r *ConfirmationRepository) ListBySession(sessionID string) ([]Confirmation, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, letter, confidence, source, created_at
		 FROM confirmations
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var confirmations []Confirmation
	for rows.Next() {
		var c Confirmation
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Letter, &c.Confidence, &c.Source, &c.CreatedAt); err != nil {
			return nil, err
		}
		confirmations = append(confirmations, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return confirmations, nil
}

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// AnyLetter binds an action to every confirmed letter.
const AnyLetter = "*"

// Action binds a confirmed letter to a plugin action.
type Action struct {
	ID         string          `json:"id"`
	Letter     string          `json:"letter"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config,omitempty"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ActionRepository provides CRUD operations for actions.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

// Create inserts a new action into the database.
func (r *ActionRepository) Create(a *Action) error {
	a.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO actions (id, letter, plugin_name, action_name, config, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Letter, a.PluginName, a.ActionName, string(configOrEmpty(a.Config)), a.Enabled, a.CreatedAt,
	)
	return err
}

// GetByID retrieves an action by its ID.
func (r *ActionRepository) GetByID(id string) (*Action, error) {
	a, err := scanAction(r.db.QueryRow(
		`SELECT id, letter, plugin_name, action_name, config, enabled, created_at
		 FROM actions WHERE id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ForLetter returns the enabled action bound to letter, falling back to
// the AnyLetter binding. It returns nil, nil if neither exists.
func (r *ActionRepository) ForLetter(letter string) (*Action, error) {
	a, err := scanAction(r.db.QueryRow(
		`SELECT id, letter, plugin_name, action_name, config, enabled, created_at
		 FROM actions
		 WHERE letter IN (?, ?) AND enabled = 1
		 ORDER BY letter = ? DESC
		 LIMIT 1`,
		letter, AnyLetter, letter,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Silent skip - no action bound
	}
	return a, err
}

// List retrieves all actions ordered by letter.
func (r *ActionRepository) List() ([]*Action, error) {
	rows, err := r.db.Query(
		`SELECT id, letter, plugin_name, action_name, config, enabled, created_at
		 FROM actions ORDER BY letter`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return actions, nil
}

// Update updates an existing action in the database.
func (r *ActionRepository) Update(a *Action) error {
	result, err := r.db.Exec(
		`UPDATE actions SET letter = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		a.Letter, a.PluginName, a.ActionName, string(configOrEmpty(a.Config)), a.Enabled, a.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Delete removes an action from the database by its ID.
func (r *ActionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

func scanAction(row scanner) (*Action, error) {
	a := &Action{}
	var config string
	var enabled int

	if err := row.Scan(&a.ID, &a.Letter, &a.PluginName, &a.ActionName, &config, &enabled, &a.CreatedAt); err != nil {
		return nil, err
	}

	a.Config = json.RawMessage(config)
	a.Enabled = enabled != 0
	return a, nil
}

func configOrEmpty(config json.RawMessage) json.RawMessage {
	if len(config) == 0 {
		return json.RawMessage("{}")
	}
	return config
}

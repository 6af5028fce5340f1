package store

import (
	"context"
	"database/sql"
	"fmt"

	ports "github.com/soramar/chatd/chatd/session/ports"
)

// HistoryStore persists the conversation log as individual turn rows ordered
// by an autoincrement id. There is no per-user document to read back and
// rewrite, so an append can never clobber a concurrent append and a user who
// never chatted occupies no storage at all.
type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// LoadHistory returns every turn for the user in append order.
func (s *HistoryStore) LoadHistory(ctx context.Context, userID string) ([]ports.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, text FROM turns WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := []ports.Turn{}
	for rows.Next() {
		var role, text string
		if err := rows.Scan(&role, &text); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, ports.Turn{Role: ports.Role(role), Text: text})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}

	return turns, nil
}

// AppendPair appends the two turns in a single transaction. The transaction
// is the atomicity boundary: either both rows commit, adjacent and in order,
// or neither does.
func (s *HistoryStore) AppendPair(ctx context.Context, userID string, userTurn, modelTurn ports.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin append transaction: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO turns (user_id, role, text) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, userID, string(userTurn.Role), userTurn.Text); err != nil {
		return fmt.Errorf("failed to append user turn: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, userID, string(modelTurn.Role), modelTurn.Text); err != nil {
		return fmt.Errorf("failed to append model turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit append: %w", err)
	}
	return nil
}

// Ensure HistoryStore implements the session port.
var _ ports.HistoryStore = (*HistoryStore)(nil)

package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"calcagent/internal/db"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
)

var _ a2asrv.TaskStore = (*SQL)(nil)

// SQL stores tasks as JSON documents in the sqlite tasks table.
type SQL struct {
	conn *sql.DB
}

func NewSQL(database *db.DB) *SQL {
	return &SQL{conn: database.Conn()}
}

const upsertTask = `
INSERT INTO tasks (id, context_id, state, task_json)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    state      = excluded.state,
    task_json  = excluded.task_json,
    updated_at = CURRENT_TIMESTAMP`

func (s *SQL) Save(ctx context.Context, task *a2a.Task) error {
	b, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding task %s: %w", task.ID, err)
	}
	_, err = s.conn.ExecContext(ctx, upsertTask,
		string(task.ID), task.ContextID, string(task.Status.State), string(b))
	if err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, id a2a.TaskID) (*a2a.Task, error) {
	var raw string
	err := s.conn.QueryRowContext(ctx, `SELECT task_json FROM tasks WHERE id = ?`, string(id)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	return decode([]byte(raw))
}

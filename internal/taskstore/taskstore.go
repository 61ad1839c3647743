// Package taskstore persists A2A tasks in sqlite so they survive restarts.
// Without it the request handler keeps tasks in memory.
package taskstore

import (
	"encoding/json"
	"fmt"

	"github.com/a2aproject/a2a-go/a2a"
)

// ErrNotFound is returned for unknown task IDs.
var ErrNotFound = a2a.ErrTaskNotFound

func decode(b []byte) (*a2a.Task, error) {
	var task a2a.Task
	if err := json.Unmarshal(b, &task); err != nil {
		return nil, fmt.Errorf("decoding task: %w", err)
	}
	return &task, nil
}

package taskstore

import (
	"context"
	"path/filepath"
	"testing"

	"calcagent/internal/db"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQL(t *testing.T) *SQL {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate(context.Background()))
	return NewSQL(database)
}

func sampleTask() *a2a.Task {
	return &a2a.Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Status:    a2a.TaskStatus{State: a2a.TaskStateSubmitted},
		History: []*a2a.Message{
			a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "what is 2+2"}),
		},
	}
}

func partText(p a2a.Part) string {
	switch v := p.(type) {
	case a2a.TextPart:
		return v.Text
	case *a2a.TextPart:
		return v.Text
	}
	return ""
}

func TestSQLGetUnknown(t *testing.T) {
	_, err := newSQL(t).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, a2a.ErrTaskNotFound)
}

func TestSQLSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newSQL(t)
	task := sampleTask()
	require.NoError(t, store.Save(ctx, task))

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "ctx-1", got.ContextID)
	assert.Equal(t, a2a.TaskStateSubmitted, got.Status.State)
	require.Len(t, got.History, 1)
	assert.Equal(t, task.History[0].ID, got.History[0].ID)
	assert.Equal(t, a2a.MessageRoleUser, got.History[0].Role)
	require.Len(t, got.History[0].Parts, 1)
	assert.Equal(t, "what is 2+2", partText(got.History[0].Parts[0]))
}

func TestSQLSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newSQL(t)
	task := sampleTask()
	require.NoError(t, store.Save(ctx, task))

	task.Status = a2a.TaskStatus{State: a2a.TaskStateCompleted}
	task.Artifacts = []*a2a.Artifact{{ID: "a-1", Parts: []a2a.Part{a2a.TextPart{Text: "4"}}}}
	require.NoError(t, store.Save(ctx, task))

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	require.Len(t, got.Artifacts, 1)
	assert.Equal(t, a2a.ArtifactID("a-1"), got.Artifacts[0].ID)
	assert.Equal(t, "4", partText(got.Artifacts[0].Parts[0]))
}

func TestSQLDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	store := newSQL(t)
	task := sampleTask()
	require.NoError(t, store.Save(ctx, task))

	task.History[0].Parts[0] = a2a.TextPart{Text: "mutated"}
	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "what is 2+2", partText(got.History[0].Parts[0]))
}

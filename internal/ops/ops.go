// Package ops implements the optional task tree: hierarchical tasks
// that agents create, claim, complete, and reduce, following the same
// patterns as the channel bus (lazy creation, soft state transitions,
// id-scoped lookups).
package ops

import (
	"database/sql"
	"time"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/model"
	"github.com/iteebz/spaceos/internal/store"
)

const DBName = "ops.db"

const source = "ops"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS tasks (
    task_id TEXT PRIMARY KEY,
    parent_id TEXT,
    description TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'open',
    assigned_to TEXT,
    handover TEXT,
    channel_id TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (parent_id) REFERENCES tasks(task_id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_assigned ON tasks(assigned_to);
`

// Store is the ops.db handle.
type Store struct {
	db *sql.DB
}

// Open opens (and initialises) ops.db at path.
func Open(path string) (*Store, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	schema := store.Schema{
		Source:        source,
		DDL:           schemaDDL,
		TrackedTables: []string{"tasks"},
	}
	if err := store.Init(db, schema); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// CreateTask inserts a new task, open by default, optionally under a
// parent and optionally tied to a bridge channel.
func (s *Store) CreateTask(description, parentID, channelID string) (string, error) {
	id := core.NewID()
	_, err := s.db.Exec(`
		INSERT INTO tasks (task_id, parent_id, description, status, channel_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, nullable(parentID), description, model.TaskOpen, nullable(channelID), time.Now().Unix())
	if err != nil {
		return "", kernelerr.Storage(source, "creating task", err)
	}
	return id, nil
}

// ClaimTask resolves a short or full id and assigns it to agentID,
// moving it to claimed. Fails with Conflict if already claimed by
// someone else.
func (s *Store) ClaimTask(shortOrFull, agentID string) (fullID string, err error) {
	fullID, err = s.resolve(shortOrFull)
	if err != nil {
		return "", err
	}

	task, err := s.fetchOne(fullID)
	if err != nil {
		return "", err
	}
	if task.Status == model.TaskClaimed && task.AssignedTo != "" && task.AssignedTo != agentID {
		return "", kernelerr.Conflict(source, "task already claimed by "+task.AssignedTo)
	}

	_, err = s.db.Exec(`UPDATE tasks SET status = ?, assigned_to = ? WHERE task_id = ?`, model.TaskClaimed, agentID, fullID)
	if err != nil {
		return "", kernelerr.Storage(source, "claiming task", err)
	}
	return fullID, nil
}

// CompleteTask resolves a short or full id and marks it complete,
// recording an optional handover note.
func (s *Store) CompleteTask(shortOrFull, handover string) (fullID string, err error) {
	fullID, err = s.resolve(shortOrFull)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`UPDATE tasks SET status = ?, handover = ? WHERE task_id = ?`, model.TaskComplete, nullable(handover), fullID)
	if err != nil {
		return "", kernelerr.Storage(source, "completing task", err)
	}
	return fullID, nil
}

// BlockTask resolves a short or full id and marks it blocked.
func (s *Store) BlockTask(shortOrFull, reason string) (fullID string, err error) {
	fullID, err = s.resolve(shortOrFull)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`UPDATE tasks SET status = ?, handover = ? WHERE task_id = ?`, model.TaskBlocked, nullable(reason), fullID)
	if err != nil {
		return "", kernelerr.Storage(source, "blocking task", err)
	}
	return fullID, nil
}

// ReduceTask resolves a parent's short or full id and marks it
// complete, but only when every child task is already complete.
func (s *Store) ReduceTask(shortOrFull string) (fullID string, err error) {
	fullID, err = s.resolve(shortOrFull)
	if err != nil {
		return "", err
	}

	children, err := s.GetChildren(fullID)
	if err != nil {
		return "", err
	}
	for _, c := range children {
		if c.Status != model.TaskComplete {
			return "", kernelerr.Validation(source, "cannot reduce: child task "+core.Short(c.TaskID)+" is not complete")
		}
	}

	_, err = s.db.Exec(`UPDATE tasks SET status = ? WHERE task_id = ?`, model.TaskComplete, fullID)
	if err != nil {
		return "", kernelerr.Storage(source, "reducing task", err)
	}
	return fullID, nil
}

// GetTask resolves a short or full id and returns the task.
func (s *Store) GetTask(shortOrFull string) (*model.Task, error) {
	fullID, err := s.resolve(shortOrFull)
	if err != nil {
		return nil, err
	}
	return s.fetchOne(fullID)
}

// GetChildren returns every task whose parent_id is parentID.
func (s *Store) GetChildren(parentID string) ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT `+selectCols+` FROM tasks WHERE parent_id = ? ORDER BY created_at ASC`, parentID)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading child tasks", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ListByStatus returns tasks matching status, newest first.
func (s *Store) ListByStatus(status model.TaskStatus) ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT `+selectCols+` FROM tasks WHERE status = ? ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, kernelerr.Storage(source, "listing tasks by status", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ListByAssignee returns tasks assigned to agentID, newest first.
func (s *Store) ListByAssignee(agentID string) ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT `+selectCols+` FROM tasks WHERE assigned_to = ? ORDER BY created_at DESC`, agentID)
	if err != nil {
		return nil, kernelerr.Storage(source, "listing tasks by assignee", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *Store) resolve(shortOrFull string) (string, error) {
	return core.ResolveShort(s.db, source, "tasks", "task_id", shortOrFull, "")
}

func (s *Store) fetchOne(taskID string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+selectCols+` FROM tasks WHERE task_id = ?`, taskID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, kernelerr.NotFound(source, "no task "+taskID)
	}
	if err != nil {
		return nil, kernelerr.Storage(source, "reading task", err)
	}
	return t, nil
}

const selectCols = `task_id, COALESCE(parent_id, ''), description, status, COALESCE(assigned_to, ''), COALESCE(handover, ''), COALESCE(channel_id, ''), created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*model.Task, error) {
	var t model.Task
	if err := row.Scan(&t.TaskID, &t.ParentID, &t.Description, &t.Status, &t.AssignedTo, &t.Handover, &t.ChannelID, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]model.Task, error) {
	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, kernelerr.Storage(source, "scanning task", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

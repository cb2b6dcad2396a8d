// Package events implements the append-only event journal: the
// unified provenance trail every other subsystem writes to.
package events

import (
	"database/sql"
	"time"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/model"
	"github.com/iteebz/spaceos/internal/store"
)

const DBName = "events.db"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS events (
    event_id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    event_type TEXT NOT NULL,
    agent_id TEXT,
    data TEXT,
    timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_source ON events(source);
CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent_id);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
`

// Journal is the event store handle.
type Journal struct {
	db *sql.DB
}

// Open opens (and initialises) events.db at path.
func Open(path string) (*Journal, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	schema := store.Schema{
		Source:        "events",
		DDL:           schemaDDL,
		TrackedTables: []string{"events"},
	}
	if err := store.Init(db, schema); err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Emit inserts one append-only event row. agentID and data may be
// empty. Returns the new event's id.
func (j *Journal) Emit(source, eventType, agentID, data string) (string, error) {
	id := core.NewID()
	var agentArg any
	if agentID != "" {
		agentArg = agentID
	}
	_, err := j.db.Exec(
		`INSERT INTO events (event_id, source, event_type, agent_id, data, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		id, source, eventType, agentArg, data, time.Now().Unix(),
	)
	if err != nil {
		return "", kernelerr.Storage("events", "emitting event", err)
	}
	return id, nil
}

// QueryFilter scopes a journal query; zero-value fields are unfiltered.
type QueryFilter struct {
	Source    string
	AgentID   string
	EventType string
	Limit     int
}

// Query returns events matching filter, newest first (descending id,
// which is time-ordered since ids are UUIDv7).
func (j *Journal) Query(f QueryFilter) ([]model.Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_id, source, event_type, COALESCE(agent_id, ''), COALESCE(data, ''), timestamp FROM events WHERE 1=1`
	var args []any
	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, f.Source)
	}
	if f.AgentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, f.AgentID)
	}
	if f.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, f.EventType)
	}
	query += ` ORDER BY event_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, kernelerr.Storage("events", "querying events", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.EventID, &e.Source, &e.EventType, &e.AgentID, &e.Data, &e.Timestamp); err != nil {
			return nil, kernelerr.Storage("events", "scanning event row", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// QueryContaining returns events whose data contains topic as a
// substring, oldest first, optionally scoped to agentID. Used by
// topic-retrieval context queries.
func (j *Journal) QueryContaining(topic, agentID string) ([]model.Event, error) {
	query := `SELECT event_id, source, event_type, COALESCE(agent_id, ''), COALESCE(data, ''), timestamp FROM events WHERE data LIKE ?`
	args := []any{"%" + topic + "%"}
	if agentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY timestamp ASC`

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, kernelerr.Storage("events", "querying events containing topic", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.EventID, &e.Source, &e.EventType, &e.AgentID, &e.Data, &e.Timestamp); err != nil {
			return nil, kernelerr.Storage("events", "scanning event row", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountAllByAgent returns total event counts grouped by agent, used by
// cross-store stats aggregation.
func (j *Journal) CountAllByAgent() (map[string]int, error) {
	rows, err := j.db.Query(`SELECT agent_id, COUNT(*) FROM events WHERE agent_id IS NOT NULL GROUP BY agent_id`)
	if err != nil {
		return nil, kernelerr.Storage("events", "counting events by agent", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var agentID string
		var n int
		if err := rows.Scan(&agentID, &n); err != nil {
			return nil, kernelerr.Storage("events", "scanning agent event count", err)
		}
		out[agentID] = n
	}
	return out, rows.Err()
}

// CountByTypeAllAgents returns counts of eventType grouped by agent,
// used for per-agent spawn counts (event_type=session_start).
func (j *Journal) CountByTypeAllAgents(eventType string) (map[string]int, error) {
	rows, err := j.db.Query(`SELECT agent_id, COUNT(*) FROM events WHERE agent_id IS NOT NULL AND event_type = ? GROUP BY agent_id`, eventType)
	if err != nil {
		return nil, kernelerr.Storage("events", "counting events by type and agent", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var agentID string
		var n int
		if err := rows.Scan(&agentID, &n); err != nil {
			return nil, kernelerr.Storage("events", "scanning typed agent event count", err)
		}
		out[agentID] = n
	}
	return out, rows.Err()
}

// CountByType returns how many events of eventType exist for agentID,
// used by lifecycle (e.g. prior sleep count).
func (j *Journal) CountByType(agentID, eventType string) (int, error) {
	var n int
	err := j.db.QueryRow(
		`SELECT COUNT(*) FROM events WHERE agent_id = ? AND event_type = ?`,
		agentID, eventType,
	).Scan(&n)
	if err != nil {
		return 0, kernelerr.Storage("events", "counting events by type", err)
	}
	return n, nil
}

// Package memory implements the per-agent memory store: topic-scoped
// entries with core flagging, archival, supersession chains, and
// keyword-overlap similarity.
package memory

import (
	"database/sql"
	"time"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/model"
	"github.com/iteebz/spaceos/internal/store"
)

const DBName = "memory.db"

const source = "memory"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS memory_entries (
    memory_id TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL,
    topic TEXT NOT NULL,
    message TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    archived_at INTEGER,
    core INTEGER NOT NULL DEFAULT 0,
    source TEXT NOT NULL DEFAULT 'manual',
    bridge_channel TEXT,
    code_anchors TEXT,
    synthesis_note TEXT,
    supersedes TEXT NOT NULL DEFAULT '',
    superseded_by TEXT
);

CREATE INDEX IF NOT EXISTS idx_memory_agent ON memory_entries(agent_id);
CREATE INDEX IF NOT EXISTS idx_memory_topic ON memory_entries(topic);
CREATE INDEX IF NOT EXISTS idx_memory_core ON memory_entries(core);
CREATE INDEX IF NOT EXISTS idx_memory_archived ON memory_entries(archived_at);
`

// Store is the memory.db handle.
type Store struct {
	db *sql.DB
}

// Open opens (and initialises) memory.db at path.
func Open(path string) (*Store, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	schema := store.Schema{
		Source:        source,
		DDL:           schemaDDL,
		TrackedTables: []string{"memory_entries"},
	}
	if err := store.Init(db, schema); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// AddEntry inserts a new memory entry and returns its id.
func (s *Store) AddEntry(agentID, topic, message string, isCore bool, sourceTag, bridgeChannel, codeAnchors string) (string, error) {
	if sourceTag == "" {
		sourceTag = "manual"
	}
	id := core.NewID()
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO memory_entries
			(memory_id, agent_id, topic, message, timestamp, created_at, core, source, bridge_channel, code_anchors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, agentID, topic, message, now, now, boolToInt(isCore), sourceTag, nullable(bridgeChannel), nullable(codeAnchors))
	if err != nil {
		return "", kernelerr.Storage(source, "adding memory entry", err)
	}
	return id, nil
}

// GetMemories returns agentID's entries, newest first, optionally
// scoped to topic, optionally including archived, optionally limited.
func (s *Store) GetMemories(agentID, topic string, includeArchived bool, limit int) ([]model.MemoryEntry, error) {
	query := `SELECT ` + selectCols + ` FROM memory_entries WHERE agent_id = ?`
	args := []any{agentID}
	if topic != "" {
		query += ` AND topic = ?`
		args = append(args, topic)
	}
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY memory_id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading memories", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetByMemoryID resolves a short or full id and returns the entry.
func (s *Store) GetByMemoryID(shortOrFull string) (*model.MemoryEntry, error) {
	fullID, err := s.resolve(shortOrFull)
	if err != nil {
		return nil, err
	}
	return s.fetchOne(fullID)
}

func (s *Store) resolve(shortOrFull string) (string, error) {
	return core.ResolveShort(s.db, source, "memory_entries", "memory_id", shortOrFull, "")
}

func (s *Store) fetchOne(memoryID string) (*model.MemoryEntry, error) {
	row := s.db.QueryRow(`SELECT `+selectCols+` FROM memory_entries WHERE memory_id = ?`, memoryID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, kernelerr.NotFound(source, "no memory entry "+memoryID)
	}
	if err != nil {
		return nil, kernelerr.Storage(source, "reading memory entry", err)
	}
	return e, nil
}

// EditEntry updates an entry's message and timestamp. Emits an "edit"
// event on success; journal may be nil.
func (s *Store) EditEntry(journal *events.Journal, short, newMessage string) (fullID string, err error) {
	fullID, err = s.resolve(short)
	if err != nil {
		return "", err
	}
	entry, err := s.fetchOne(fullID)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`UPDATE memory_entries SET message = ?, timestamp = ? WHERE memory_id = ?`, newMessage, time.Now().Unix(), fullID)
	if err != nil {
		return "", kernelerr.Storage(source, "editing memory entry", err)
	}
	if journal != nil {
		if _, err := journal.Emit(source, "edit", entry.AgentID, core.Short(fullID)); err != nil {
			return "", err
		}
	}
	return fullID, nil
}

// DeleteEntry hard-deletes an entry. Emits a "delete" event on
// success; journal may be nil.
func (s *Store) DeleteEntry(journal *events.Journal, short string) (fullID string, err error) {
	fullID, err = s.resolve(short)
	if err != nil {
		return "", err
	}
	entry, err := s.fetchOne(fullID)
	if err != nil {
		return "", err
	}
	if _, err := s.db.Exec(`DELETE FROM memory_entries WHERE memory_id = ?`, fullID); err != nil {
		return "", kernelerr.Storage(source, "deleting memory entry", err)
	}
	if journal != nil {
		if _, err := journal.Emit(source, "delete", entry.AgentID, core.Short(fullID)); err != nil {
			return "", err
		}
	}
	return fullID, nil
}

// ArchiveEntry sets archived_at. Emits an "archive" event on success;
// journal may be nil.
func (s *Store) ArchiveEntry(journal *events.Journal, short string) (fullID string, err error) {
	fullID, err = s.resolve(short)
	if err != nil {
		return "", err
	}
	entry, err := s.fetchOne(fullID)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`UPDATE memory_entries SET archived_at = ? WHERE memory_id = ?`, time.Now().Unix(), fullID)
	if err != nil {
		return "", kernelerr.Storage(source, "archiving memory entry", err)
	}
	if journal != nil {
		if _, err := journal.Emit(source, "archive", entry.AgentID, core.Short(fullID)); err != nil {
			return "", err
		}
	}
	return fullID, nil
}

// RestoreEntry clears archived_at. Per spec §4.7, this only clears an
// explicit archive; entries archived by supersession should be
// reached by traversing the chain instead. Emits a "restore" event on
// success; journal may be nil.
func (s *Store) RestoreEntry(journal *events.Journal, short string) (fullID string, err error) {
	fullID, err = s.resolve(short)
	if err != nil {
		return "", err
	}
	entry, err := s.fetchOne(fullID)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`UPDATE memory_entries SET archived_at = NULL WHERE memory_id = ?`, fullID)
	if err != nil {
		return "", kernelerr.Storage(source, "restoring memory entry", err)
	}
	if journal != nil {
		if _, err := journal.Emit(source, "restore", entry.AgentID, core.Short(fullID)); err != nil {
			return "", err
		}
	}
	return fullID, nil
}

// MarkCore sets or clears the core flag. Emits a "mark_core" event on
// success; journal may be nil.
func (s *Store) MarkCore(journal *events.Journal, short string, coreFlag bool) (fullID string, err error) {
	fullID, err = s.resolve(short)
	if err != nil {
		return "", err
	}
	entry, err := s.fetchOne(fullID)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`UPDATE memory_entries SET core = ? WHERE memory_id = ?`, boolToInt(coreFlag), fullID)
	if err != nil {
		return "", kernelerr.Storage(source, "marking core", err)
	}
	if journal != nil {
		if _, err := journal.Emit(source, "mark_core", entry.AgentID, core.Short(fullID)); err != nil {
			return "", err
		}
	}
	return fullID, nil
}

// SearchEntries does a LIKE %keyword% match across topic and message.
func (s *Store) SearchEntries(agentID, keyword string, includeArchived bool) ([]model.MemoryEntry, error) {
	query := `SELECT ` + selectCols + ` FROM memory_entries WHERE agent_id = ? AND (topic LIKE ? OR message LIKE ?)`
	args := []any{agentID, "%" + keyword + "%", "%" + keyword + "%"}
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY memory_id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, kernelerr.Storage(source, "searching memories", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetCoreEntries returns active entries flagged core.
func (s *Store) GetCoreEntries(agentID string) ([]model.MemoryEntry, error) {
	rows, err := s.db.Query(`SELECT `+selectCols+` FROM memory_entries WHERE agent_id = ? AND core = 1 AND archived_at IS NULL ORDER BY memory_id DESC`, agentID)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading core entries", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetRecentEntries returns non-archived entries from the last `days`
// days, newest first, bounded by limit.
func (s *Store) GetRecentEntries(agentID string, days int, limit int) ([]model.MemoryEntry, error) {
	cutoff := time.Now().Unix() - int64(days)*86400
	query := `SELECT ` + selectCols + ` FROM memory_entries WHERE agent_id = ? AND archived_at IS NULL AND created_at >= ? ORDER BY memory_id DESC`
	args := []any{agentID, cutoff}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading recent entries", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// SearchAllEntries returns entries whose topic or message contains
// topic, newest first, across every agent unless agentID scopes it.
// Distinct from SearchEntries, which always scopes to a single agent.
func (s *Store) SearchAllEntries(topic, agentID string, includeArchived bool) ([]model.MemoryEntry, error) {
	query := `SELECT ` + selectCols + ` FROM memory_entries WHERE (message LIKE ? OR topic LIKE ?)`
	args := []any{"%" + topic + "%", "%" + topic + "%"}
	if agentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY memory_id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, kernelerr.Storage(source, "searching all memory entries", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// CountEntriesByAgent returns entry counts grouped by agent, archived
// entries included, used by cross-store stats aggregation.
func (s *Store) CountEntriesByAgent() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT agent_id, COUNT(*) FROM memory_entries GROUP BY agent_id`)
	if err != nil {
		return nil, kernelerr.Storage(source, "counting entries by agent", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var agentID string
		var n int
		if err := rows.Scan(&agentID, &n); err != nil {
			return nil, kernelerr.Storage(source, "scanning entry count", err)
		}
		out[agentID] = n
	}
	return out, rows.Err()
}

const selectCols = `memory_id, agent_id, topic, message, timestamp, created_at,
	COALESCE(archived_at, 0), core, source, COALESCE(bridge_channel, ''),
	COALESCE(code_anchors, ''), COALESCE(synthesis_note, ''), supersedes, COALESCE(superseded_by, '')`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*model.MemoryEntry, error) {
	var e model.MemoryEntry
	var coreInt int
	if err := row.Scan(
		&e.MemoryID, &e.AgentID, &e.Topic, &e.Message, &e.Timestamp, &e.CreatedAt,
		&e.ArchivedAt, &coreInt, &e.Source, &e.BridgeChannel,
		&e.CodeAnchors, &e.SynthesisNote, &e.Supersedes, &e.SupersededBy,
	); err != nil {
		return nil, err
	}
	e.Core = coreInt != 0
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]model.MemoryEntry, error) {
	var out []model.MemoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, kernelerr.Storage(source, "scanning memory entry", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

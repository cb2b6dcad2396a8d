// Package knowledge implements the shared, domain-scoped knowledge
// store: every agent writes to the same pool, attributed by agent_id,
// queryable by domain or contributor, with keyword-overlap similarity.
package knowledge

import (
	"database/sql"
	"time"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/model"
	"github.com/iteebz/spaceos/internal/store"
)

const DBName = "knowledge.db"

const source = "knowledge"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS knowledge_entries (
    knowledge_id TEXT PRIMARY KEY,
    domain TEXT NOT NULL,
    agent_id TEXT NOT NULL,
    content TEXT NOT NULL,
    confidence REAL,
    created_at INTEGER NOT NULL,
    archived_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_knowledge_domain ON knowledge_entries(domain);
CREATE INDEX IF NOT EXISTS idx_knowledge_agent ON knowledge_entries(agent_id);
CREATE INDEX IF NOT EXISTS idx_knowledge_archived ON knowledge_entries(archived_at);
`

// Store is the knowledge.db handle.
type Store struct {
	db *sql.DB
}

// Open opens (and initialises) knowledge.db at path.
func Open(path string) (*Store, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	schema := store.Schema{
		Source:        source,
		DDL:           schemaDDL,
		TrackedTables: []string{"knowledge_entries"},
	}
	if err := store.Init(db, schema); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// WriteKnowledge inserts a new entry and emits an "entry.write" event.
func (s *Store) WriteKnowledge(journal *events.Journal, domain, agentID, content string, confidence *float64) (string, error) {
	id := core.NewID()
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO knowledge_entries (knowledge_id, domain, agent_id, content, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, domain, agentID, content, confidence, now)
	if err != nil {
		return "", kernelerr.Storage(source, "writing knowledge entry", err)
	}

	if journal != nil {
		summary := content
		if len(summary) > 50 {
			summary = summary[:50]
		}
		if _, err := journal.Emit(source, "entry.write", agentID, domain+":"+summary); err != nil {
			return "", err
		}
	}

	return id, nil
}

// QueryByDomain returns entries for a domain, newest first.
func (s *Store) QueryByDomain(domain string, includeArchived bool) ([]model.KnowledgeEntry, error) {
	query := `SELECT ` + selectCols + ` FROM knowledge_entries WHERE domain = ?`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, domain)
	if err != nil {
		return nil, kernelerr.Storage(source, "querying by domain", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// QueryByAgent returns entries contributed by agentID, newest first.
func (s *Store) QueryByAgent(agentID string, includeArchived bool) ([]model.KnowledgeEntry, error) {
	query := `SELECT ` + selectCols + ` FROM knowledge_entries WHERE agent_id = ?`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, agentID)
	if err != nil {
		return nil, kernelerr.Storage(source, "querying by agent", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListAll returns every entry, newest first.
func (s *Store) ListAll(includeArchived bool) ([]model.KnowledgeEntry, error) {
	query := `SELECT ` + selectCols + ` FROM knowledge_entries`
	if !includeArchived {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, kernelerr.Storage(source, "listing knowledge entries", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetByID resolves a short or full id and returns the entry.
func (s *Store) GetByID(shortOrFull string) (*model.KnowledgeEntry, error) {
	fullID, err := core.ResolveShort(s.db, source, "knowledge_entries", "knowledge_id", shortOrFull, "")
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`SELECT `+selectCols+` FROM knowledge_entries WHERE knowledge_id = ?`, fullID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, kernelerr.NotFound(source, "no knowledge entry "+fullID)
	}
	if err != nil {
		return nil, kernelerr.Storage(source, "reading knowledge entry", err)
	}
	return e, nil
}

// ArchiveEntry sets archived_at. Emits an "archive" event on success;
// journal may be nil.
func (s *Store) ArchiveEntry(journal *events.Journal, shortOrFull string) (fullID string, err error) {
	fullID, err = core.ResolveShort(s.db, source, "knowledge_entries", "knowledge_id", shortOrFull, "")
	if err != nil {
		return "", err
	}
	entry, err := s.GetByID(fullID)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`UPDATE knowledge_entries SET archived_at = ? WHERE knowledge_id = ?`, time.Now().Unix(), fullID)
	if err != nil {
		return "", kernelerr.Storage(source, "archiving knowledge entry", err)
	}
	if journal != nil {
		if _, err := journal.Emit(source, "archive", entry.AgentID, core.Short(fullID)); err != nil {
			return "", err
		}
	}
	return fullID, nil
}

// RestoreEntry clears archived_at. Emits a "restore" event on
// success; journal may be nil.
func (s *Store) RestoreEntry(journal *events.Journal, shortOrFull string) (fullID string, err error) {
	fullID, err = core.ResolveShort(s.db, source, "knowledge_entries", "knowledge_id", shortOrFull, "")
	if err != nil {
		return "", err
	}
	entry, err := s.GetByID(fullID)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`UPDATE knowledge_entries SET archived_at = NULL WHERE knowledge_id = ?`, fullID)
	if err != nil {
		return "", kernelerr.Storage(source, "restoring knowledge entry", err)
	}
	if journal != nil {
		if _, err := journal.Emit(source, "restore", entry.AgentID, core.Short(fullID)); err != nil {
			return "", err
		}
	}
	return fullID, nil
}

// SearchEntries returns entries whose domain or content contains
// topic, newest first, optionally scoped to a contributor.
func (s *Store) SearchEntries(topic, agentID string, includeArchived bool) ([]model.KnowledgeEntry, error) {
	query := `SELECT ` + selectCols + ` FROM knowledge_entries WHERE (content LIKE ? OR domain LIKE ?)`
	args := []any{"%" + topic + "%", "%" + topic + "%"}
	if agentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, kernelerr.Storage(source, "searching knowledge entries", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// CountEntriesByAgent returns entry counts grouped by contributor,
// used by cross-store stats aggregation.
func (s *Store) CountEntriesByAgent() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT agent_id, COUNT(*) FROM knowledge_entries GROUP BY agent_id`)
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

const selectCols = `knowledge_id, domain, agent_id, content, confidence, created_at, COALESCE(archived_at, 0)`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*model.KnowledgeEntry, error) {
	var e model.KnowledgeEntry
	var confidence sql.NullFloat64
	if err := row.Scan(&e.KnowledgeID, &e.Domain, &e.AgentID, &e.Content, &confidence, &e.CreatedAt, &e.ArchivedAt); err != nil {
		return nil, err
	}
	if confidence.Valid {
		e.Confidence = &confidence.Float64
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]model.KnowledgeEntry, error) {
	var out []model.KnowledgeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, kernelerr.Storage(source, "scanning knowledge entry", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

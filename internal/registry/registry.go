// Package registry implements the identity & constitution registry:
// agents keyed by UUIDv7, their aliases and canonical forest, and the
// content-addressed constitution store.
package registry

import (
	"database/sql"
	"time"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/store"
)

const DBName = "registry.db"

const source = "registry"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS agents (
    agent_id TEXT PRIMARY KEY,
    name TEXT,
    self_description TEXT,
    canonical_id TEXT,
    created_at INTEGER NOT NULL,
    archived_at INTEGER,
    FOREIGN KEY (canonical_id) REFERENCES agents(agent_id)
);

CREATE TABLE IF NOT EXISTS agent_aliases (
    agent_id TEXT NOT NULL,
    alias TEXT NOT NULL,
    PRIMARY KEY (agent_id, alias),
    FOREIGN KEY (agent_id) REFERENCES agents(agent_id)
);

CREATE TABLE IF NOT EXISTS constitutions (
    hash TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agents_name ON agents(name);
CREATE INDEX IF NOT EXISTS idx_aliases_alias ON agent_aliases(alias);
`

// Registry is the registry.db handle.
type Registry struct {
	db *sql.DB
}

// Open opens (and initialises) registry.db at path.
func Open(path string) (*Registry, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	schema := store.Schema{
		Source:        source,
		DDL:           schemaDDL,
		TrackedTables: []string{"agents", "agent_aliases", "constitutions"},
	}
	if err := store.Init(db, schema); err != nil {
		return nil, err
	}
	return &Registry{db: db}, nil
}

func (r *Registry) Close() error { return r.db.Close() }

// EnsureAgent looks up name by name-or-alias; if absent, allocates a
// new UUIDv7, inserts into agents and agent_aliases. Idempotent.
func (r *Registry) EnsureAgent(name string) (string, error) {
	if id, err := r.GetAgentID(name); err != nil {
		return "", err
	} else if id != "" {
		return id, nil
	}

	id := core.NewID()
	tx, err := r.db.Begin()
	if err != nil {
		return "", kernelerr.Storage(source, "beginning ensure_agent transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO agents (agent_id, name, created_at) VALUES (?, ?, ?)`, id, name, time.Now().Unix()); err != nil {
		return "", kernelerr.Storage(source, "inserting agent", err)
	}
	if _, err := tx.Exec(`INSERT INTO agent_aliases (agent_id, alias) VALUES (?, ?)`, id, name); err != nil {
		return "", kernelerr.Storage(source, "inserting self-alias", err)
	}
	if err := tx.Commit(); err != nil {
		return "", kernelerr.Storage(source, "committing ensure_agent", err)
	}
	return id, nil
}

// GetAgentID resolves name-or-alias to a canonical agent_id, or ""
// when unknown. Matches the original registry's double hop: an alias
// resolves to its owning agent row, which is then itself followed to
// its canonical_id if one is set.
func (r *Registry) GetAgentID(name string) (string, error) {
	var id string
	var canonical sql.NullString
	err := r.db.QueryRow(`SELECT agent_id, canonical_id FROM agents WHERE name = ?`, name).Scan(&id, &canonical)
	if err == nil {
		if canonical.Valid && canonical.String != "" {
			return canonical.String, nil
		}
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", kernelerr.Storage(source, "looking up agent by name", err)
	}

	var aliasAgentID string
	err = r.db.QueryRow(`SELECT agent_id FROM agent_aliases WHERE alias = ?`, name).Scan(&aliasAgentID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", kernelerr.Storage(source, "looking up agent by alias", err)
	}

	err = r.db.QueryRow(`SELECT canonical_id FROM agents WHERE agent_id = ?`, aliasAgentID).Scan(&canonical)
	if err != nil {
		return "", kernelerr.Storage(source, "resolving alias canonical", err)
	}
	if canonical.Valid && canonical.String != "" {
		return canonical.String, nil
	}
	return aliasAgentID, nil
}

// GetAgentName returns the display name for agentID, or "" if unknown.
func (r *Registry) GetAgentName(agentID string) (string, error) {
	var name sql.NullString
	err := r.db.QueryRow(`SELECT name FROM agents WHERE agent_id = ?`, agentID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", kernelerr.Storage(source, "looking up agent name", err)
	}
	return name.String, nil
}

// RenameAgent renames old to new, failing with Conflict if new is
// already taken by a different agent.
func (r *Registry) RenameAgent(oldName, newName string) error {
	existing, err := r.GetAgentID(newName)
	if err != nil {
		return err
	}
	if existing != "" {
		oldID, err := r.GetAgentID(oldName)
		if err != nil {
			return err
		}
		if existing != oldID {
			return kernelerr.Conflict(source, "agent name already in use: "+newName)
		}
	}

	res, err := r.db.Exec(`UPDATE agents SET name = ? WHERE name = ?`, newName, oldName)
	if err != nil {
		return kernelerr.Storage(source, "renaming agent", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return kernelerr.NotFound(source, "no agent named "+oldName)
	}
	return nil
}

// GetSelfDescription returns agent's self-description, or "" if unset.
func (r *Registry) GetSelfDescription(name string) (string, error) {
	var desc sql.NullString
	err := r.db.QueryRow(`SELECT self_description FROM agents WHERE name = ?`, name).Scan(&desc)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", kernelerr.Storage(source, "reading self-description", err)
	}
	return desc.String, nil
}

// SetSelfDescription inserts-or-updates an agent's self-description.
func (r *Registry) SetSelfDescription(name, description string) error {
	res, err := r.db.Exec(`UPDATE agents SET self_description = ? WHERE name = ?`, description, name)
	if err != nil {
		return kernelerr.Storage(source, "updating self-description", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	id := core.NewID()
	_, err = r.db.Exec(
		`INSERT INTO agents (agent_id, name, self_description, created_at) VALUES (?, ?, ?, ?)`,
		id, name, description, time.Now().Unix(),
	)
	if err != nil {
		return kernelerr.Storage(source, "inserting agent with self-description", err)
	}
	return nil
}

// AddAlias maps alias to agentID.
func (r *Registry) AddAlias(agentID, alias string) error {
	_, err := r.db.Exec(`INSERT OR IGNORE INTO agent_aliases (agent_id, alias) VALUES (?, ?)`, agentID, alias)
	if err != nil {
		return kernelerr.Storage(source, "adding alias", err)
	}
	return nil
}

// SetCanonical marks agentID as an alias forest member pointing at
// canonicalID (identity merging).
func (r *Registry) SetCanonical(agentID, canonicalID string) error {
	_, err := r.db.Exec(`UPDATE agents SET canonical_id = ? WHERE agent_id = ?`, canonicalID, agentID)
	if err != nil {
		return kernelerr.Storage(source, "setting canonical id", err)
	}
	return nil
}

// SaveConstitution writes content under hash, content-addressed:
// duplicate puts are no-ops.
func (r *Registry) SaveConstitution(hash, content string) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO constitutions (hash, content, created_at) VALUES (?, ?, ?)`,
		hash, content, time.Now().Unix(),
	)
	if err != nil {
		return kernelerr.Storage(source, "saving constitution", err)
	}
	return nil
}

// GetConstitution returns content for hash, or "" if unknown.
func (r *Registry) GetConstitution(hash string) (string, error) {
	var content string
	err := r.db.QueryRow(`SELECT content FROM constitutions WHERE hash = ?`, hash).Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", kernelerr.Storage(source, "reading constitution", err)
	}
	return content, nil
}

// DB exposes the underlying connection for cross-package short-id
// resolution helpers (core.ResolveShort).
func (r *Registry) DB() *sql.DB { return r.db }

// AgentRecord is a registered, non-archived agent's identity row.
type AgentRecord struct {
	AgentID string
	Name    string
}

// ListActiveAgents returns every agent that has not been archived.
func (r *Registry) ListActiveAgents() ([]AgentRecord, error) {
	rows, err := r.db.Query(`SELECT agent_id, COALESCE(name, '') FROM agents WHERE archived_at IS NULL`)
	if err != nil {
		return nil, kernelerr.Storage(source, "listing active agents", err)
	}
	defer rows.Close()

	var out []AgentRecord
	for rows.Next() {
		var rec AgentRecord
		if err := rows.Scan(&rec.AgentID, &rec.Name); err != nil {
			return nil, kernelerr.Storage(source, "scanning agent record", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Package bridge implements the channel message bus: channels,
// messages, per-agent bookmarks, alerts, notes, archival, rename, and
// export.
package bridge

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/model"
	"github.com/iteebz/spaceos/internal/store"
)

const DBName = "bridge.db"

const source = "bridge"

// SummaryChannel is special-cased in GetNewMessages to return only
// the single latest message regardless of bookmark — load-bearing for
// sleep summaries per spec §9.
const SummaryChannel = "summary"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS channels (
    channel_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    topic TEXT,
    created_at INTEGER NOT NULL,
    archived_at INTEGER
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_channels_active_name
    ON channels(name) WHERE archived_at IS NULL;

CREATE TABLE IF NOT EXISTS messages (
    message_id TEXT PRIMARY KEY,
    channel_id TEXT NOT NULL,
    agent_id TEXT NOT NULL,
    content TEXT NOT NULL,
    priority TEXT NOT NULL DEFAULT 'normal',
    created_at INTEGER NOT NULL,
    FOREIGN KEY (channel_id) REFERENCES channels(channel_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, message_id);
CREATE INDEX IF NOT EXISTS idx_messages_agent ON messages(agent_id);
CREATE INDEX IF NOT EXISTS idx_messages_priority ON messages(priority);

CREATE TABLE IF NOT EXISTS bookmarks (
    agent_id TEXT NOT NULL,
    channel_id TEXT NOT NULL,
    last_seen_id TEXT NOT NULL,
    last_seen_at INTEGER NOT NULL,
    PRIMARY KEY (agent_id, channel_id)
);

CREATE TABLE IF NOT EXISTS notes (
    note_id TEXT PRIMARY KEY,
    channel_id TEXT NOT NULL,
    author TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (channel_id) REFERENCES channels(channel_id)
);

CREATE INDEX IF NOT EXISTS idx_notes_channel ON notes(channel_id);
`

// Bus is the bridge.db handle.
type Bus struct {
	db *sql.DB
}

// Open opens (and initialises) bridge.db at path.
func Open(path string) (*Bus, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	schema := store.Schema{
		Source:        source,
		DDL:           schemaDDL,
		TrackedTables: []string{"channels", "messages", "bookmarks", "notes"},
	}
	if err := store.Init(db, schema); err != nil {
		return nil, err
	}
	return &Bus{db: db}, nil
}

func (b *Bus) Close() error { return b.db.Close() }

// ResolveChannelID returns name's channel_id, creating it on first
// reference (resolve-creates semantics, distinct from GetChannelID's
// lookup-only semantics).
func (b *Bus) ResolveChannelID(name string) (string, error) {
	id, err := b.lookupActiveChannelID(name)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return b.CreateChannel(name, "")
}

// GetChannelID looks up name's channel_id, raising NotFound if absent
// (lookup, not resolve-creates).
func (b *Bus) GetChannelID(name string) (string, error) {
	id, err := b.lookupActiveChannelID(name)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", kernelerr.NotFound(source, "no active channel named "+name)
	}
	return id, nil
}

func (b *Bus) lookupActiveChannelID(name string) (string, error) {
	var id string
	err := b.db.QueryRow(`SELECT channel_id FROM channels WHERE name = ? AND archived_at IS NULL`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", kernelerr.Storage(source, "looking up channel", err)
	}
	return id, nil
}

// CreateChannel creates a new channel, failing with Conflict if an
// active channel already has that name.
func (b *Bus) CreateChannel(name, topic string) (string, error) {
	existing, err := b.lookupActiveChannelID(name)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return "", kernelerr.Conflict(source, "channel already exists: "+name)
	}

	id := core.NewID()
	var topicArg any
	if topic != "" {
		topicArg = topic
	}
	_, err = b.db.Exec(
		`INSERT INTO channels (channel_id, name, topic, created_at) VALUES (?, ?, ?, ?)`,
		id, name, topicArg, time.Now().Unix(),
	)
	if err != nil {
		return "", kernelerr.Storage(source, "creating channel", err)
	}
	return id, nil
}

// GetChannelName returns the channel's name.
func (b *Bus) GetChannelName(channelID string) (string, error) {
	var name string
	err := b.db.QueryRow(`SELECT name FROM channels WHERE channel_id = ?`, channelID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", kernelerr.NotFound(source, "unknown channel "+channelID)
	}
	if err != nil {
		return "", kernelerr.Storage(source, "reading channel name", err)
	}
	return name, nil
}

// GetChannelTopic returns the channel's topic, or "" if unset.
func (b *Bus) GetChannelTopic(channelID string) (string, error) {
	var topic sql.NullString
	err := b.db.QueryRow(`SELECT topic FROM channels WHERE channel_id = ?`, channelID).Scan(&topic)
	if err == sql.ErrNoRows {
		return "", kernelerr.NotFound(source, "unknown channel "+channelID)
	}
	if err != nil {
		return "", kernelerr.Storage(source, "reading channel topic", err)
	}
	return topic.String, nil
}

// SetTopic sets the channel's topic only if currently unset.
func (b *Bus) SetTopic(channelID, topic string) error {
	res, err := b.db.Exec(
		`UPDATE channels SET topic = ? WHERE channel_id = ? AND (topic IS NULL OR topic = '')`,
		topic, channelID,
	)
	if err != nil {
		return kernelerr.Storage(source, "setting topic", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the channel doesn't exist, or the topic is already set;
		// disambiguate for a precise error.
		existingTopic, err := b.GetChannelTopic(channelID)
		if err != nil {
			return err
		}
		if existingTopic != "" {
			return kernelerr.Conflict(source, "topic already set for channel "+channelID)
		}
	}
	return nil
}

// RenameOutcome distinguishes the tri-state result of RenameChannel.
type RenameOutcome int

const (
	RenameOK RenameOutcome = iota
	RenameNotFound
	RenameConflict
	RenameConflictArchived
)

// RenameChannel renames old to new, preserving channel_id (and thus
// every message_id, bookmark, and note tied to it). Reports conflicts
// against an active channel distinctly from conflicts against an
// archived channel sharing the target name. On RenameOK it emits a
// "channel.rename" event; journal may be nil.
func (b *Bus) RenameChannel(journal *events.Journal, agentID, oldName, newName string) (RenameOutcome, error) {
	channelID, err := b.lookupActiveChannelID(oldName)
	if err != nil {
		return RenameNotFound, err
	}
	if channelID == "" {
		return RenameNotFound, nil
	}

	var conflictArchived sql.NullInt64
	err = b.db.QueryRow(`SELECT archived_at FROM channels WHERE name = ? AND channel_id != ?`, newName, channelID).Scan(&conflictArchived)
	if err == nil {
		if conflictArchived.Valid {
			return RenameConflictArchived, nil
		}
		return RenameConflict, nil
	}
	if err != sql.ErrNoRows {
		return RenameNotFound, kernelerr.Storage(source, "checking rename target", err)
	}

	if _, err := b.db.Exec(`UPDATE channels SET name = ? WHERE channel_id = ?`, newName, channelID); err != nil {
		return RenameNotFound, kernelerr.Storage(source, "renaming channel", err)
	}

	if journal != nil {
		if _, err := journal.Emit(source, "channel.rename", agentID, fmt.Sprintf("%s:%s->%s", core.Short(channelID), oldName, newName)); err != nil {
			return RenameOK, err
		}
	}
	return RenameOK, nil
}

// ArchiveChannel soft-deletes a channel: it disappears from
// GetNewMessages, GetAlerts, and default FetchChannels. Emits a
// "channel.archive" event on success; journal may be nil.
func (b *Bus) ArchiveChannel(journal *events.Journal, agentID, channelID string) error {
	res, err := b.db.Exec(`UPDATE channels SET archived_at = ? WHERE channel_id = ? AND archived_at IS NULL`, time.Now().Unix(), channelID)
	if err != nil {
		return kernelerr.Storage(source, "archiving channel", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return kernelerr.NotFound(source, "no active channel "+channelID)
	}
	if journal != nil {
		if _, err := journal.Emit(source, "channel.archive", agentID, core.Short(channelID)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteChannel hard-deletes a channel, cascading to messages,
// bookmarks, and notes. Emits a "channel.delete" event on success;
// journal may be nil.
func (b *Bus) DeleteChannel(journal *events.Journal, agentID, channelID string) error {
	tx, err := b.db.Begin()
	if err != nil {
		return kernelerr.Storage(source, "beginning delete transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE channel_id = ?`, channelID); err != nil {
		return kernelerr.Storage(source, "deleting messages", err)
	}
	if _, err := tx.Exec(`DELETE FROM bookmarks WHERE channel_id = ?`, channelID); err != nil {
		return kernelerr.Storage(source, "deleting bookmarks", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE channel_id = ?`, channelID); err != nil {
		return kernelerr.Storage(source, "deleting notes", err)
	}
	res, err := tx.Exec(`DELETE FROM channels WHERE channel_id = ?`, channelID)
	if err != nil {
		return kernelerr.Storage(source, "deleting channel", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return kernelerr.NotFound(source, "unknown channel "+channelID)
	}
	if err := tx.Commit(); err != nil {
		return kernelerr.Storage(source, "committing delete", err)
	}

	if journal != nil {
		if _, err := journal.Emit(source, "channel.delete", agentID, core.Short(channelID)); err != nil {
			return err
		}
	}
	return nil
}

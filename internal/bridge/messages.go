package bridge

import (
	"database/sql"
	"time"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/model"
)

// CreateMessage inserts a message into channelID, creating the
// channel on first reference via ResolveChannelID semantics is the
// caller's job — this expects an existing channel_id. Emits a
// "message.create" event on success; journal may be nil, in which case
// nothing is journaled.
func (b *Bus) CreateMessage(journal *events.Journal, channelID, agentID, content string, priority model.Priority) (string, error) {
	if priority == "" {
		priority = model.PriorityNormal
	}
	id := core.NewID()
	_, err := b.db.Exec(
		`INSERT INTO messages (message_id, channel_id, agent_id, content, priority, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, channelID, agentID, content, string(priority), time.Now().Unix(),
	)
	if err != nil {
		return "", kernelerr.Storage(source, "creating message", err)
	}

	if journal != nil {
		if _, err := journal.Emit(source, "message.create", agentID, core.Short(id)); err != nil {
			return "", err
		}
	}
	return id, nil
}

// GetNewMessages returns messages in channelID with id greater than
// agentID's bookmark, from active channels only, in insertion order.
// The summary channel is special-cased to return only the single
// latest message regardless of bookmark.
func (b *Bus) GetNewMessages(channelID, agentID string) ([]model.Message, error) {
	name, err := b.GetChannelName(channelID)
	if err != nil {
		return nil, err
	}
	if name == SummaryChannel {
		return b.latestMessage(channelID)
	}

	active, err := b.channelActive(channelID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, nil
	}

	bookmark, err := b.getBookmark(agentID, channelID)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if bookmark == "" {
		rows, err = b.db.Query(
			`SELECT message_id, channel_id, agent_id, content, priority, created_at FROM messages WHERE channel_id = ? ORDER BY message_id ASC`,
			channelID,
		)
	} else {
		rows, err = b.db.Query(
			`SELECT message_id, channel_id, agent_id, content, priority, created_at FROM messages WHERE channel_id = ? AND message_id > ? ORDER BY message_id ASC`,
			channelID, bookmark,
		)
	}
	if err != nil {
		return nil, kernelerr.Storage(source, "querying new messages", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (b *Bus) latestMessage(channelID string) ([]model.Message, error) {
	rows, err := b.db.Query(
		`SELECT message_id, channel_id, agent_id, content, priority, created_at FROM messages WHERE channel_id = ? ORDER BY message_id DESC LIMIT 1`,
		channelID,
	)
	if err != nil {
		return nil, kernelerr.Storage(source, "querying summary channel", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (b *Bus) channelActive(channelID string) (bool, error) {
	var archivedAt sql.NullInt64
	err := b.db.QueryRow(`SELECT archived_at FROM channels WHERE channel_id = ?`, channelID).Scan(&archivedAt)
	if err == sql.ErrNoRows {
		return false, kernelerr.NotFound(source, "unknown channel "+channelID)
	}
	if err != nil {
		return false, kernelerr.Storage(source, "checking channel archival", err)
	}
	return !archivedAt.Valid, nil
}

func (b *Bus) getBookmark(agentID, channelID string) (string, error) {
	var lastSeen string
	err := b.db.QueryRow(`SELECT last_seen_id FROM bookmarks WHERE agent_id = ? AND channel_id = ?`, agentID, channelID).Scan(&lastSeen)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", kernelerr.Storage(source, "reading bookmark", err)
	}
	return lastSeen, nil
}

// SetBookmark advances agentID's read cursor for channelID to
// lastSeenID. Hardened beyond a blind upsert: the stored value is the
// max of the existing and incoming id, so the monotonicity invariant
// holds even if callers race or pass a stale id out of order.
func (b *Bus) SetBookmark(agentID, channelID, lastSeenID string) error {
	_, err := b.db.Exec(`
		INSERT INTO bookmarks (agent_id, channel_id, last_seen_id, last_seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (agent_id, channel_id) DO UPDATE SET
			last_seen_id = MAX(last_seen_id, excluded.last_seen_id),
			last_seen_at = excluded.last_seen_at
	`, agentID, channelID, lastSeenID, time.Now().Unix())
	if err != nil {
		return kernelerr.Storage(source, "setting bookmark", err)
	}
	return nil
}

// RecvUpdates atomically reads new messages for agentID in channelID
// and advances the bookmark to the last returned id, so two concurrent
// recvs cannot double-advance.
func (b *Bus) RecvUpdates(channelID, agentID string) (messages []model.Message, count int, topic string, participants []string, err error) {
	tx, err := b.db.Begin()
	if err != nil {
		return nil, 0, "", nil, kernelerr.Storage(source, "beginning recv transaction", err)
	}
	defer tx.Rollback()

	msgs, err := b.getNewMessagesTx(tx, channelID, agentID)
	if err != nil {
		return nil, 0, "", nil, err
	}

	if len(msgs) > 0 {
		maxID := msgs[len(msgs)-1].MessageID
		_, err = tx.Exec(`
			INSERT INTO bookmarks (agent_id, channel_id, last_seen_id, last_seen_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (agent_id, channel_id) DO UPDATE SET
				last_seen_id = MAX(last_seen_id, excluded.last_seen_id),
				last_seen_at = excluded.last_seen_at
		`, agentID, channelID, maxID, time.Now().Unix())
		if err != nil {
			return nil, 0, "", nil, kernelerr.Storage(source, "advancing bookmark", err)
		}
	}

	topic, err = b.topicTx(tx, channelID)
	if err != nil {
		return nil, 0, "", nil, err
	}
	participants, err = b.participantsTx(tx, channelID)
	if err != nil {
		return nil, 0, "", nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, "", nil, kernelerr.Storage(source, "committing recv", err)
	}

	return msgs, len(msgs), topic, participants, nil
}

func (b *Bus) getNewMessagesTx(tx *sql.Tx, channelID, agentID string) ([]model.Message, error) {
	var archivedAt sql.NullInt64
	err := tx.QueryRow(`SELECT archived_at FROM channels WHERE channel_id = ?`, channelID).Scan(&archivedAt)
	if err == sql.ErrNoRows {
		return nil, kernelerr.NotFound(source, "unknown channel "+channelID)
	}
	if err != nil {
		return nil, kernelerr.Storage(source, "checking channel archival", err)
	}
	if archivedAt.Valid {
		return nil, nil
	}

	var bookmark string
	err = tx.QueryRow(`SELECT last_seen_id FROM bookmarks WHERE agent_id = ? AND channel_id = ?`, agentID, channelID).Scan(&bookmark)
	if err != nil && err != sql.ErrNoRows {
		return nil, kernelerr.Storage(source, "reading bookmark", err)
	}

	var rows *sql.Rows
	if bookmark == "" {
		rows, err = tx.Query(
			`SELECT message_id, channel_id, agent_id, content, priority, created_at FROM messages WHERE channel_id = ? ORDER BY message_id ASC`,
			channelID,
		)
	} else {
		rows, err = tx.Query(
			`SELECT message_id, channel_id, agent_id, content, priority, created_at FROM messages WHERE channel_id = ? AND message_id > ? ORDER BY message_id ASC`,
			channelID, bookmark,
		)
	}
	if err != nil {
		return nil, kernelerr.Storage(source, "querying new messages", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (b *Bus) topicTx(tx *sql.Tx, channelID string) (string, error) {
	var topic sql.NullString
	err := tx.QueryRow(`SELECT topic FROM channels WHERE channel_id = ?`, channelID).Scan(&topic)
	if err != nil {
		return "", kernelerr.Storage(source, "reading topic", err)
	}
	return topic.String, nil
}

func (b *Bus) participantsTx(tx *sql.Tx, channelID string) ([]string, error) {
	rows, err := tx.Query(`SELECT DISTINCT agent_id FROM messages WHERE channel_id = ?`, channelID)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading participants", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var agentID string
		if err := rows.Scan(&agentID); err != nil {
			return nil, kernelerr.Storage(source, "scanning participant", err)
		}
		out = append(out, agentID)
	}
	return out, rows.Err()
}

// GetParticipants returns the distinct agent ids that have posted in
// channelID.
func (b *Bus) GetParticipants(channelID string) ([]string, error) {
	rows, err := b.db.Query(`SELECT DISTINCT agent_id FROM messages WHERE channel_id = ?`, channelID)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading participants", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var agentID string
		if err := rows.Scan(&agentID); err != nil {
			return nil, kernelerr.Storage(source, "scanning participant", err)
		}
		out = append(out, agentID)
	}
	return out, rows.Err()
}

// GetAllMessages returns every message in channelID in insertion order.
func (b *Bus) GetAllMessages(channelID string) ([]model.Message, error) {
	rows, err := b.db.Query(
		`SELECT message_id, channel_id, agent_id, content, priority, created_at FROM messages WHERE channel_id = ? ORDER BY message_id ASC`,
		channelID,
	)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading all messages", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// GetSenderHistory returns agentID's most recent limit messages across
// all channels, newest first.
func (b *Bus) GetSenderHistory(agentID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := b.db.Query(
		`SELECT message_id, channel_id, agent_id, content, priority, created_at FROM messages WHERE agent_id = ? ORDER BY message_id DESC LIMIT ?`,
		agentID, limit,
	)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading sender history", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ChannelMessage pairs a message with its channel's name, used by
// cross-store topic searches that need the channel context.
type ChannelMessage struct {
	ChannelName string
	Message     model.Message
}

// SearchMessages returns messages whose content or channel name
// contains topic, oldest first, optionally scoped to a sender.
func (b *Bus) SearchMessages(topic, agentID string) ([]ChannelMessage, error) {
	query := `
		SELECT c.name, m.message_id, m.channel_id, m.agent_id, m.content, m.priority, m.created_at
		FROM messages m JOIN channels c ON m.channel_id = c.channel_id
		WHERE (m.content LIKE ? OR c.name LIKE ?)`
	args := []any{"%" + topic + "%", "%" + topic + "%"}
	if agentID != "" {
		query += ` AND m.agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY m.created_at ASC`

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, kernelerr.Storage(source, "searching messages", err)
	}
	defer rows.Close()

	var out []ChannelMessage
	for rows.Next() {
		var cm ChannelMessage
		var priority string
		if err := rows.Scan(&cm.ChannelName, &cm.Message.MessageID, &cm.Message.ChannelID, &cm.Message.AgentID, &cm.Message.Content, &priority, &cm.Message.CreatedAt); err != nil {
			return nil, kernelerr.Storage(source, "scanning searched message", err)
		}
		cm.Message.Priority = model.Priority(priority)
		out = append(out, cm)
	}
	return out, rows.Err()
}

// CountMessagesByAgent returns message counts grouped by sender,
// used by cross-store stats aggregation.
func (b *Bus) CountMessagesByAgent() (map[string]int, error) {
	rows, err := b.db.Query(`SELECT agent_id, COUNT(*) FROM messages GROUP BY agent_id`)
	if err != nil {
		return nil, kernelerr.Storage(source, "counting messages by agent", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var agentID string
		var n int
		if err := rows.Scan(&agentID, &n); err != nil {
			return nil, kernelerr.Storage(source, "scanning message count", err)
		}
		out[agentID] = n
	}
	return out, rows.Err()
}

// GetAlerts returns unread alert-priority messages across all active
// channels for agentID, respecting each channel's bookmark.
func (b *Bus) GetAlerts(agentID string) ([]model.Message, error) {
	rows, err := b.db.Query(`
		SELECT m.message_id, m.channel_id, m.agent_id, m.content, m.priority, m.created_at
		FROM messages m
		JOIN channels c ON c.channel_id = m.channel_id
		LEFT JOIN bookmarks bk ON bk.channel_id = m.channel_id AND bk.agent_id = ?
		WHERE m.priority = 'alert'
		  AND c.archived_at IS NULL
		  AND (bk.last_seen_id IS NULL OR m.message_id > bk.last_seen_id)
		ORDER BY m.message_id ASC
	`, agentID)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading alerts", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// CreateNote adds a channel-scoped annotation, outside the message
// stream. Emits a "note.create" event on success; journal may be nil.
func (b *Bus) CreateNote(journal *events.Journal, channelID, author, content string) (string, error) {
	id := core.NewID()
	_, err := b.db.Exec(
		`INSERT INTO notes (note_id, channel_id, author, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, channelID, author, content, time.Now().Unix(),
	)
	if err != nil {
		return "", kernelerr.Storage(source, "creating note", err)
	}
	if journal != nil {
		if _, err := journal.Emit(source, "note.create", author, core.Short(id)); err != nil {
			return "", err
		}
	}
	return id, nil
}

// GetNotes returns every note in channelID in insertion order.
func (b *Bus) GetNotes(channelID string) ([]model.Note, error) {
	rows, err := b.db.Query(
		`SELECT note_id, channel_id, author, content, created_at FROM notes WHERE channel_id = ? ORDER BY created_at ASC, note_id ASC`,
		channelID,
	)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading notes", err)
	}
	defer rows.Close()

	var out []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.NoteID, &n.ChannelID, &n.Author, &n.Content, &n.CreatedAt); err != nil {
			return nil, kernelerr.Storage(source, "scanning note", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	var out []model.Message
	for rows.Next() {
		var m model.Message
		var priority string
		if err := rows.Scan(&m.MessageID, &m.ChannelID, &m.AgentID, &m.Content, &priority, &m.CreatedAt); err != nil {
			return nil, kernelerr.Storage(source, "scanning message", err)
		}
		m.Priority = model.Priority(priority)
		out = append(out, m)
	}
	return out, rows.Err()
}

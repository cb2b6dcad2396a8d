package bridge

import (
	"database/sql"
	"sort"

	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/model"
)

// ChannelView is a channel enriched with per-agent unread state for
// dashboards.
type ChannelView struct {
	ChannelID     string
	Name          string
	Topic         string
	CreatedAt     int64
	ArchivedAt    int64
	Participants  []string
	MessageCount  int
	LastActivity  int64
	UnreadCount   int // only meaningful when an agent scope was given
	NotesCount    int
}

// FetchChannels returns channels, newest-created first.
// agentID scopes UnreadCount (0 when agentID is ""); includeArchived
// includes archived channels; unreadOnly filters to channels with a
// nonzero UnreadCount for agentID.
func (b *Bus) FetchChannels(agentID string, includeArchived, unreadOnly bool) ([]ChannelView, error) {
	query := `SELECT channel_id, name, COALESCE(topic, ''), created_at, COALESCE(archived_at, 0) FROM channels`
	if !includeArchived {
		query += ` WHERE archived_at IS NULL`
	}

	rows, err := b.db.Query(query)
	if err != nil {
		return nil, kernelerr.Storage(source, "fetching channels", err)
	}
	defer rows.Close()

	var views []ChannelView
	for rows.Next() {
		var v ChannelView
		if err := rows.Scan(&v.ChannelID, &v.Name, &v.Topic, &v.CreatedAt, &v.ArchivedAt); err != nil {
			return nil, kernelerr.Storage(source, "scanning channel", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range views {
		if err := b.enrichView(&views[i], agentID); err != nil {
			return nil, err
		}
	}

	if unreadOnly {
		filtered := views[:0]
		for _, v := range views {
			if v.UnreadCount > 0 {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}

	sort.SliceStable(views, func(i, j int) bool { return views[i].CreatedAt > views[j].CreatedAt })
	return views, nil
}

func (b *Bus) enrichView(v *ChannelView, agentID string) error {
	participants, err := b.GetParticipants(v.ChannelID)
	if err != nil {
		return err
	}
	v.Participants = participants

	var count int
	var lastActivity sql.NullInt64
	err = b.db.QueryRow(`SELECT COUNT(*), MAX(created_at) FROM messages WHERE channel_id = ?`, v.ChannelID).Scan(&count, &lastActivity)
	if err != nil {
		return kernelerr.Storage(source, "counting messages", err)
	}
	v.MessageCount = count
	v.LastActivity = lastActivity.Int64

	var notesCount int
	if err := b.db.QueryRow(`SELECT COUNT(*) FROM notes WHERE channel_id = ?`, v.ChannelID).Scan(&notesCount); err != nil {
		return kernelerr.Storage(source, "counting notes", err)
	}
	v.NotesCount = notesCount

	if agentID != "" {
		msgs, err := b.GetNewMessages(v.ChannelID, agentID)
		if err != nil {
			return err
		}
		v.UnreadCount = len(msgs)
	}

	return nil
}

// InboxChannels returns up to limit (default 5) channels that have
// unread messages for agentID, newest-created first. Used by
// sleep's active-channel scan (original_source/space/commands/sleep.py
// inbox_channels).
func (b *Bus) InboxChannels(agentID string, limit int) ([]ChannelView, error) {
	if limit <= 0 {
		limit = 5
	}
	views, err := b.FetchChannels(agentID, false, true)
	if err != nil {
		return nil, err
	}
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// Export is a deterministic textual rendering of a channel's full
// history: metadata plus messages and notes interleaved by
// created_at. On equal created_at, messages come before notes, and
// each kind keeps its id order.
type Export struct {
	Channel  model.Channel
	Entries  []ExportEntry
}

// ExportEntry is one interleaved message or note.
type ExportEntry struct {
	IsNote    bool
	CreatedAt int64
	AgentID   string // message sender, or note author
	Content   string
}

// GetExportData assembles the full export for channelID.
func (b *Bus) GetExportData(channelID string) (*Export, error) {
	var ch model.Channel
	var topic sql.NullString
	var archivedAt sql.NullInt64
	err := b.db.QueryRow(
		`SELECT channel_id, name, topic, created_at, archived_at FROM channels WHERE channel_id = ?`,
		channelID,
	).Scan(&ch.ChannelID, &ch.Name, &topic, &ch.CreatedAt, &archivedAt)
	if err == sql.ErrNoRows {
		return nil, kernelerr.NotFound(source, "unknown channel "+channelID)
	}
	if err != nil {
		return nil, kernelerr.Storage(source, "reading channel for export", err)
	}
	ch.Topic = topic.String
	ch.ArchivedAt = archivedAt.Int64

	messages, err := b.GetAllMessages(channelID)
	if err != nil {
		return nil, err
	}
	notes, err := b.GetNotes(channelID)
	if err != nil {
		return nil, err
	}

	entries := make([]ExportEntry, 0, len(messages)+len(notes))
	for _, m := range messages {
		entries = append(entries, ExportEntry{CreatedAt: m.CreatedAt, AgentID: m.AgentID, Content: m.Content})
	}
	for _, n := range notes {
		entries = append(entries, ExportEntry{IsNote: true, CreatedAt: n.CreatedAt, AgentID: n.Author, Content: n.Content})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt < entries[j].CreatedAt })

	return &Export{Channel: ch, Entries: entries}, nil
}

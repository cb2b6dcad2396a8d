package bridge

import (
	"path/filepath"
	"testing"

	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/model"
)

func openTest(t *testing.T) *Bus {
	t.Helper()
	b, err := Open(filepath.Join(t.TempDir(), DBName))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func openJournal(t *testing.T) *events.Journal {
	t.Helper()
	j, err := events.Open(filepath.Join(t.TempDir(), events.DBName))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestResolveChannelIDCreatesOnFirstReference(t *testing.T) {
	b := openTest(t)

	id1, err := b.ResolveChannelID("space-dev")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	id2, err := b.ResolveChannelID("space-dev")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same channel id, got %s != %s", id1, id2)
	}
}

func TestIndependentBookmarks(t *testing.T) {
	b := openTest(t)
	channelID, err := b.ResolveChannelID("shared")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	for _, content := range []string{"m1", "m2", "m3"} {
		if _, err := b.CreateMessage(nil, channelID, "system", content, model.PriorityNormal); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	msgs1, _, _, _, err := b.RecvUpdates(channelID, "a1")
	if err != nil {
		t.Fatalf("recv a1: %v", err)
	}
	if len(msgs1) != 3 {
		t.Fatalf("expected 3 messages for a1, got %d", len(msgs1))
	}

	if _, err := b.CreateMessage(nil, channelID, "system", "m4", model.PriorityNormal); err != nil {
		t.Fatalf("create m4: %v", err)
	}

	msgs1Again, _, _, _, err := b.RecvUpdates(channelID, "a1")
	if err != nil {
		t.Fatalf("recv a1 again: %v", err)
	}
	if len(msgs1Again) != 1 || msgs1Again[0].Content != "m4" {
		t.Fatalf("expected only m4 for a1, got %+v", msgs1Again)
	}

	msgs2, _, _, _, err := b.RecvUpdates(channelID, "a2")
	if err != nil {
		t.Fatalf("recv a2: %v", err)
	}
	if len(msgs2) != 4 {
		t.Fatalf("expected 4 messages for a2 (independent bookmark), got %d", len(msgs2))
	}
}

func TestRecvUpdatesTwiceReturnsEmpty(t *testing.T) {
	b := openTest(t)
	channelID, err := b.ResolveChannelID("c")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := b.CreateMessage(nil, channelID, "system", "hello", model.PriorityNormal); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _, _, _, err := b.RecvUpdates(channelID, "agent")
	if err != nil {
		t.Fatalf("first recv: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 message, got %d", len(first))
	}

	second, _, _, _, err := b.RecvUpdates(channelID, "agent")
	if err != nil {
		t.Fatalf("second recv: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected 0 messages on second recv, got %d", len(second))
	}
}

func TestSummaryChannelReturnsOnlyLatest(t *testing.T) {
	b := openTest(t)
	channelID, err := b.ResolveChannelID(SummaryChannel)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, content := range []string{"old summary", "new summary"} {
		if _, err := b.CreateMessage(nil, channelID, "system", content, model.PriorityNormal); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	msgs, err := b.GetNewMessages(channelID, "agent")
	if err != nil {
		t.Fatalf("get new messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "new summary" {
		t.Fatalf("expected only latest summary message, got %+v", msgs)
	}
}

func TestAlertFanOutAndBookmarkSuppresses(t *testing.T) {
	b := openTest(t)
	channelID, err := b.ResolveChannelID("critical-path")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := b.CreateMessage(nil, channelID, "zealot-1", "Migration needed", model.PriorityAlert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	alerts, err := b.GetAlerts("zealot-2")
	if err != nil {
		t.Fatalf("get alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	if _, _, _, _, err := b.RecvUpdates(channelID, "zealot-2"); err != nil {
		t.Fatalf("recv: %v", err)
	}

	alertsAfter, err := b.GetAlerts("zealot-2")
	if err != nil {
		t.Fatalf("get alerts after recv: %v", err)
	}
	if len(alertsAfter) != 0 {
		t.Fatalf("expected 0 alerts after recv, got %d", len(alertsAfter))
	}
}

func TestArchivedChannelExcludedFromAlertsAndNewMessages(t *testing.T) {
	b := openTest(t)
	channelID, err := b.ResolveChannelID("noisy")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := b.CreateMessage(nil, channelID, "a1", "urgent", model.PriorityAlert); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := b.ArchiveChannel(nil, "a1", channelID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	alerts, err := b.GetAlerts("a2")
	if err != nil {
		t.Fatalf("get alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected archived channel excluded from alerts, got %d", len(alerts))
	}

	msgs, err := b.GetNewMessages(channelID, "a2")
	if err != nil {
		t.Fatalf("get new messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected archived channel to hide new messages, got %d", len(msgs))
	}

	views, err := b.FetchChannels("", false, false)
	if err != nil {
		t.Fatalf("fetch channels: %v", err)
	}
	for _, v := range views {
		if v.ChannelID == channelID {
			t.Fatal("expected archived channel excluded from default fetch_channels")
		}
	}
}

func TestRenameChannelOutcomes(t *testing.T) {
	b := openTest(t)

	if _, err := b.ResolveChannelID("alpha"); err != nil {
		t.Fatalf("resolve alpha: %v", err)
	}
	if _, err := b.ResolveChannelID("beta"); err != nil {
		t.Fatalf("resolve beta: %v", err)
	}

	outcome, err := b.RenameChannel(nil, "a1", "missing", "whatever")
	if err != nil {
		t.Fatalf("rename missing: %v", err)
	}
	if outcome != RenameNotFound {
		t.Fatalf("expected RenameNotFound, got %v", outcome)
	}

	outcome, err = b.RenameChannel(nil, "a1", "alpha", "beta")
	if err != nil {
		t.Fatalf("rename conflict: %v", err)
	}
	if outcome != RenameConflict {
		t.Fatalf("expected RenameConflict, got %v", outcome)
	}

	gammaID, err := b.ResolveChannelID("gamma")
	if err != nil {
		t.Fatalf("resolve gamma: %v", err)
	}
	if err := b.ArchiveChannel(nil, "a1", gammaID); err != nil {
		t.Fatalf("archive gamma: %v", err)
	}
	outcome, err = b.RenameChannel(nil, "a1", "alpha", "gamma")
	if err != nil {
		t.Fatalf("rename onto archived: %v", err)
	}
	if outcome != RenameConflictArchived {
		t.Fatalf("expected RenameConflictArchived, got %v", outcome)
	}

	outcome, err = b.RenameChannel(nil, "a1", "alpha", "alpha-renamed")
	if err != nil {
		t.Fatalf("rename ok: %v", err)
	}
	if outcome != RenameOK {
		t.Fatalf("expected RenameOK, got %v", outcome)
	}
}

func TestDeleteChannelCascades(t *testing.T) {
	b := openTest(t)
	channelID, err := b.ResolveChannelID("temp")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := b.CreateMessage(nil, channelID, "a1", "hi", model.PriorityNormal); err != nil {
		t.Fatalf("create message: %v", err)
	}
	if _, err := b.CreateNote(nil, channelID, "a1", "note"); err != nil {
		t.Fatalf("create note: %v", err)
	}
	if err := b.SetBookmark("a1", channelID, "x"); err != nil {
		t.Fatalf("set bookmark: %v", err)
	}

	if err := b.DeleteChannel(nil, "a1", channelID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	msgs, err := b.GetAllMessages(channelID)
	if err != nil {
		t.Fatalf("get all messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatal("expected messages cascaded away")
	}
}

func TestMutationsEmitBridgeEvents(t *testing.T) {
	b := openTest(t)
	j := openJournal(t)

	channelID, err := b.ResolveChannelID("events-channel")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := b.CreateMessage(j, channelID, "a1", "hi", model.PriorityNormal); err != nil {
		t.Fatalf("create message: %v", err)
	}
	if _, err := b.CreateNote(j, channelID, "a1", "note"); err != nil {
		t.Fatalf("create note: %v", err)
	}
	if _, err := b.RenameChannel(j, "a1", "events-channel", "events-channel-renamed"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := b.ArchiveChannel(j, "a1", channelID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	secondChannelID, err := b.ResolveChannelID("events-channel-2")
	if err != nil {
		t.Fatalf("resolve second: %v", err)
	}
	if err := b.DeleteChannel(j, "a1", secondChannelID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, eventType := range []string{"message.create", "note.create", "channel.rename", "channel.archive", "channel.delete"} {
		rows, err := j.Query(events.QueryFilter{Source: "bridge", EventType: eventType})
		if err != nil {
			t.Fatalf("query %s: %v", eventType, err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 %s event, got %d", eventType, len(rows))
		}
		if rows[0].AgentID != "a1" {
			t.Fatalf("expected agent_id a1 on %s event, got %q", eventType, rows[0].AgentID)
		}
	}
}

package worker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/model"
)

type fakePoster struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakePoster) CreateMessage(journal *events.Journal, channelID, agentID, content string, priority model.Priority) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, agentID+":"+content)
	return "msg-1", nil
}

func (f *fakePoster) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.messages))
	copy(out, f.messages)
	return out
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

func TestDispatchPostsReplyForEachMention(t *testing.T) {
	orig := SpawnCommand
	SpawnCommand = "echo"
	t.Cleanup(func() { SpawnCommand = orig })

	poster := &fakePoster{}
	Dispatch(context.Background(), poster, nil, "chan-1", "space-dev", "please review @zealot-2", "zealot-1", time.Second, 4096)

	deadline := time.After(2 * time.Second)
	for {
		if len(poster.snapshot()) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for worker reply")
		case <-time.After(10 * time.Millisecond):
		}
	}

	msgs := poster.snapshot()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 posted reply, got %v", msgs)
	}
}

func TestDispatchSkipsSystemSender(t *testing.T) {
	orig := SpawnCommand
	SpawnCommand = "echo"
	t.Cleanup(func() { SpawnCommand = orig })

	poster := &fakePoster{}
	Dispatch(context.Background(), poster, nil, "chan-1", "space-dev", "@zealot-2 fyi", "system", time.Second, 4096)

	time.Sleep(100 * time.Millisecond)
	if len(poster.snapshot()) != 0 {
		t.Fatal("expected no worker dispatched for system sender")
	}
}

func TestDispatchNoMentionsNoop(t *testing.T) {
	poster := &fakePoster{}
	Dispatch(context.Background(), poster, nil, "chan-1", "space-dev", "no mentions here", "zealot-1", time.Second, 4096)

	time.Sleep(50 * time.Millisecond)
	if len(poster.snapshot()) != 0 {
		t.Fatal("expected no dispatch when content has no mentions")
	}
}

func TestDispatchEmitsFailureEvent(t *testing.T) {
	orig := SpawnCommand
	SpawnCommand = "false"
	t.Cleanup(func() { SpawnCommand = orig })

	poster := &fakePoster{}
	journal := openJournal(t)
	Dispatch(context.Background(), poster, journal, "chan-1", "space-dev", "@zealot-2 fyi", "zealot-1", time.Second, 4096)

	deadline := time.After(2 * time.Second)
	for {
		n, err := journal.CountByType("zealot-2", "failure")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for worker failure event")
		case <-time.After(10 * time.Millisecond):
		}
	}

	all, err := journal.Query(events.QueryFilter{Source: "worker", AgentID: "zealot-2"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 1 || all[0].EventType != "failure" {
		t.Fatalf("expected 1 worker failure event for zealot-2, got %+v", all)
	}
}

func TestSpawnPromptIncludesChannelAndContent(t *testing.T) {
	prompt := SpawnPrompt("zealot-2", "space-dev", "look at this")
	if !contains(prompt, "space-dev") || !contains(prompt, "look at this") {
		t.Fatalf("expected prompt to reference channel and content, got %q", prompt)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

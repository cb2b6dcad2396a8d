package bridge

import (
	"testing"
	"time"

	"github.com/iteebz/spaceos/internal/model"
	"github.com/iteebz/spaceos/internal/worker"
)

func TestSendMessageDispatchesWorkerForMention(t *testing.T) {
	orig := worker.SpawnCommand
	worker.SpawnCommand = "echo"
	t.Cleanup(func() { worker.SpawnCommand = orig })

	b := openTest(t)
	channelID, err := b.ResolveChannelID("space-dev")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, err := b.SendMessage(nil, channelID, "space-dev", "zealot-1", "Found potential bug at line 42. @zealot-2 please review", model.PriorityNormal, time.Second, 4096); err != nil {
		t.Fatalf("send: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		msgs, err := b.GetAllMessages(channelID)
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		if len(msgs) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for worker reply to land")
		case <-time.After(10 * time.Millisecond):
		}
	}

	msgs, _, _, _, err := b.RecvUpdates(channelID, "zealot-2")
	if err != nil {
		t.Fatalf("recv updates: %v", err)
	}
	if len(msgs) < 2 {
		t.Fatalf("expected original message and worker reply, got %d", len(msgs))
	}
	if msgs[1].AgentID != "zealot-2" {
		t.Fatalf("expected reply attributed to zealot-2, got %q", msgs[1].AgentID)
	}
}

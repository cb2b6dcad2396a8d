package lifecycle

import (
	"os/exec"
	"strings"

	"github.com/iteebz/spaceos/internal/bridge"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/memory"
	"github.com/iteebz/spaceos/internal/registry"
	"github.com/iteebz/spaceos/internal/workspace"
)

// Checklist is the pre-compaction hygiene reminder shown at the end of
// every sleep.
const Checklist = `Before you go:
  1. Extract signal into memory/knowledge
  2. Archive stale entries
  3. Mark channels read
  4. Log blockers
  5. Reflect: send a note to the feedback channel

Clean death. Next self thanks you.`

// SleepSummary reports what a sleep pass found and (unless dryRun)
// checkpointed.
type SleepSummary struct {
	Identity       string
	ActiveChannels []string
	MemoryCount    int
	GitStatus      string
	MemoryGap      bool
}

// Sleep scans active channels with unreads, writes one checkpoint
// memory entry per channel, detects uncommitted workspace changes and
// a memory gap, and writes checkpoints for each. When dryRun is true
// (the --check preview mode) nothing is persisted, nothing is
// journaled, and the summary reports what would have been written.
// On a real (non-dry-run) pass, each checkpoint memory entry emits a
// "memory":"add" event and the pass itself emits one "session":"sleep"
// event, so a later Wake can report an accurate prior-sleep count.
// journal may be nil, in which case nothing is journaled.
func Sleep(reg *registry.Registry, journal *events.Journal, bus *bridge.Bus, mem *memory.Store, ws *workspace.Workspace, identity string, dryRun bool) (*SleepSummary, error) {
	agentID, err := reg.EnsureAgent(identity)
	if err != nil {
		return nil, err
	}

	summary := &SleepSummary{Identity: identity}

	entries, err := mem.GetMemories(agentID, "", false, 0)
	if err != nil {
		return nil, err
	}
	summary.MemoryCount = len(entries)

	channels, err := bus.InboxChannels(agentID, 5)
	if err != nil {
		return nil, err
	}
	for _, ch := range channels {
		summary.ActiveChannels = append(summary.ActiveChannels, ch.Name)
		if dryRun {
			continue
		}
		if _, err := mem.AddEntry(agentID, "bridge-context", "Active channel: "+ch.Name, false, "checkpoint", ch.Name, ""); err != nil {
			return nil, err
		}
		emitSleepCheckpoint(journal, agentID, "bridge-context")
	}

	gitStatus := detectGitStatus(ws.Root)
	summary.GitStatus = gitStatus
	if gitStatus != "" && !dryRun {
		if _, err := mem.AddEntry(agentID, "git-status", "Uncommitted changes detected.", false, "checkpoint", "", gitStatus); err != nil {
			return nil, err
		}
		emitSleepCheckpoint(journal, agentID, "git-status")
	}

	if summary.MemoryCount == 0 {
		summary.MemoryGap = true
		if !dryRun {
			if _, err := mem.AddEntry(agentID, "memory-gap", "No memory entries found for this identity.", false, "checkpoint", "", ""); err != nil {
				return nil, err
			}
			emitSleepCheckpoint(journal, agentID, "memory-gap")
		}
	}

	if !dryRun && journal != nil {
		if _, err := journal.Emit(sessionSource, "sleep", agentID, ""); err != nil {
			return nil, err
		}
	}

	return summary, nil
}

func emitSleepCheckpoint(journal *events.Journal, agentID, topic string) {
	if journal == nil {
		return
	}
	_, _ = journal.Emit("memory", "add", agentID, topic)
}

func detectGitStatus(root string) string {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Package lifecycle orchestrates session boundaries: waking an agent
// into a fresh orientation payload and winding one down with a
// pre-compaction checkpoint pass. It composes registry, events,
// bridge, and memory rather than owning any storage of its own.
package lifecycle

import (
	"github.com/iteebz/spaceos/internal/bridge"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/memory"
	"github.com/iteebz/spaceos/internal/model"
	"github.com/iteebz/spaceos/internal/registry"
)

const sessionSource = "session"

// Orientation is the payload shown to an agent on wake.
type Orientation struct {
	AgentID         string
	FirstBoot       bool
	PriorSleepCount int
	LastCheckpoint  *model.MemoryEntry
	UnreadChannels  []bridge.ChannelView
	CoreMemories    []model.MemoryEntry
	RecentMemories  []model.MemoryEntry
	RecentMessages  []model.Message
}

// Wake ensures identity is a registered agent, closes any session left
// open by a prior run (emitting session_end with reason auto_closed),
// opens a fresh one, and assembles the orientation payload described
// in the lifecycle rules. Callers that need provenance tracking should
// call identity.Identify before Wake; Wake itself only manages
// session_start/session_end bookkeeping.
func Wake(reg *registry.Registry, journal *events.Journal, bus *bridge.Bus, mem *memory.Store, identity string) (*Orientation, error) {
	agentID, err := reg.EnsureAgent(identity)
	if err != nil {
		return nil, err
	}

	lastSession, err := journal.Query(events.QueryFilter{Source: sessionSource, AgentID: agentID, Limit: 1})
	if err != nil {
		return nil, err
	}

	priorStarts, err := journal.CountByType(agentID, "session_start")
	if err != nil {
		return nil, err
	}
	firstBoot := priorStarts == 0

	if len(lastSession) > 0 && lastSession[0].EventType == "session_start" {
		if _, err := journal.Emit(sessionSource, "session_end", agentID, `{"reason":"auto_closed"}`); err != nil {
			return nil, err
		}
	}
	if _, err := journal.Emit(sessionSource, "session_start", agentID, ""); err != nil {
		return nil, err
	}

	priorSleeps, err := journal.CountByType(agentID, "sleep")
	if err != nil {
		return nil, err
	}

	unread, err := bus.InboxChannels(agentID, 5)
	if err != nil {
		return nil, err
	}

	coreEntries, err := mem.GetCoreEntries(agentID)
	if err != nil {
		return nil, err
	}

	recentAll, err := mem.GetRecentEntries(agentID, 7, 20)
	if err != nil {
		return nil, err
	}
	var recentNonCore []model.MemoryEntry
	var lastCheckpoint *model.MemoryEntry
	for i := range recentAll {
		e := recentAll[i]
		if e.Source == "checkpoint" && lastCheckpoint == nil {
			lc := e
			lastCheckpoint = &lc
		}
		if !e.Core {
			recentNonCore = append(recentNonCore, e)
			if len(recentNonCore) >= 5 {
				continue
			}
		}
	}
	if len(recentNonCore) > 5 {
		recentNonCore = recentNonCore[:5]
	}

	recentMessages, err := bus.GetSenderHistory(agentID, 5)
	if err != nil {
		return nil, err
	}

	return &Orientation{
		AgentID:         agentID,
		FirstBoot:       firstBoot,
		PriorSleepCount: priorSleeps,
		LastCheckpoint:  lastCheckpoint,
		UnreadChannels:  unread,
		CoreMemories:    coreEntries,
		RecentMemories:  recentNonCore,
		RecentMessages:  recentMessages,
	}, nil
}

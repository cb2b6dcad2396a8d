// Package stats aggregates per-agent counters across every store and
// answers topic-scoped context queries spanning events, memory,
// knowledge, bridge, and the canon corpus.
package stats

import (
	"sort"

	"github.com/iteebz/spaceos/internal/bridge"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/knowledge"
	"github.com/iteebz/spaceos/internal/memory"
	"github.com/iteebz/spaceos/internal/registry"
)

// AgentStats is one row of the aggregated usage report.
type AgentStats struct {
	AgentID string
	Name    string
	Msgs    int
	Mems    int
	Knows   int
	Events  int
	Spawns  int
}

// Aggregate reports per-agent counters. The discovery set is the
// union of registered (non-archived) agents with every distinct
// agent_id referenced across events, messages, memory, and knowledge —
// so an agent used in logs but never explicitly registered still
// appears, attributed by its raw id.
func Aggregate(reg *registry.Registry, journal *events.Journal, bus *bridge.Bus, mem *memory.Store, know *knowledge.Store) ([]AgentStats, error) {
	msgCounts, err := bus.CountMessagesByAgent()
	if err != nil {
		return nil, err
	}
	memCounts, err := mem.CountEntriesByAgent()
	if err != nil {
		return nil, err
	}
	knowCounts, err := know.CountEntriesByAgent()
	if err != nil {
		return nil, err
	}
	eventCounts, err := journal.CountAllByAgent()
	if err != nil {
		return nil, err
	}
	spawnCounts, err := journal.CountByTypeAllAgents("session_start")
	if err != nil {
		return nil, err
	}

	registered, err := reg.ListActiveAgents()
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(registered))
	discovered := make(map[string]struct{}, len(registered))
	for _, r := range registered {
		names[r.AgentID] = r.Name
		discovered[r.AgentID] = struct{}{}
	}
	for _, counts := range []map[string]int{msgCounts, memCounts, knowCounts, eventCounts, spawnCounts} {
		for agentID := range counts {
			discovered[agentID] = struct{}{}
		}
	}

	out := make([]AgentStats, 0, len(discovered))
	for agentID := range discovered {
		name := names[agentID]
		if name == "" {
			if resolved, err := reg.GetAgentName(agentID); err == nil && resolved != "" {
				name = resolved
			}
		}
		out = append(out, AgentStats{
			AgentID: agentID,
			Name:    name,
			Msgs:    msgCounts[agentID],
			Mems:    memCounts[agentID],
			Knows:   knowCounts[agentID],
			Events:  eventCounts[agentID],
			Spawns:  spawnCounts[agentID],
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Spawns > out[j].Spawns })
	return out, nil
}

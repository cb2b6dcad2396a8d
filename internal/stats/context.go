package stats

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/iteebz/spaceos/internal/bridge"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/knowledge"
	"github.com/iteebz/spaceos/internal/memory"
	"github.com/iteebz/spaceos/internal/registry"
	"github.com/iteebz/spaceos/internal/workspace"
)

// TimelineEntry is one deduplicated, timestamp-sorted context hit.
type TimelineEntry struct {
	Source    string // "events", "memory", "knowledge", "bridge"
	Type      string
	Identity  string
	Data      string
	Timestamp int64
}

// CurrentState is every live (non-archived) match across the stores
// that hold topic-addressable content.
type CurrentState struct {
	Memory    []MemoryHit
	Knowledge []KnowledgeHit
	Bridge    []BridgeHit
}

type MemoryHit struct {
	Identity string
	Topic    string
	Message  string
}

type KnowledgeHit struct {
	Domain      string
	Content     string
	Contributor string
}

type BridgeHit struct {
	Channel string
	Sender  string
	Content string
}

// Context is the unified result of a topic retrieval: recent
// evolution, present state, and any canon docs mentioning the topic.
type Context struct {
	Timeline     []TimelineEntry
	CurrentState CurrentState
	CanonDocs    map[string]string
}

// GetContext assembles timeline (last 10, deduplicated by content hash
// across sources), current_state (all non-archived LIKE matches), and
// canon_docs (canon markdown files containing topic, case-insensitive)
// for topic, optionally scoped to identity.
func GetContext(reg *registry.Registry, journal *events.Journal, bus *bridge.Bus, mem *memory.Store, know *knowledge.Store, ws *workspace.Workspace, topic, identity string) (*Context, error) {
	timeline, err := collectTimeline(reg, journal, bus, mem, know, topic, identity)
	if err != nil {
		return nil, err
	}

	state, err := collectCurrentState(reg, bus, mem, know, topic, identity)
	if err != nil {
		return nil, err
	}

	canonDocs, err := searchCanon(ws, topic)
	if err != nil {
		return nil, err
	}

	return &Context{Timeline: timeline, CurrentState: state, CanonDocs: canonDocs}, nil
}

func collectTimeline(reg *registry.Registry, journal *events.Journal, bus *bridge.Bus, mem *memory.Store, know *knowledge.Store, topic, identity string) ([]TimelineEntry, error) {
	var timeline []TimelineEntry
	seen := make(map[string]struct{})

	nameOf := func(agentID string) string {
		if agentID == "" {
			return ""
		}
		if name, err := reg.GetAgentName(agentID); err == nil && name != "" {
			return name
		}
		return agentID
	}

	evs, err := journal.QueryContaining(topic, identity)
	if err != nil {
		return nil, err
	}
	for _, e := range evs {
		key := e.Source + "." + e.EventType + "|" + e.Data + "|" + e.AgentID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		timeline = append(timeline, TimelineEntry{
			Source:    "events",
			Type:      e.Source + "." + e.EventType,
			Identity:  nameOf(e.AgentID),
			Data:      e.Data,
			Timestamp: e.Timestamp,
		})
	}

	mems, err := mem.SearchAllEntries(topic, identity, false)
	if err != nil {
		return nil, err
	}
	for _, m := range mems {
		key := m.Topic + "|" + m.Message + "|" + m.AgentID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		timeline = append(timeline, TimelineEntry{
			Source:    "memory",
			Type:      m.Topic,
			Identity:  nameOf(m.AgentID),
			Data:      m.Message,
			Timestamp: m.CreatedAt,
		})
	}

	knows, err := know.SearchEntries(topic, identity, false)
	if err != nil {
		return nil, err
	}
	for _, k := range knows {
		key := k.Content + "|" + k.AgentID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		timeline = append(timeline, TimelineEntry{
			Source:    "knowledge",
			Type:      k.Domain,
			Identity:  nameOf(k.AgentID),
			Data:      k.Content,
			Timestamp: k.CreatedAt,
		})
	}

	msgs, err := bus.SearchMessages(topic, identity)
	if err != nil {
		return nil, err
	}
	for _, cm := range msgs {
		key := cm.Message.Content + "|" + cm.Message.AgentID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		timeline = append(timeline, TimelineEntry{
			Source:    "bridge",
			Type:      cm.ChannelName,
			Identity:  nameOf(cm.Message.AgentID),
			Data:      cm.Message.Content,
			Timestamp: cm.Message.CreatedAt,
		})
	}

	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].Timestamp < timeline[j].Timestamp })
	if len(timeline) > 10 {
		timeline = timeline[len(timeline)-10:]
	}
	return timeline, nil
}

func collectCurrentState(reg *registry.Registry, bus *bridge.Bus, mem *memory.Store, know *knowledge.Store, topic, identity string) (CurrentState, error) {
	nameOf := func(agentID string) string {
		if name, err := reg.GetAgentName(agentID); err == nil && name != "" {
			return name
		}
		return agentID
	}

	var state CurrentState

	mems, err := mem.SearchAllEntries(topic, identity, false)
	if err != nil {
		return state, err
	}
	for _, m := range mems {
		state.Memory = append(state.Memory, MemoryHit{Identity: nameOf(m.AgentID), Topic: m.Topic, Message: m.Message})
	}

	knows, err := know.SearchEntries(topic, identity, false)
	if err != nil {
		return state, err
	}
	for _, k := range knows {
		state.Knowledge = append(state.Knowledge, KnowledgeHit{Domain: k.Domain, Content: k.Content, Contributor: nameOf(k.AgentID)})
	}

	msgs, err := bus.SearchMessages(topic, identity)
	if err != nil {
		return state, err
	}
	for _, cm := range msgs {
		state.Bridge = append(state.Bridge, BridgeHit{Channel: cm.ChannelName, Sender: nameOf(cm.Message.AgentID), Content: cm.Message.Content})
	}

	return state, nil
}

// searchCanon returns every canon/*.md file whose content contains
// topic case-insensitively, keyed by filename. Missing canon
// directories yield an empty map, not an error.
func searchCanon(ws *workspace.Workspace, topic string) (map[string]string, error) {
	pattern := glob.MustCompile("*.md")
	dir := ws.CanonDir()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return map[string]string{}, nil
	}

	lowerTopic := strings.ToLower(topic)
	docs := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !pattern.Match(entry.Name()) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(content)), lowerTopic) {
			docs[entry.Name()] = string(content)
		}
	}
	return docs, nil
}

package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iteebz/spaceos/internal/bridge"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/knowledge"
	"github.com/iteebz/spaceos/internal/memory"
	"github.com/iteebz/spaceos/internal/model"
	"github.com/iteebz/spaceos/internal/registry"
	"github.com/iteebz/spaceos/internal/workspace"
)

type harness struct {
	reg  *registry.Registry
	j    *events.Journal
	bus  *bridge.Bus
	mem  *memory.Store
	know *knowledge.Store
	ws   *workspace.Workspace
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	reg, err := registry.Open(filepath.Join(dir, registry.DBName))
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	j, err := events.Open(filepath.Join(dir, events.DBName))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	bus, err := bridge.Open(filepath.Join(dir, bridge.DBName))
	if err != nil {
		t.Fatalf("open bridge: %v", err)
	}
	t.Cleanup(func() { bus.Close() })

	mem, err := memory.Open(filepath.Join(dir, memory.DBName))
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	t.Cleanup(func() { mem.Close() })

	know, err := knowledge.Open(filepath.Join(dir, knowledge.DBName))
	if err != nil {
		t.Fatalf("open knowledge: %v", err)
	}
	t.Cleanup(func() { know.Close() })

	ws := &workspace.Workspace{Root: dir}

	return &harness{reg: reg, j: j, bus: bus, mem: mem, know: know, ws: ws}
}

func TestAggregateIncludesOrphanedAgents(t *testing.T) {
	h := newHarness(t)

	registered, err := h.reg.EnsureAgent("zealot-1")
	if err != nil {
		t.Fatalf("ensure agent: %v", err)
	}
	if _, err := h.mem.AddEntry(registered, "auth", "note", false, "", "", ""); err != nil {
		t.Fatalf("add memory: %v", err)
	}

	// An agent referenced only in events, never registered.
	if _, err := h.j.Emit("session", "session_start", "orphan-agent-id", ""); err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := Aggregate(h.reg, h.j, h.bus, h.mem, h.know)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	var sawRegistered, sawOrphan bool
	for _, r := range rows {
		if r.AgentID == registered {
			sawRegistered = true
			if r.Mems != 1 {
				t.Fatalf("expected 1 mem for registered agent, got %d", r.Mems)
			}
		}
		if r.AgentID == "orphan-agent-id" {
			sawOrphan = true
			if r.Spawns != 1 {
				t.Fatalf("expected 1 spawn for orphan agent, got %d", r.Spawns)
			}
		}
	}
	if !sawRegistered || !sawOrphan {
		t.Fatalf("expected both registered and orphaned agents, got %+v", rows)
	}
}

func TestGetContextCollectsAcrossStores(t *testing.T) {
	h := newHarness(t)

	agentID, err := h.reg.EnsureAgent("zealot-1")
	if err != nil {
		t.Fatalf("ensure agent: %v", err)
	}
	if _, err := h.mem.AddEntry(agentID, "auth", "JWT rotation notes", false, "", "", ""); err != nil {
		t.Fatalf("add memory: %v", err)
	}
	if _, err := h.know.WriteKnowledge(h.j, "auth", agentID, "JWT domain knowledge", nil); err != nil {
		t.Fatalf("write knowledge: %v", err)
	}
	channelID, err := h.bus.ResolveChannelID("space-dev")
	if err != nil {
		t.Fatalf("resolve channel: %v", err)
	}
	if _, err := h.bus.CreateMessage(h.j, channelID, agentID, "JWT bug found", model.PriorityNormal); err != nil {
		t.Fatalf("create message: %v", err)
	}

	ctx, err := GetContext(h.reg, h.j, h.bus, h.mem, h.know, h.ws, "JWT", "")
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if len(ctx.CurrentState.Memory) != 1 {
		t.Fatalf("expected 1 memory hit, got %d", len(ctx.CurrentState.Memory))
	}
	if len(ctx.CurrentState.Knowledge) != 1 {
		t.Fatalf("expected 1 knowledge hit, got %d", len(ctx.CurrentState.Knowledge))
	}
	if len(ctx.CurrentState.Bridge) != 1 {
		t.Fatalf("expected 1 bridge hit, got %d", len(ctx.CurrentState.Bridge))
	}
	if len(ctx.Timeline) == 0 {
		t.Fatal("expected nonempty timeline")
	}
}

func TestGetContextSearchesCanonDocs(t *testing.T) {
	h := newHarness(t)

	canonDir := filepath.Join(h.ws.Root, "canon")
	if err := os.MkdirAll(canonDir, 0o755); err != nil {
		t.Fatalf("mkdir canon: %v", err)
	}
	if err := os.WriteFile(filepath.Join(canonDir, "architecture.md"), []byte("# Architecture\n\nThe auth subsystem rotates JWTs daily."), 0o644); err != nil {
		t.Fatalf("write canon doc: %v", err)
	}
	if err := os.WriteFile(filepath.Join(canonDir, "unrelated.md"), []byte("# Unrelated\n\nNothing to see here."), 0o644); err != nil {
		t.Fatalf("write canon doc: %v", err)
	}

	ctx, err := GetContext(h.reg, h.j, h.bus, h.mem, h.know, h.ws, "JWT", "")
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if len(ctx.CanonDocs) != 1 {
		t.Fatalf("expected 1 matching canon doc, got %d: %v", len(ctx.CanonDocs), ctx.CanonDocs)
	}
	if _, ok := ctx.CanonDocs["architecture.md"]; !ok {
		t.Fatalf("expected architecture.md in canon docs, got %v", ctx.CanonDocs)
	}
}

package lifecycle

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/iteebz/spaceos/internal/bridge"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/memory"
	"github.com/iteebz/spaceos/internal/registry"
	"github.com/iteebz/spaceos/internal/workspace"
)

type harness struct {
	reg *registry.Registry
	j   *events.Journal
	bus *bridge.Bus
	mem *memory.Store
	ws  *workspace.Workspace
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

	ws := &workspace.Workspace{Root: dir}

	return &harness{reg: reg, j: j, bus: bus, mem: mem, ws: ws}
}

func TestWakeFirstBootAndSessionRotation(t *testing.T) {
	h := newHarness(t)

	o1, err := Wake(h.reg, h.j, h.bus, h.mem, "zealot-1")
	if err != nil {
		t.Fatalf("wake: %v", err)
	}
	if !o1.FirstBoot {
		t.Fatal("expected first wake to be first boot")
	}

	o2, err := Wake(h.reg, h.j, h.bus, h.mem, "zealot-1")
	if err != nil {
		t.Fatalf("wake again: %v", err)
	}
	if o2.FirstBoot {
		t.Fatal("expected second wake to not be first boot")
	}

	n, err := h.j.CountByType(o2.AgentID, "session_end")
	if err != nil {
		t.Fatalf("count session_end: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 auto-closed session from the second wake, got %d", n)
	}
}

func TestWakeReportsPriorSleepCount(t *testing.T) {
	h := newHarness(t)

	if _, err := Wake(h.reg, h.j, h.bus, h.mem, "zealot-1"); err != nil {
		t.Fatalf("wake: %v", err)
	}
	if _, err := Sleep(h.reg, h.j, h.bus, h.mem, h.ws, "zealot-1", false); err != nil {
		t.Fatalf("sleep: %v", err)
	}
	if _, err := Sleep(h.reg, h.j, h.bus, h.mem, h.ws, "zealot-1", false); err != nil {
		t.Fatalf("sleep again: %v", err)
	}

	o, err := Wake(h.reg, h.j, h.bus, h.mem, "zealot-1")
	if err != nil {
		t.Fatalf("wake again: %v", err)
	}
	if o.PriorSleepCount != 2 {
		t.Fatalf("expected prior sleep count 2, got %d", o.PriorSleepCount)
	}
}

func TestWakeSurfacesCoreAndRecentMemories(t *testing.T) {
	h := newHarness(t)

	agentID, err := h.reg.EnsureAgent("zealot-1")
	if err != nil {
		t.Fatalf("ensure agent: %v", err)
	}
	if _, err := h.mem.AddEntry(agentID, "auth", "core fact about JWTs", true, "", "", ""); err != nil {
		t.Fatalf("add core: %v", err)
	}
	if _, err := h.mem.AddEntry(agentID, "infra", "recent non-core note", false, "", "", ""); err != nil {
		t.Fatalf("add recent: %v", err)
	}

	o, err := Wake(h.reg, h.j, h.bus, h.mem, "zealot-1")
	if err != nil {
		t.Fatalf("wake: %v", err)
	}
	if len(o.CoreMemories) != 1 {
		t.Fatalf("expected 1 core memory, got %d", len(o.CoreMemories))
	}
	if len(o.RecentMemories) != 1 {
		t.Fatalf("expected 1 recent non-core memory, got %d", len(o.RecentMemories))
	}
}

func TestSleepChecksInActiveChannelsAndDetectsMemoryGap(t *testing.T) {
	h := newHarness(t)

	channelID, err := h.bus.ResolveChannelID("space-dev")
	if err != nil {
		t.Fatalf("resolve channel: %v", err)
	}
	if _, err := h.bus.CreateMessage(h.j, channelID, "zealot-2", "hello", ""); err != nil {
		t.Fatalf("create message: %v", err)
	}

	summary, err := Sleep(h.reg, h.j, h.bus, h.mem, h.ws, "zealot-1", false)
	if err != nil {
		t.Fatalf("sleep: %v", err)
	}
	if len(summary.ActiveChannels) != 1 || summary.ActiveChannels[0] != "space-dev" {
		t.Fatalf("expected space-dev as active channel, got %v", summary.ActiveChannels)
	}
	if !summary.MemoryGap {
		t.Fatal("expected memory gap to be detected for a fresh agent")
	}

	agentID, err := h.reg.GetAgentID("zealot-1")
	if err != nil {
		t.Fatalf("get agent id: %v", err)
	}
	entries, err := h.mem.GetMemories(agentID, "", false, 0)
	if err != nil {
		t.Fatalf("get memories: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected checkpoint entries to have been written")
	}

	sleepCount, err := h.j.CountByType(agentID, "sleep")
	if err != nil {
		t.Fatalf("count sleep events: %v", err)
	}
	if sleepCount != 1 {
		t.Fatalf("expected 1 sleep event, got %d", sleepCount)
	}
	addCount, err := h.j.CountByType(agentID, "add")
	if err != nil {
		t.Fatalf("count add events: %v", err)
	}
	if addCount != len(entries) {
		t.Fatalf("expected 1 memory add event per checkpoint entry (%d), got %d", len(entries), addCount)
	}
}

func TestSleepDryRunWritesNothing(t *testing.T) {
	h := newHarness(t)

	summary, err := Sleep(h.reg, h.j, h.bus, h.mem, h.ws, "zealot-1", true)
	if err != nil {
		t.Fatalf("sleep: %v", err)
	}
	if !summary.MemoryGap {
		t.Fatal("expected memory gap still reported in dry run")
	}

	agentID, err := h.reg.GetAgentID("zealot-1")
	if err != nil {
		t.Fatalf("get agent id: %v", err)
	}
	entries, err := h.mem.GetMemories(agentID, "", false, 0)
	if err != nil {
		t.Fatalf("get memories: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected dry run to persist nothing, got %d entries", len(entries))
	}

	sleepCount, err := h.j.CountByType(agentID, "sleep")
	if err != nil {
		t.Fatalf("count sleep events: %v", err)
	}
	if sleepCount != 0 {
		t.Fatalf("expected dry run to emit no sleep event, got %d", sleepCount)
	}
}

func TestDetectGitStatusReflectsUncommittedFile(t *testing.T) {
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if err := cmd.Run(); err != nil {
			t.Skipf("git unavailable in test environment: %v", err)
		}
	}
	run("init", "-q")
	if err := os.WriteFile(filepath.Join(dir, "untracked.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	status := detectGitStatus(dir)
	if status == "" {
		t.Fatal("expected nonempty git status for untracked file")
	}
}

package registry

import (
	"path/filepath"
	"testing"
)

func openTest(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), DBName))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestEnsureAgentIdempotent(t *testing.T) {
	r := openTest(t)

	id1, err := r.EnsureAgent("zealot-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	id2, err := r.EnsureAgent("zealot-1")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected idempotent agent id, got %s != %s", id1, id2)
	}
}

func TestAliasResolvesThroughCanonical(t *testing.T) {
	r := openTest(t)

	canonicalID, err := r.EnsureAgent("zealot")
	if err != nil {
		t.Fatalf("ensure canonical: %v", err)
	}
	aliasID, err := r.EnsureAgent("zealot-legacy")
	if err != nil {
		t.Fatalf("ensure alias target: %v", err)
	}
	if err := r.SetCanonical(aliasID, canonicalID); err != nil {
		t.Fatalf("set canonical: %v", err)
	}

	resolved, err := r.GetAgentID("zealot-legacy")
	if err != nil {
		t.Fatalf("get agent id: %v", err)
	}
	if resolved != canonicalID {
		t.Fatalf("expected alias to resolve to canonical id %s, got %s", canonicalID, resolved)
	}
}

func TestSaveConstitutionIsContentAddressedAndIdempotent(t *testing.T) {
	r := openTest(t)

	const hash = "deadbeef"
	if err := r.SaveConstitution(hash, "X"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := r.SaveConstitution(hash, "Y"); err != nil {
		t.Fatalf("save again: %v", err)
	}

	content, err := r.GetConstitution(hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if content != "X" {
		t.Fatalf("expected first write to win, got %q", content)
	}
}

func TestRenameAgentConflict(t *testing.T) {
	r := openTest(t)

	if _, err := r.EnsureAgent("alice"); err != nil {
		t.Fatalf("ensure alice: %v", err)
	}
	if _, err := r.EnsureAgent("bob"); err != nil {
		t.Fatalf("ensure bob: %v", err)
	}

	if err := r.RenameAgent("alice", "bob"); err == nil {
		t.Fatal("expected conflict renaming onto existing name")
	}
}

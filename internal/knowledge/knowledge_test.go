package knowledge

import (
	"path/filepath"
	"testing"

	"github.com/iteebz/spaceos/internal/events"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), DBName))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
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

func TestWriteAndQueryByDomain(t *testing.T) {
	s := openTest(t)
	j := openJournal(t)

	conf := 0.9
	if _, err := s.WriteKnowledge(j, "auth", "zealot-1", "JWTs rotate every 24h", &conf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.WriteKnowledge(j, "infra", "zealot-2", "Deploys gate on canary health", nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	authEntries, err := s.QueryByDomain("auth", false)
	if err != nil {
		t.Fatalf("query by domain: %v", err)
	}
	if len(authEntries) != 1 || authEntries[0].AgentID != "zealot-1" {
		t.Fatalf("expected 1 auth entry from zealot-1, got %+v", authEntries)
	}
	if authEntries[0].Confidence == nil || *authEntries[0].Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %+v", authEntries[0].Confidence)
	}

	n, err := j.CountByType("zealot-1", "entry.write")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 write event, got %d", n)
	}
}

func TestQueryByAgentAndListAll(t *testing.T) {
	s := openTest(t)
	j := openJournal(t)

	if _, err := s.WriteKnowledge(j, "auth", "zealot-1", "entry one", nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.WriteKnowledge(j, "infra", "zealot-1", "entry two", nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.WriteKnowledge(j, "infra", "zealot-2", "entry three", nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	byAgent, err := s.QueryByAgent("zealot-1", false)
	if err != nil {
		t.Fatalf("query by agent: %v", err)
	}
	if len(byAgent) != 2 {
		t.Fatalf("expected 2 entries for zealot-1, got %d", len(byAgent))
	}

	all, err := s.ListAll(false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 total entries, got %d", len(all))
	}
}

func TestArchiveAndRestoreKnowledge(t *testing.T) {
	s := openTest(t)
	j := openJournal(t)

	id, err := s.WriteKnowledge(j, "auth", "zealot-1", "sensitive finding", nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := s.ArchiveEntry(j, id); err != nil {
		t.Fatalf("archive: %v", err)
	}
	active, err := s.QueryByDomain("auth", false)
	if err != nil {
		t.Fatalf("query active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected 0 active entries after archive, got %d", len(active))
	}

	if _, err := s.RestoreEntry(j, id); err != nil {
		t.Fatalf("restore: %v", err)
	}
	active, err = s.QueryByDomain("auth", false)
	if err != nil {
		t.Fatalf("query after restore: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active entry after restore, got %d", len(active))
	}

	if n, err := j.CountByType("zealot-1", "archive"); err != nil || n != 1 {
		t.Fatalf("expected 1 archive event, got %d (err %v)", n, err)
	}
	if n, err := j.CountByType("zealot-1", "restore"); err != nil || n != 1 {
		t.Fatalf("expected 1 restore event, got %d (err %v)", n, err)
	}
}

func TestFindRelatedAcrossAgents(t *testing.T) {
	s := openTest(t)
	j := openJournal(t)

	base, err := s.WriteKnowledge(j, "auth", "zealot-1", "JWT rotation strategy documented", nil)
	if err != nil {
		t.Fatalf("write base: %v", err)
	}
	if _, err := s.WriteKnowledge(j, "auth", "zealot-2", "JWT rotation broke staging", nil); err != nil {
		t.Fatalf("write related: %v", err)
	}
	if _, err := s.WriteKnowledge(j, "infra", "zealot-2", "Canary health checks added", nil); err != nil {
		t.Fatalf("write unrelated: %v", err)
	}

	related, err := s.FindRelated(base, 0, false)
	if err != nil {
		t.Fatalf("find related: %v", err)
	}
	if len(related) != 1 {
		t.Fatalf("expected 1 related entry, got %d: %+v", len(related), related)
	}
	if related[0].Entry.AgentID != "zealot-2" {
		t.Fatalf("expected related entry from zealot-2, got %q", related[0].Entry.AgentID)
	}
}

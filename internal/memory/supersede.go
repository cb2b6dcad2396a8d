package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/kernelerr"
)

// ReplaceEntry supersedes oldIDs (short or full) with a new entry in a
// single transaction: the new entry records supersedes as the
// comma-joined full old ids; each old entry gets archived_at set and
// superseded_by pointing at the new id. On success it emits one
// "replace" event recording how many entries were superseded and the
// new entry's short id.
func (s *Store) ReplaceEntry(journal *events.Journal, oldShorts []string, agentID, topic, newMessage, note string) (newID string, err error) {
	fullIDs := make([]string, 0, len(oldShorts))
	for _, short := range oldShorts {
		full, err := s.resolve(short)
		if err != nil {
			return "", err
		}
		fullIDs = append(fullIDs, full)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", kernelerr.Storage(source, "beginning replace transaction", err)
	}
	defer tx.Rollback()

	newID = core.NewID()
	now := time.Now().Unix()
	supersedes := strings.Join(fullIDs, ",")

	_, err = tx.Exec(`
		INSERT INTO memory_entries
			(memory_id, agent_id, topic, message, timestamp, created_at, source, supersedes, synthesis_note)
		VALUES (?, ?, ?, ?, ?, ?, 'manual', ?, ?)
	`, newID, agentID, topic, newMessage, now, now, supersedes, nullable(note))
	if err != nil {
		return "", kernelerr.Storage(source, "inserting superseding entry", err)
	}

	for _, old := range fullIDs {
		_, err = tx.Exec(`UPDATE memory_entries SET archived_at = ?, superseded_by = ? WHERE memory_id = ?`, now, newID, old)
		if err != nil {
			return "", kernelerr.Storage(source, "archiving superseded entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", kernelerr.Storage(source, "committing replace", err)
	}

	if journal != nil {
		payload := fmt.Sprintf(`{"superseded_count":%d,"new_id":%q}`, len(fullIDs), core.Short(newID))
		if _, err := journal.Emit(source, "replace", agentID, payload); err != nil {
			return "", err
		}
	}

	return newID, nil
}

// Chain is the result of a supersession DAG traversal from a starting
// entry: every predecessor (entries it supersedes, transitively) and
// successor (entries that superseded it, transitively) reachable from it.
type Chain struct {
	Start        string
	Predecessors []string
	Successors   []string
}

// GetChain traverses supersedes/superseded_by pointers from memoryID,
// collecting every predecessor and successor reachable via BFS with a
// visited set (no graph library required per spec §9).
func (s *Store) GetChain(memoryID string) (*Chain, error) {
	fullID, err := s.resolve(memoryID)
	if err != nil {
		return nil, err
	}

	chain := &Chain{Start: fullID}

	visited := map[string]struct{}{fullID: {}}
	queue := []string{fullID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		preds, err := s.predecessorsOf(current)
		if err != nil {
			return nil, err
		}
		for _, p := range preds {
			if _, ok := visited[p]; ok {
				continue
			}
			visited[p] = struct{}{}
			chain.Predecessors = append(chain.Predecessors, p)
			queue = append(queue, p)
		}

		succs, err := s.successorsOf(current)
		if err != nil {
			return nil, err
		}
		for _, sc := range succs {
			if _, ok := visited[sc]; ok {
				continue
			}
			visited[sc] = struct{}{}
			chain.Successors = append(chain.Successors, sc)
			queue = append(queue, sc)
		}
	}

	return chain, nil
}

func (s *Store) predecessorsOf(memoryID string) ([]string, error) {
	var supersedes string
	err := s.db.QueryRow(`SELECT supersedes FROM memory_entries WHERE memory_id = ?`, memoryID).Scan(&supersedes)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading supersedes", err)
	}
	if supersedes == "" {
		return nil, nil
	}
	return strings.Split(supersedes, ","), nil
}

func (s *Store) successorsOf(memoryID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT memory_id FROM memory_entries WHERE supersedes LIKE ?`, "%"+memoryID+"%")
	if err != nil {
		return nil, kernelerr.Storage(source, "reading successors", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, kernelerr.Storage(source, "scanning successor", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

package memory

import (
	"sort"
	"strings"

	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/model"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "that": {}, "with": {}, "this": {}, "from": {},
	"have": {}, "will": {}, "your": {}, "about": {}, "into": {}, "they": {},
	"them": {}, "their": {}, "were": {}, "been": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "there": {}, "should": {}, "would": {}, "could": {},
}

// Related pairs a candidate entry with its keyword-overlap score.
type Related struct {
	Entry model.MemoryEntry
	Score int
}

// FindRelated tokenizes the given entry's topic and message, then
// scores every other active entry for the same agent by keyword
// intersection count. Entries with zero overlap are discarded. Ties
// break by recency (memory_id, which is time-ordered).
func (s *Store) FindRelated(memoryID string, limit int, includeArchived bool) ([]Related, error) {
	entry, err := s.GetByMemoryID(memoryID)
	if err != nil {
		return nil, err
	}

	target := tokenize(entry.Topic + " " + entry.Message)
	if len(target) == 0 {
		return nil, nil
	}

	candidates, err := s.GetMemories(entry.AgentID, "", includeArchived, 0)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading candidates for related search", err)
	}

	var scored []Related
	for _, c := range candidates {
		if c.MemoryID == entry.MemoryID {
			continue
		}
		score := overlap(target, tokenize(c.Topic+" "+c.Message))
		if score == 0 {
			continue
		}
		scored = append(scored, Related{Entry: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Entry.MemoryID > scored[j].Entry.MemoryID
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := make(map[string]struct{})
	for _, f := range fields {
		if len(f) <= 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	count := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			count++
		}
	}
	return count
}

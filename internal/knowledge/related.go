package knowledge

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
	Entry model.KnowledgeEntry
	Score int
}

// FindRelated tokenizes the given entry's domain and content, then
// scores every other entry by keyword intersection count. Entries
// with zero overlap are discarded; unlike memory's version this scans
// the whole store, not a single agent's entries, since knowledge is
// shared pool-wide.
func (s *Store) FindRelated(knowledgeID string, limit int, includeArchived bool) ([]Related, error) {
	entry, err := s.GetByID(knowledgeID)
	if err != nil {
		return nil, err
	}

	target := tokenize(entry.Domain + " " + entry.Content)
	if len(target) == 0 {
		return nil, nil
	}

	candidates, err := s.ListAll(includeArchived)
	if err != nil {
		return nil, kernelerr.Storage(source, "reading candidates for related search", err)
	}

	var scored []Related
	for _, c := range candidates {
		if c.KnowledgeID == entry.KnowledgeID {
			continue
		}
		score := overlap(target, tokenize(c.Domain+" "+c.Content))
		if score == 0 {
			continue
		}
		scored = append(scored, Related{Entry: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Entry.KnowledgeID > scored[j].Entry.KnowledgeID
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

package core

import "testing"

func TestParseMentions(t *testing.T) {
	body := "hey @alice and @bob-2 please look, cc @all, the domain of an email also matches test@test.com"
	mentions := ParseMentions(body)

	if len(mentions) != 4 {
		t.Fatalf("expected 4 mentions, got %d: %v", len(mentions), mentions)
	}
	assertMention(t, mentions, "alice")
	assertMention(t, mentions, "bob-2")
	assertMention(t, mentions, "all")
	assertMention(t, mentions, "test")
}

func TestParseMentionsDedup(t *testing.T) {
	mentions := ParseMentions("@alice ping @alice again")
	if len(mentions) != 1 {
		t.Fatalf("expected 1 deduplicated mention, got %d: %v", len(mentions), mentions)
	}
}

func TestExpandAllMention(t *testing.T) {
	bases := map[string]struct{}{"alice": {}, "bob": {}}
	expanded := ExpandAllMention([]string{"all"}, bases)
	if len(expanded) != 2 {
		t.Fatalf("expected 2 expanded mentions, got %d: %v", len(expanded), expanded)
	}
	assertMention(t, expanded, "alice")
	assertMention(t, expanded, "bob")
}

func TestExpandAllMentionNoop(t *testing.T) {
	mentions := ExpandAllMention([]string{"alice"}, map[string]struct{}{"bob": {}})
	if len(mentions) != 1 || mentions[0] != "alice" {
		t.Fatalf("expected mentions unchanged, got %v", mentions)
	}
}

func assertMention(t *testing.T, mentions []string, value string) {
	t.Helper()
	for _, mention := range mentions {
		if mention == value {
			return
		}
	}
	t.Fatalf("expected mention %s in %v", value, mentions)
}

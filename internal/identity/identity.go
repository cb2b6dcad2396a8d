// Package identity assembles and materialises an agent's full
// constitution text and drives the "identify" lifecycle hook that
// every identity-bearing command runs first.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/registry"
	"github.com/iteebz/spaceos/internal/workspace"
)

const footer = `
---
Run ` + "`space`" + ` for orientation. Run ` + "`memory --as <identity>`" + ` for your memories.
`

// BaseIdentity is the CLI family an identity belongs to, governing
// which materialised file receives the assembled constitution.
type BaseIdentity string

const (
	BaseClaude BaseIdentity = "CLAUDE"
	BaseGemini BaseIdentity = "GEMINI"
	BaseAgents BaseIdentity = "AGENTS"
)

// ExtractRole extracts the role from an identity string: the prefix
// before the last "-", or the full string if there is no "-".
func ExtractRole(identity string) string {
	idx := strings.LastIndex(identity, "-")
	if idx < 0 {
		return identity
	}
	return identity[:idx]
}

// InjectIdentity assembles the full constitution text per spec §4.4:
// header, self line, sorted canon corpus, base constitution, footer.
func InjectIdentity(ws *workspace.Workspace, baseConstitution, role, identity, model string) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s CONSTITUTION\n\n", strings.ToUpper(role))

	if model != "" {
		fmt.Fprintf(&b, "Self: You are %s. Your model is %s.\n\n", identity, model)
	} else {
		fmt.Fprintf(&b, "Self: You are %s.\n\n", identity)
	}

	canon, err := loadCanon(ws)
	if err != nil {
		return "", err
	}
	if canon != "" {
		b.WriteString(canon)
		b.WriteString("\n\n")
	}

	b.WriteString(baseConstitution)
	b.WriteString("\n")
	b.WriteString(footer)

	return b.String(), nil
}

// loadCanon concatenates, in sorted path order, every .md file under
// <workspace>/canon/. Returns "" if the directory is absent or empty.
func loadCanon(ws *workspace.Workspace) (string, error) {
	dir := ws.CanonDir()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		b.Write(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// BaseFor maps a role's base-identity family to its materialised
// filename stem. Callers that know the family directly should use
// ws.IdentityFilePath(string(base)) instead.
func BaseFor(role string) BaseIdentity {
	switch strings.ToLower(role) {
	case "gemini":
		return BaseGemini
	case "claude":
		return BaseClaude
	default:
		return BaseAgents
	}
}

// Identify runs the provenance hook every identity-bearing command
// calls first: extract role, assemble the constitution, write the
// identity file, hash and upsert it, and emit the identity event.
func Identify(ws *workspace.Workspace, reg *registry.Registry, journal *events.Journal, identity, baseConstitution, model, command string) (hash string, err error) {
	role := ExtractRole(identity)

	content, err := InjectIdentity(ws, baseConstitution, role, identity, model)
	if err != nil {
		return "", err
	}

	hash = core.ContentHash(content)

	base := BaseFor(role)
	if err := os.WriteFile(ws.IdentityFilePath(string(base)), []byte(content), 0o644); err != nil {
		return "", err
	}

	if err := reg.SaveConstitution(hash, content); err != nil {
		return "", err
	}

	agentID, err := reg.EnsureAgent(identity)
	if err != nil {
		return "", err
	}

	data := fmt.Sprintf(`{"hash":%q,"role":%q,"model":%q}`, hash, role, model)
	if _, err := journal.Emit("identity", command, agentID, data); err != nil {
		return "", err
	}

	return hash, nil
}

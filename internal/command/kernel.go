// Package command implements the space CLI: one cobra subcommand per
// subsystem verb, a shared Kernel wiring every store open for the
// lifetime of a single invocation, and the pretty/json/quiet output
// contract from spec.md §6.
package command

import (
	"github.com/spf13/cobra"

	"github.com/iteebz/spaceos/internal/bridge"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/knowledge"
	"github.com/iteebz/spaceos/internal/memory"
	"github.com/iteebz/spaceos/internal/ops"
	"github.com/iteebz/spaceos/internal/registry"
	"github.com/iteebz/spaceos/internal/workspace"
)

// Kernel bundles every open store a command handler might need, plus
// the resolved output mode. One Kernel is opened per invocation and
// closed before the process exits.
type Kernel struct {
	Workspace *workspace.Workspace
	Registry  *registry.Registry
	Events    *events.Journal
	Bridge    *bridge.Bus
	Memory    *memory.Store
	Knowledge *knowledge.Store
	Ops       *ops.Store

	JSONMode bool
	Quiet    bool
	AsFlag   string
}

// OpenKernel resolves the workspace and opens every logical database
// beneath it, ops.db included.
func OpenKernel(spaceHome string, jsonMode, quiet bool, as string) (*Kernel, error) {
	ws, err := workspace.Resolve(spaceHome)
	if err != nil {
		return nil, err
	}

	k := &Kernel{Workspace: ws, JSONMode: jsonMode, Quiet: quiet, AsFlag: as}

	regPath, err := ws.DBPath(registry.DBName)
	if err != nil {
		return nil, err
	}
	if k.Registry, err = registry.Open(regPath); err != nil {
		return nil, err
	}

	evPath, err := ws.DBPath(events.DBName)
	if err != nil {
		return nil, err
	}
	if k.Events, err = events.Open(evPath); err != nil {
		k.Close()
		return nil, err
	}

	bridgePath, err := ws.DBPath(bridge.DBName)
	if err != nil {
		k.Close()
		return nil, err
	}
	if k.Bridge, err = bridge.Open(bridgePath); err != nil {
		k.Close()
		return nil, err
	}

	memPath, err := ws.DBPath(memory.DBName)
	if err != nil {
		k.Close()
		return nil, err
	}
	if k.Memory, err = memory.Open(memPath); err != nil {
		k.Close()
		return nil, err
	}

	knowPath, err := ws.DBPath(knowledge.DBName)
	if err != nil {
		k.Close()
		return nil, err
	}
	if k.Knowledge, err = knowledge.Open(knowPath); err != nil {
		k.Close()
		return nil, err
	}

	opsPath, err := ws.DBPath(ops.DBName)
	if err != nil {
		k.Close()
		return nil, err
	}
	if k.Ops, err = ops.Open(opsPath); err != nil {
		k.Close()
		return nil, err
	}

	return k, nil
}

// Close closes every opened store, tolerating partially-constructed
// kernels from a failed Open.
func (k *Kernel) Close() {
	if k.Ops != nil {
		k.Ops.Close()
	}
	if k.Knowledge != nil {
		k.Knowledge.Close()
	}
	if k.Memory != nil {
		k.Memory.Close()
	}
	if k.Bridge != nil {
		k.Bridge.Close()
	}
	if k.Events != nil {
		k.Events.Close()
	}
	if k.Registry != nil {
		k.Registry.Close()
	}
}

// RequireIdentity returns the resolved --as identity or a validation
// error when the command requires one and it's missing.
func (k *Kernel) RequireIdentity() (string, error) {
	if k.AsFlag == "" {
		return "", kernelerr.Validation("command", "--as <identity> is required")
	}
	return k.AsFlag, nil
}

// GetKernel resolves the shared Kernel for cmd from its persistent
// flags. Callers must Close() the result.
func GetKernel(cmd *cobra.Command) (*Kernel, error) {
	jsonMode, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	as, _ := cmd.Flags().GetString("as")
	spaceHome, _ := cmd.Flags().GetString("space-home")
	return OpenKernel(spaceHome, jsonMode, quiet, as)
}

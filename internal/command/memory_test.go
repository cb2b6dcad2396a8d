package command

import (
	"strings"
	"testing"
)

func TestMemoryAddListAndArchive(t *testing.T) {
	home := t.TempDir()

	cmd := NewRootCmd("test")
	output, err := executeCommand(cmd, "--space-home", home, "--as", "scout", "memory", "add", "routing", "learned the topology")
	if err != nil {
		t.Fatalf("add: %v (%s)", err, output)
	}

	cmd = NewRootCmd("test")
	output, err = executeCommand(cmd, "--space-home", home, "--as", "scout", "memory", "list")
	if err != nil {
		t.Fatalf("list: %v (%s)", err, output)
	}
	if !strings.Contains(output, "learned the topology") {
		t.Fatalf("expected entry in list output, got %q", output)
	}
}

func TestMemoryReplaceSupersedes(t *testing.T) {
	home := t.TempDir()

	cmd := NewRootCmd("test")
	output, err := executeCommand(cmd, "--space-home", home, "--as", "scout", "memory", "add", "routing", "first draft")
	if err != nil {
		t.Fatalf("add: %v (%s)", err, output)
	}

	cmd = NewRootCmd("test")
	output, err = executeCommand(cmd, "--space-home", home, "--as", "scout", "memory", "list", "--topic", "routing")
	if err != nil {
		t.Fatalf("list: %v (%s)", err, output)
	}
	start := strings.Index(output, "[")
	end := strings.Index(output, "]")
	if start < 0 || end < 0 {
		t.Fatalf("could not find short id in %q", output)
	}
	shortID := output[start+1 : end]

	cmd = NewRootCmd("test")
	output, err = executeCommand(cmd, "--space-home", home, "--as", "scout", "memory", "replace", shortID, "revised and better")
	if err != nil {
		t.Fatalf("replace: %v (%s)", err, output)
	}

	cmd = NewRootCmd("test")
	output, err = executeCommand(cmd, "--space-home", home, "--as", "scout", "memory", "list", "--topic", "routing")
	if err != nil {
		t.Fatalf("list after replace: %v (%s)", err, output)
	}
	if strings.Contains(output, "first draft") {
		t.Fatalf("expected superseded entry to be archived out of the default list, got %q", output)
	}
	if !strings.Contains(output, "revised and better") {
		t.Fatalf("expected replacement entry in list, got %q", output)
	}
}

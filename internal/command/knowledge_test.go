package command

import (
	"strings"
	"testing"
)

func TestKnowledgeWriteAndDomain(t *testing.T) {
	home := t.TempDir()

	cmd := NewRootCmd("test")
	output, err := executeCommand(cmd, "--space-home", home, "--as", "scout", "knowledge", "write", "routing", "prefer the shortest path")
	if err != nil {
		t.Fatalf("write: %v (%s)", err, output)
	}

	cmd = NewRootCmd("test")
	output, err = executeCommand(cmd, "--space-home", home, "knowledge", "domain", "routing")
	if err != nil {
		t.Fatalf("domain: %v (%s)", err, output)
	}
	if !strings.Contains(output, "prefer the shortest path") {
		t.Fatalf("expected entry in domain listing, got %q", output)
	}
}

func TestKnowledgeArchiveAndRestore(t *testing.T) {
	home := t.TempDir()

	cmd := NewRootCmd("test")
	output, err := executeCommand(cmd, "--space-home", home, "--as", "scout", "knowledge", "write", "routing", "stale fact")
	if err != nil {
		t.Fatalf("write: %v (%s)", err, output)
	}

	cmd = NewRootCmd("test")
	output, err = executeCommand(cmd, "--space-home", home, "knowledge", "domain", "routing")
	if err != nil {
		t.Fatalf("domain: %v (%s)", err, output)
	}
	start := strings.Index(output, "[")
	end := strings.Index(output, "]")
	shortID := output[start+1 : end]

	cmd = NewRootCmd("test")
	if _, err := executeCommand(cmd, "--space-home", home, "knowledge", "archive", shortID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	cmd = NewRootCmd("test")
	output, err = executeCommand(cmd, "--space-home", home, "knowledge", "domain", "routing")
	if err != nil {
		t.Fatalf("domain after archive: %v (%s)", err, output)
	}
	if strings.Contains(output, "stale fact") {
		t.Fatalf("expected archived entry to be excluded by default, got %q", output)
	}

	cmd = NewRootCmd("test")
	if _, err := executeCommand(cmd, "--space-home", home, "knowledge", "restore", shortID); err != nil {
		t.Fatalf("restore: %v", err)
	}

	cmd = NewRootCmd("test")
	output, err = executeCommand(cmd, "--space-home", home, "knowledge", "domain", "routing")
	if err != nil {
		t.Fatalf("domain after restore: %v (%s)", err, output)
	}
	if !strings.Contains(output, "stale fact") {
		t.Fatalf("expected restored entry back in domain listing, got %q", output)
	}
}

package command

import (
	"strings"
	"testing"
)

func TestWakeFirstBootThenReturning(t *testing.T) {
	home := t.TempDir()

	cmd := NewRootCmd("test")
	output, err := executeCommand(cmd, "--space-home", home, "--as", "scout", "wake")
	if err != nil {
		t.Fatalf("wake: %v (%s)", err, output)
	}
	if !strings.Contains(output, "first boot") {
		t.Fatalf("expected first-boot welcome, got %q", output)
	}

	cmd = NewRootCmd("test")
	if _, err := executeCommand(cmd, "--space-home", home, "--as", "scout", "sleep"); err != nil {
		t.Fatalf("sleep: %v", err)
	}

	cmd = NewRootCmd("test")
	output, err = executeCommand(cmd, "--space-home", home, "--as", "scout", "wake")
	if err != nil {
		t.Fatalf("second wake: %v (%s)", err, output)
	}
	if !strings.Contains(output, "welcome back") {
		t.Fatalf("expected welcome-back message on second wake, got %q", output)
	}
}

func TestSleepCheckIsDryRun(t *testing.T) {
	home := t.TempDir()

	cmd := NewRootCmd("test")
	if _, err := executeCommand(cmd, "--space-home", home, "--as", "scout", "wake"); err != nil {
		t.Fatalf("wake: %v", err)
	}

	cmd = NewRootCmd("test")
	output, err := executeCommand(cmd, "--space-home", home, "--as", "scout", "sleep", "--check")
	if err != nil {
		t.Fatalf("sleep --check: %v (%s)", err, output)
	}
	if !strings.Contains(output, "checkpointed") {
		t.Fatalf("expected checkpoint summary in dry-run output, got %q", output)
	}
}

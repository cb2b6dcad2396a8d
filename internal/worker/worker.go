// Package worker fans out an incoming channel message that names one
// or more agents via @mention into detached external-process spawns,
// each posting its reply back into the same channel as itself.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/kernelerr"
	"github.com/iteebz/spaceos/internal/model"
)

// DefaultTimeout is the per-mention wall-clock budget (spec §4.6).
const DefaultTimeout = 10 * time.Second

// DefaultMaxOutputBytes bounds captured stdout per worker.
const DefaultMaxOutputBytes = 64 * 1024

// SpawnCommand is the external agent-invocation command, e.g. "spawn".
// Overridable for tests.
var SpawnCommand = "spawn"

// Poster is the subset of the bridge bus the worker needs to post a
// reply, kept as an interface so tests can stub it without a real db.
type Poster interface {
	CreateMessage(journal *events.Journal, channelID, agentID, content string, priority model.Priority) (string, error)
}

// Dispatch parses mentions out of content and, unless sender is
// "system" (preventing spawn loops), spawns one worker per mention
// concurrently. Each worker runs in its own goroutine and Dispatch
// returns without waiting for any of them, so the bridge send path
// calls it directly and the sender's call returns immediately.
// journal may be nil, in
// which case no worker outcome is journaled.
func Dispatch(ctx context.Context, poster Poster, journal *events.Journal, channelID, channelName, content, sender string, timeout time.Duration, maxBytes int) {
	if sender == "system" {
		return
	}
	mentions := core.ParseMentions(content)
	if len(mentions) == 0 {
		return
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}

	for _, identity := range mentions {
		go spawnOne(ctx, poster, journal, channelID, channelName, content, identity, timeout, maxBytes)
	}
}

func spawnOne(ctx context.Context, poster Poster, journal *events.Journal, channelID, channelName, content, identity string, timeout time.Duration, maxBytes int) {
	prompt := SpawnPrompt(identity, channelName, content)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, SpawnCommand, identity, prompt, "--channel", channelName)
	cmd.Stdin = nil

	out, err := runBounded(cmd, maxBytes)
	if runCtx.Err() == context.DeadlineExceeded {
		// Timeout, failure, or empty output: skip, never surface to
		// the sender (spec §4.6, §7 WorkerError), but still journal it.
		kerr := kernelerr.Timeout("worker", fmt.Sprintf("worker for %s timed out after %s", identity, timeout))
		emit(journal, "timeout", identity, kerr.Error())
		return
	}
	if err != nil {
		kerr := kernelerr.Worker("worker", fmt.Sprintf("worker for %s failed", identity), err)
		emit(journal, "failure", identity, kerr.Error())
		return
	}

	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return
	}

	if _, err := poster.CreateMessage(journal, channelID, identity, string(trimmed), model.PriorityNormal); err != nil {
		kerr := kernelerr.Worker("worker", fmt.Sprintf("posting reply for %s failed", identity), err)
		emit(journal, "post_failure", identity, kerr.Error())
	}
}

func emit(journal *events.Journal, eventType, agentID, data string) {
	if journal == nil {
		return
	}
	_, _ = journal.Emit("worker", eventType, agentID, data)
}

// SpawnPrompt assembles the prompt string handed to the external
// agent process: channel, content, and mention context.
func SpawnPrompt(identity, channelName, content string) string {
	return fmt.Sprintf("You were mentioned in #%s:\n\n%s", channelName, content)
}

func runBounded(cmd *exec.Cmd, maxBytes int) ([]byte, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	limited := io.LimitReader(stdout, int64(maxBytes))
	buf, readErr := io.ReadAll(limited)

	waitErr := cmd.Wait()
	if waitErr != nil {
		return buf, waitErr
	}
	return buf, readErr
}

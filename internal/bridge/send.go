package bridge

import (
	"context"
	"time"

	"github.com/iteebz/spaceos/internal/events"
	"github.com/iteebz/spaceos/internal/model"
	"github.com/iteebz/spaceos/internal/worker"
)

// SendMessage creates a message and, if its content contains one or
// more @mentions and the sender is not "system", triggers the mention
// worker asynchronously without waiting for it (spec §4.5/§4.6).
// journal may be nil, in which case neither the send nor any worker
// outcome is journaled.
func (b *Bus) SendMessage(journal *events.Journal, channelID, channelName, agentID, content string, priority model.Priority, timeout time.Duration, maxWorkerBytes int) (string, error) {
	id, err := b.CreateMessage(journal, channelID, agentID, content, priority)
	if err != nil {
		return "", err
	}

	worker.Dispatch(context.Background(), b, journal, channelID, channelName, content, agentID, timeout, maxWorkerBytes)

	return id, nil
}

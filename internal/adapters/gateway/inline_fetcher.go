package gateway

import (
	"context"
	"fmt"
	"sync"
)

// InlineFetcher serves attachment bytes parsed out of an inbound SMTP
// message. Unlike the Gmail source there is no remote store to fetch from,
// so bytes are registered under a generated message id for the duration of
// that message's analysis and released afterwards.
type InlineFetcher struct {
	mu       sync.RWMutex
	messages map[string]map[string][]byte
}

// NewInlineFetcher creates a new inline fetcher
func NewInlineFetcher() *InlineFetcher {
	return &InlineFetcher{
		messages: make(map[string]map[string][]byte),
	}
}

// Register stores the attachments of one in-flight message
func (f *InlineFetcher) Register(messageID string, attachments map[string][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[messageID] = attachments
}

// Release drops the attachments of a completed message
func (f *InlineFetcher) Release(messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, messageID)
}

// FetchAttachment resolves registered attachment bytes
func (f *InlineFetcher) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	attachments, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("no attachments registered for message %s", messageID)
	}
	data, ok := attachments[attachmentID]
	if !ok {
		return nil, fmt.Errorf("unknown attachment %s for message %s", attachmentID, messageID)
	}
	return data, nil
}

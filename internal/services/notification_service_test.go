package services

import (
	"testing"
	"time"

	"github.com/faunawatch/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHubSurvivesSlowClient covers the eviction path: a subscriber whose send
// buffer never drains must be dropped without stalling topic delivery or
// subsequent broadcasts.
func TestHubSurvivesSlowClient(t *testing.T) {
	ts := testutil.NewTestSetup(t)
	t.Cleanup(ts.Cleanup)

	svc := NewNotificationService(ts.Logger)

	// Zero-capacity send channel: the first frame already finds it full.
	stalled := &Client{send: make(chan []byte), topics: map[string]bool{"a-001": true}}
	healthy := &Client{send: make(chan []byte, wsSendBuffer), topics: map[string]bool{"a-001": true}}
	svc.mutex.Lock()
	svc.clients[stalled] = true
	svc.clients[healthy] = true
	svc.mutex.Unlock()

	svc.NotifyTopic("a-001", NotificationTypeAlert, map[string]string{"alert_id": "al-1"})

	require.Eventually(t, func() bool {
		svc.mutex.RLock()
		defer svc.mutex.RUnlock()
		return !svc.clients[stalled]
	}, 2*time.Second, 10*time.Millisecond, "stalled client was not evicted")

	// The hub keeps serving: a broadcast still reaches the healthy client.
	svc.Notify(NotificationTypeSystemEvent, "", "daily reports ready")

	received := 0
	deadline := time.After(2 * time.Second)
	for received < 2 {
		select {
		case <-healthy.send:
			received++
		case <-deadline:
			t.Fatalf("healthy client received %d of 2 messages", received)
		}
	}
	assert.Equal(t, 2, received)

	// Eviction closed the stalled channel.
	_, open := <-stalled.send
	assert.False(t, open)
}

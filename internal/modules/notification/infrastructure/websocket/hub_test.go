package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SendToUser_OnlyMatchingClientsReceive(t *testing.T) {
	h := NewHub(nil)
	targetID := uuid.New()
	otherID := uuid.New()

	target := &Client{send: make(chan []byte, 1), userID: targetID}
	second := &Client{send: make(chan []byte, 1), userID: targetID}
	other := &Client{send: make(chan []byte, 1), userID: otherID}
	h.clients[target] = true
	h.clients[second] = true
	h.clients[other] = true

	go h.Run()
	defer h.Stop()

	require.True(t, h.SendToUser(targetID, []byte("only-target")))

	for _, c := range []*Client{target, second} {
		select {
		case msg := <-c.send:
			assert.Equal(t, "only-target", string(msg))
		case <-time.After(2 * time.Second):
			t.Fatal("target did not receive message")
		}
	}

	select {
	case <-other.send:
		t.Fatal("non-target client should not receive unicast")
	default:
	}
}

func TestHub_SendToUser_NeverBlocks(t *testing.T) {
	h := NewHub(nil)
	userID := uuid.New()

	// nothing drains the queue
	for i := 0; i < unicastBuffer; i++ {
		require.True(t, h.SendToUser(userID, []byte("x")))
	}

	done := make(chan bool, 1)
	go func() { done <- h.SendToUser(userID, []byte("overflow")) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("SendToUser blocked")
	}
}

func TestHub_SendAfterStop(t *testing.T) {
	h := NewHub(nil)
	h.Stop()
	h.Stop()
	assert.False(t, h.SendToUser(uuid.New(), []byte("x")))
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := NewHub(nil)
	userID := uuid.New()
	slow := &Client{send: make(chan []byte, 1), userID: userID}
	slow.send <- []byte("unread")
	probe := &Client{send: make(chan []byte, 1), userID: uuid.New()}
	h.clients[slow] = true
	h.clients[probe] = true

	go h.Run()
	defer h.Stop()

	require.True(t, h.SendToUser(userID, []byte("x")))
	// messages are handled in order, so once the probe has its message the
	// slow client has been dealt with
	require.True(t, h.SendToUser(probe.userID, []byte("probe")))
	select {
	case <-probe.send:
	case <-time.After(2 * time.Second):
		t.Fatal("probe message not delivered")
	}

	assert.Equal(t, "unread", string(<-slow.send))
	_, ok := <-slow.send
	assert.False(t, ok, "send channel should be closed")
}

func TestHub_StopClosesClients(t *testing.T) {
	h := NewHub(nil)
	c := &Client{send: make(chan []byte, 1), userID: uuid.New()}
	h.clients[c] = true

	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	h.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	_, ok := <-c.send
	assert.False(t, ok)
}

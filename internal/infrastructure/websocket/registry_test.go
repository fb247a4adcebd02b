package websocket

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

type stubConn struct {
	sent [][]byte
	err  error
}

func (c *stubConn) Send(payload []byte) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, payload)
	return nil
}

func (c *stubConn) Close() error { return nil }

func TestRegistry_NotifyUser(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	tab1 := &stubConn{}
	tab2 := &stubConn{}
	r.Register("user1", tab1)
	r.Register("user1", tab2)

	event := &domain.NotificationEvent{Type: domain.EventBidOutbid, UserID: "user1", AuctionID: "a1"}
	require.NoError(t, r.NotifyUser("user1", event))

	require.Len(t, tab1.sent, 1)
	require.Len(t, tab2.sent, 1, "every connection of the user receives the event")

	var decoded domain.NotificationEvent
	require.NoError(t, json.Unmarshal(tab1.sent[0], &decoded))
	assert.Equal(t, domain.EventBidOutbid, decoded.Type)

	// Unknown user is a silent no-op, not an error.
	require.NoError(t, r.NotifyUser("nobody", event))
}

func TestRegistry_SendFailureDoesNotStopOthers(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	broken := &stubConn{err: errors.New("connection reset")}
	healthy := &stubConn{}
	r.Register("user1", broken)
	r.Register("user1", healthy)

	require.NoError(t, r.NotifyUser("user1", map[string]string{"hello": "world"}))
	assert.Len(t, healthy.sent, 1)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	tab1 := &stubConn{}
	tab2 := &stubConn{}
	r.Register("user1", tab1)
	r.Register("user1", tab2)
	assert.Equal(t, []string{"user1"}, r.ConnectedUsers())

	r.Unregister("user1", tab1)
	require.NoError(t, r.NotifyUser("user1", "ping"))
	assert.Empty(t, tab1.sent)
	assert.Len(t, tab2.sent, 1)

	r.Unregister("user1", tab2)
	assert.Empty(t, r.ConnectedUsers())
}

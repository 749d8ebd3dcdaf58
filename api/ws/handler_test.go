package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaoTrinh25/Job-BE/internal/domain"
	"github.com/BaoTrinh25/Job-BE/internal/fanout"
	"github.com/BaoTrinh25/Job-BE/internal/identity"
	"github.com/BaoTrinh25/Job-BE/internal/store"
	"github.com/BaoTrinh25/Job-BE/pkg/logger"
	"github.com/BaoTrinh25/Job-BE/service"
)

type testClient struct {
	conn *gws.Conn
	t    *testing.T
}

func setupServer(t *testing.T) *httptest.Server {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	chatStore := store.New(db)
	require.NoError(t, chatStore.Migrate())

	avatar := "https://cdn.example.com/a/alice.png"
	require.NoError(t, db.Create(&store.User{ID: 1, Username: "alice", Avatar: &avatar}).Error)
	require.NoError(t, db.Create(&store.User{ID: 2, Username: "bob"}).Error)

	ctx := logger.NewContext(context.Background(), logger.NewLogger("error", ""))
	memFanout := fanout.NewMemory()
	directory := identity.NewDirectory(ctx, db, nil)
	chatService := service.NewChatService(ctx, chatStore, memFanout, directory)

	server := httptest.NewServer(SetupWebSocketRoutes(WSConfig{
		ChatService: chatService,
		RootCtx:     ctx,
	}))

	t.Cleanup(func() {
		server.Close()
		memFanout.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return server
}

func connectClient(t *testing.T, server *httptest.Server, room string) *testClient {
	wsURL := "ws" + server.URL[4:] + "/ws/chat/" + room + "/"
	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{conn: conn, t: t}
}

func (c *testClient) sendJSON(v interface{}) {
	require.NoError(c.t, c.conn.WriteJSON(v))
}

func (c *testClient) sendChat(body string, jobID, senderID, receiverID uint, sender string) {
	c.sendJSON(map[string]interface{}{
		"type":        domain.EventChat,
		"message":     body,
		"jobId":       jobID,
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"sender":      sender,
	})
}

func (c *testClient) receiveBroadcast() domain.ChatBroadcast {
	var msg domain.ChatBroadcast
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return msg
}

func (c *testClient) receiveHistory() domain.HistoryResponse {
	var resp domain.HistoryResponse
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(c.t, c.conn.ReadJSON(&resp))
	return resp
}

// waitReady round-trips a throwaway history request. The response can only
// arrive once the server-side read pump is running, which in turn means
// the connection's group membership is established.
func (c *testClient) waitReady() {
	c.sendJSON(map[string]interface{}{
		"type":        domain.EventPreviousMessages,
		"sender_id":   1,
		"receiver_id": 2,
		"jobId":       0,
	})
	_ = c.receiveHistory()
}

func TestChatBroadcastReachesRoomMembers(t *testing.T) {
	server := setupServer(t)

	c1 := connectClient(t, server, "42")
	c2 := connectClient(t, server, "42")
	c1.waitReady()
	c2.waitReady()

	c1.sendChat("hi", 7, 1, 2, "alice")

	msg := c2.receiveBroadcast()
	assert.Equal(t, "hi", msg.Message)
	assert.Equal(t, uint(7), msg.JobID)
	assert.Equal(t, "alice", msg.Sender)
	assert.Equal(t, uint(1), msg.SenderID)
	assert.Equal(t, uint(2), msg.ReceiverID)

	// The sender hears its own message through the same path.
	echo := c1.receiveBroadcast()
	assert.Equal(t, msg, echo)
}

func TestPreviousMessagesReturnsStoredConversation(t *testing.T) {
	server := setupServer(t)

	c1 := connectClient(t, server, "42")
	c1.sendChat("hi", 7, 1, 2, "alice")
	_ = c1.receiveBroadcast()

	// A fresh connection catches up via an explicit history fetch.
	c2 := connectClient(t, server, "42")
	c2.sendJSON(map[string]interface{}{
		"type":        domain.EventPreviousMessages,
		"sender_id":   1,
		"receiver_id": 2,
		"jobId":       7,
	})

	resp := c2.receiveHistory()
	assert.Equal(t, domain.EventPreviousMessages, resp.Type)
	require.Len(t, resp.Messages, 1)

	entry := resp.Messages[0]
	assert.Equal(t, "hi", entry.Message)
	assert.Equal(t, uint(7), entry.JobID)
	assert.Equal(t, uint(1), entry.SenderID)
	assert.Equal(t, uint(2), entry.ReceiverID)
	assert.Equal(t, uint(1), entry.Sender.ID)
	assert.Equal(t, "alice", entry.Sender.Username)
	require.NotNil(t, entry.Sender.Avatar)
}

func TestPreviousMessagesEmptyConversation(t *testing.T) {
	server := setupServer(t)

	c1 := connectClient(t, server, "99")
	c1.sendJSON(map[string]interface{}{
		"type":        domain.EventPreviousMessages,
		"sender_id":   1,
		"receiver_id": 2,
		"jobId":       31337,
	})

	resp := c1.receiveHistory()
	assert.Equal(t, domain.EventPreviousMessages, resp.Type)
	assert.NotNil(t, resp.Messages)
	assert.Empty(t, resp.Messages)
}

func TestUnknownEventTypeIgnored(t *testing.T) {
	server := setupServer(t)

	c1 := connectClient(t, server, "42")

	// Neither of these produces a broadcast, a storage write, or an error.
	c1.sendJSON(map[string]interface{}{"type": "bogus", "message": "x"})
	c1.sendJSON(map[string]interface{}{"message": "no type at all"})

	// The connection is still usable for valid events.
	c1.sendChat("still here", 7, 1, 2, "alice")
	msg := c1.receiveBroadcast()
	assert.Equal(t, "still here", msg.Message)

	// Only the valid event was persisted.
	c1.sendJSON(map[string]interface{}{
		"type":        domain.EventPreviousMessages,
		"sender_id":   1,
		"receiver_id": 2,
		"jobId":       7,
	})
	resp := c1.receiveHistory()
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "still here", resp.Messages[0].Message)
}

func TestInvalidParticipantDropped(t *testing.T) {
	server := setupServer(t)

	c1 := connectClient(t, server, "42")
	c2 := connectClient(t, server, "42")
	c2.waitReady()

	c1.sendChat("to nobody", 7, 1, 99, "alice")

	// The invalid event is dropped silently; the next valid one flows.
	c1.sendChat("to bob", 7, 1, 2, "alice")
	msg := c2.receiveBroadcast()
	assert.Equal(t, "to bob", msg.Message)
}

func TestDisconnectedMemberSkipped(t *testing.T) {
	server := setupServer(t)

	c1 := connectClient(t, server, "42")
	c2 := connectClient(t, server, "42")

	require.NoError(t, c1.conn.Close())
	// Give the server a moment to tear the session down.
	time.Sleep(100 * time.Millisecond)

	c2.sendChat("anybody home", 7, 2, 1, "bob")
	msg := c2.receiveBroadcast()
	assert.Equal(t, "anybody home", msg.Message)
}

func TestMissingRoomPathRejected(t *testing.T) {
	server := setupServer(t)

	resp, err := http.Get(server.URL + "/ws/chat//")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEqual(t, http.StatusSwitchingProtocols, resp.StatusCode)

	_, handshake, err := gws.DefaultDialer.Dial("ws"+server.URL[4:]+"/ws/chat//", nil)
	assert.Error(t, err)
	if handshake != nil {
		handshake.Body.Close()
	}
}

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaoTrinh25/Job-BE/config"
	"github.com/BaoTrinh25/Job-BE/internal/domain"
	"github.com/BaoTrinh25/Job-BE/internal/fanout"
	"github.com/BaoTrinh25/Job-BE/pkg/logger"
)

func setupFanout(t *testing.T) (*fanout.NATSFanout, context.Context) {
	cfg := config.MustReadConfig("../../config_test.json")
	ctx := logger.NewContext(context.Background(), logger.NewLogger(cfg.LogLevel, cfg.LogFile))

	f, err := fanout.NewNATS(ctx, cfg.NATSURL)
	require.NoError(t, err, "Failed to connect to NATS")
	t.Cleanup(f.Close)
	return f, ctx
}

func TestNATSSelfDelivery(t *testing.T) {
	f, ctx := setupFanout(t)

	received := make(chan domain.ChatBroadcast, 1)
	require.NoError(t, f.Join(ctx, "itest_self", "c1", func(e domain.ChatBroadcast) {
		received <- e
	}))
	time.Sleep(100 * time.Millisecond)

	event := domain.ChatBroadcast{Message: "echo me", SenderID: 1, ReceiverID: 2, JobID: 7, Sender: "alice"}
	require.NoError(t, f.Publish(ctx, "itest_self", event))

	select {
	case got := <-received:
		assert.Equal(t, event, got, "a member hears its own publishes")
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive own broadcast within timeout")
	}
}

func TestNATSPerPublisherOrdering(t *testing.T) {
	f, ctx := setupFanout(t)

	const count = 10
	received := make(chan string, count)
	require.NoError(t, f.Join(ctx, "itest_order", "c1", func(e domain.ChatBroadcast) {
		received <- e.Message
	}))
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < count; i++ {
		require.NoError(t, f.Publish(ctx, "itest_order", domain.ChatBroadcast{
			Message: fmt.Sprintf("m%d", i),
		}))
	}

	for i := 0; i < count; i++ {
		select {
		case msg := <-received:
			assert.Equal(t, fmt.Sprintf("m%d", i), msg)
		case <-time.After(2 * time.Second):
			t.Fatalf("missing message %d", i)
		}
	}
}

func TestNATSLeaveIsIdempotent(t *testing.T) {
	f, ctx := setupFanout(t)

	received := make(chan domain.ChatBroadcast, 1)
	require.NoError(t, f.Join(ctx, "itest_leave", "c1", func(e domain.ChatBroadcast) {
		received <- e
	}))

	require.NoError(t, f.Leave(ctx, "itest_leave", "c1"))
	require.NoError(t, f.Leave(ctx, "itest_leave", "c1"))
	require.NoError(t, f.Leave(ctx, "itest_leave", "never_joined"))

	require.NoError(t, f.Publish(ctx, "itest_leave", domain.ChatBroadcast{Message: "gone"}))
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, received, "no delivery after leaving")
}

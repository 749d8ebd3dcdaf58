package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/BaoTrinh25/Job-BE/internal/domain"
	"github.com/BaoTrinh25/Job-BE/internal/port"
	"github.com/BaoTrinh25/Job-BE/pkg/logger"
)

// NATSFanout distributes group broadcasts across every process connected
// to the same NATS cluster. One subscription is held per (group, connID)
// pair; a connection that leaves and rejoins misses everything published
// in between, which is why clients fetch history explicitly on connect.
type NATSFanout struct {
	conn   *nats.Conn
	subs   map[string]*nats.Subscription // keyed "group:connID"
	mu     sync.Mutex
	logger logger.Logger
}

var _ port.Fanout = (*NATSFanout)(nil)

func NewNATS(ctx context.Context, url string) (*NATSFanout, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSFanout{
		conn:   nc,
		subs:   make(map[string]*nats.Subscription),
		logger: logger.FromContext(ctx).WithModule("fanout"),
	}, nil
}

func subject(group string) string {
	return "chat.group." + group
}

func subKey(group, connID string) string {
	return group + ":" + connID
}

// Join subscribes connID to the group. The handler receives every event
// published to the group, including the connection's own publishes; the
// sender relies on hearing its message echoed back through the same path
// as other recipients.
func (f *NATSFanout) Join(ctx context.Context, group, connID string, handler func(domain.ChatBroadcast)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := subKey(group, connID)
	if _, exists := f.subs[key]; exists {
		return nil
	}

	sub, err := f.conn.Subscribe(subject(group), func(msg *nats.Msg) {
		var event domain.ChatBroadcast
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			f.logger.Errorf("dropping undecodable broadcast on %s: %v", msg.Subject, err)
			return
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to group %s: %w", group, err)
	}

	f.subs[key] = sub
	return nil
}

// Leave drops connID's subscription to the group. Leaving a group the
// connection never joined is a no-op.
func (f *NATSFanout) Leave(ctx context.Context, group, connID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := subKey(group, connID)
	if sub, exists := f.subs[key]; exists {
		if err := sub.Unsubscribe(); err != nil {
			return fmt.Errorf("failed to unsubscribe from group %s: %w", group, err)
		}
		delete(f.subs, key)
	}
	return nil
}

// Publish sends the event to every current member of the group. NATS
// preserves per-publisher ordering; there is no total order across
// publishers.
func (f *NATSFanout) Publish(ctx context.Context, group string, event domain.ChatBroadcast) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize broadcast: %w", err)
	}
	return f.conn.Publish(subject(group), data)
}

// Close drops all subscriptions and the underlying connection.
func (f *NATSFanout) Close() {
	f.mu.Lock()
	for key, sub := range f.subs {
		_ = sub.Unsubscribe()
		delete(f.subs, key)
	}
	f.mu.Unlock()

	f.conn.Close()
}

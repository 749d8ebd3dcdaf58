package fanout

import (
	"context"
	"sync"

	"github.com/BaoTrinh25/Job-BE/internal/domain"
	"github.com/BaoTrinh25/Job-BE/internal/port"
)

// MemoryFanout is a process-local fanout with the same contract as the
// NATS one. It backs unit tests and single-process development runs; a
// horizontally scaled deployment needs the NATS implementation.
type MemoryFanout struct {
	mu     sync.RWMutex
	groups map[string]map[string]func(domain.ChatBroadcast)
}

var _ port.Fanout = (*MemoryFanout)(nil)

func NewMemory() *MemoryFanout {
	return &MemoryFanout{
		groups: make(map[string]map[string]func(domain.ChatBroadcast)),
	}
}

func (f *MemoryFanout) Join(ctx context.Context, group, connID string, handler func(domain.ChatBroadcast)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	members, ok := f.groups[group]
	if !ok {
		members = make(map[string]func(domain.ChatBroadcast))
		f.groups[group] = members
	}
	if _, exists := members[connID]; exists {
		return nil
	}
	members[connID] = handler
	return nil
}

func (f *MemoryFanout) Leave(ctx context.Context, group, connID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if members, ok := f.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(f.groups, group)
		}
	}
	return nil
}

// Publish invokes every member handler with the event, the publisher's
// own handler included. Handlers are called on a snapshot so a member
// leaving mid-delivery never blocks or corrupts the iteration; delivery
// to a departed member is the handler's problem to drop.
func (f *MemoryFanout) Publish(ctx context.Context, group string, event domain.ChatBroadcast) error {
	f.mu.RLock()
	handlers := make([]func(domain.ChatBroadcast), 0, len(f.groups[group]))
	for _, h := range f.groups[group] {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (f *MemoryFanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = make(map[string]map[string]func(domain.ChatBroadcast))
}

package service

import (
	"context"
	"fmt"

	"github.com/BaoTrinh25/Job-BE/internal/domain"
	"github.com/BaoTrinh25/Job-BE/internal/port"
	"github.com/BaoTrinh25/Job-BE/internal/store"
	"github.com/BaoTrinh25/Job-BE/pkg/logger"
)

// ChatService defines the interface
type ChatService interface {
	// SendMessage validates, persists, and broadcasts one chat event to
	// the given fanout group.
	SendMessage(ctx context.Context, group string, event domain.ChatEvent) error

	// History returns the stored conversation for an unordered user pair
	// and a job, oldest first, with sender identities resolved. A pair
	// with no conversation yields an empty list, never an error.
	History(ctx context.Context, req domain.HistoryRequest) ([]domain.HistoryEntry, error)

	JoinRoom(ctx context.Context, group, connID string, handler func(domain.ChatBroadcast)) error
	LeaveRoom(ctx context.Context, group, connID string) error
}

type chatService struct {
	store  *store.Store
	fanout port.Fanout
	users  port.Directory
	logger logger.Logger
}

func NewChatService(ctx context.Context, st *store.Store, f port.Fanout, users port.Directory) ChatService {
	return &chatService{
		store:  st,
		fanout: f,
		users:  users,
		logger: logger.FromContext(ctx).WithModule("chat"),
	}
}

func (c *chatService) SendMessage(ctx context.Context, group string, event domain.ChatEvent) error {
	if event.SenderID == 0 || event.ReceiverID == 0 {
		return fmt.Errorf("%w: missing participant ids", domain.ErrValidation)
	}

	// Both participants must resolve before anything is persisted.
	if _, err := c.users.UserByID(ctx, event.SenderID); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	if _, err := c.users.UserByID(ctx, event.ReceiverID); err != nil {
		return fmt.Errorf("receiver: %w", err)
	}

	room, err := c.store.GetOrCreateRoom(ctx, event.SenderID, event.ReceiverID, event.JobID)
	if err != nil {
		return err
	}

	if _, err := c.store.AppendMessage(ctx, room, event.SenderID, event.Message); err != nil {
		return err
	}

	broadcast := domain.ChatBroadcast{
		Message:    event.Message,
		JobID:      event.JobID,
		Sender:     event.Sender,
		SenderID:   event.SenderID,
		ReceiverID: event.ReceiverID,
	}
	if err := c.fanout.Publish(ctx, group, broadcast); err != nil {
		return fmt.Errorf("publish to group %s: %w", group, err)
	}

	c.logger.Debugf("message from %d to %d persisted in room %d and published to %s",
		event.SenderID, event.ReceiverID, room.ID, group)
	return nil
}

func (c *chatService) History(ctx context.Context, req domain.HistoryRequest) ([]domain.HistoryEntry, error) {
	messages, err := c.store.History(ctx, req.SenderID, req.ReceiverID, req.JobID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		sender, err := c.users.UserByID(ctx, msg.SenderID)
		if err != nil {
			// A stored message referencing a vanished user is rendered
			// with the bare id rather than dropped from the transcript.
			c.logger.Warnf("history sender %d unresolved: %v", msg.SenderID, err)
			sender = domain.User{ID: msg.SenderID}
		}

		receiverID := req.ReceiverID
		if msg.SenderID == req.ReceiverID {
			receiverID = req.SenderID
		}

		entries = append(entries, domain.HistoryEntry{
			Message:    msg.Body,
			JobID:      msg.JobID,
			Sender:     sender,
			SenderID:   msg.SenderID,
			ReceiverID: receiverID,
		})
	}
	return entries, nil
}

func (c *chatService) JoinRoom(ctx context.Context, group, connID string, handler func(domain.ChatBroadcast)) error {
	if group == "" || connID == "" {
		return fmt.Errorf("group and connection id cannot be empty")
	}
	return c.fanout.Join(ctx, group, connID, handler)
}

func (c *chatService) LeaveRoom(ctx context.Context, group, connID string) error {
	return c.fanout.Leave(ctx, group, connID)
}

package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaoTrinh25/Job-BE/internal/domain"
)

// Store is the durable room registry and message log shared by every
// connection handler. Uniqueness of rooms is enforced by the database
// index, not by application-level check-then-act, so concurrent creators
// in separate processes still converge on a single row.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the chat tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&User{}, &Room{}, &Message{}); err != nil {
		return fmt.Errorf("migrate chat tables: %w", err)
	}
	return nil
}

func normalizePair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStorage, err)
}

// GetOrCreateRoom resolves the room for an unordered user pair and a job,
// creating it on first contact. Lookup and creation both key on the
// normalized (low, high, job) triple, so argument order never matters.
func (s *Store) GetOrCreateRoom(ctx context.Context, senderID, receiverID, jobID uint) (*Room, error) {
	low, high := normalizePair(senderID, receiverID)

	var room Room
	err := s.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ? AND job_id = ?", low, high, jobID).
		First(&room).Error
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr("lookup room", err)
	}

	room = Room{
		SenderID:   senderID,
		ReceiverID: receiverID,
		UserLow:    low,
		UserHigh:   high,
		JobID:      jobID,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&room)
	if res.Error != nil {
		return nil, storageErr("create room", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the creation race; the winner's row is committed by now.
		if err := s.db.WithContext(ctx).
			Where("user_low = ? AND user_high = ? AND job_id = ?", low, high, jobID).
			First(&room).Error; err != nil {
			return nil, storageErr("refetch room", err)
		}
	}
	return &room, nil
}

// AppendMessage persists one utterance in the given room. Messages are
// append-only; nothing in this subsystem updates or deletes them.
func (s *Store) AppendMessage(ctx context.Context, room *Room, senderID uint, body string) (*Message, error) {
	msg := Message{
		RoomID:   room.ID,
		SenderID: senderID,
		JobID:    room.JobID,
		Body:     body,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, storageErr("append message", err)
	}
	return &msg, nil
}

// History returns the room's messages ordered by creation time then id.
// A pair with no room, or a room with no messages, yields an empty slice
// rather than an error; callers cannot tell the two cases apart.
func (s *Store) History(ctx context.Context, senderID, receiverID, jobID uint) ([]Message, error) {
	low, high := normalizePair(senderID, receiverID)

	var room Room
	err := s.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ? AND job_id = ?", low, high, jobID).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, storageErr("lookup room", err)
	}

	messages := make([]Message, 0)
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", room.ID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, storageErr("load history", err)
	}
	return messages, nil
}

package store

import "time"

// User mirrors the identity records owned by the user service. The chat
// core only reads it, via the identity directory.
type User struct {
	ID        uint    `gorm:"primaryKey"`
	Username  string  `gorm:"size:150;uniqueIndex;not null"`
	Avatar    *string `gorm:"size:255"`
	CreatedAt time.Time
}

func (User) TableName() string { return "users" }

// Room is one conversation between two users about one job. SenderID and
// ReceiverID keep the first-contact orientation; UserLow/UserHigh hold the
// normalized pair so the uniqueness constraint is symmetric by
// construction: (A,B,J) and (B,A,J) collide on the same index entry.
type Room struct {
	ID         uint `gorm:"primaryKey"`
	SenderID   uint `gorm:"not null"`
	ReceiverID uint `gorm:"not null"`
	UserLow    uint `gorm:"not null;uniqueIndex:idx_rooms_pair_job,priority:1"`
	UserHigh   uint `gorm:"not null;uniqueIndex:idx_rooms_pair_job,priority:2"`
	JobID      uint `gorm:"not null;uniqueIndex:idx_rooms_pair_job,priority:3"`
	CreatedAt  time.Time
}

func (Room) TableName() string { return "rooms" }

// Message is one immutable chat utterance. JobID is denormalized from the
// room for query convenience.
type Message struct {
	ID        uint   `gorm:"primaryKey"`
	RoomID    uint   `gorm:"not null;index"`
	SenderID  uint   `gorm:"not null"`
	JobID     uint   `gorm:"not null"`
	Body      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (Message) TableName() string { return "messages" }
